package mqtt

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labddb/resistorlens/internal/conf"
	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/history"
	"github.com/labddb/resistorlens/internal/logger"
	"github.com/labddb/resistorlens/internal/observability/metrics"
	"github.com/labddb/resistorlens/internal/reading"
)

type message struct {
	topic   string
	payload string
}

// mockClient records publications instead of talking to a broker.
type mockClient struct {
	mu         sync.Mutex
	connected  bool
	connects   int
	connectErr error
	publishErr error
	messages   []message
}

func (m *mockClient) Connect(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connects++
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connected = true
	return nil
}

func (m *mockClient) Publish(_ context.Context, topic, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.messages = append(m.messages, message{topic, payload})
	return nil
}

func (m *mockClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockClient) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
}

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

func TestPublisherSendsResultJSON(t *testing.T) {
	mc := &mockClient{}
	p := NewPublisher(mc, "lab/bench1/", quietLogger())
	p.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	assert.Equal(t, "lab/bench1/result", p.Topic())

	result := reading.Result{
		Bands:          []string{"Yellow", "Violet", "Red"},
		ResistanceOhms: 4700,
		FormattedValue: "4.7k",
		Confidence:     91,
	}
	require.NoError(t, p.Publish(context.Background(), history.SourceCamera, result))
	require.NoError(t, p.Publish(context.Background(), history.SourceCamera, result))

	assert.Equal(t, 1, mc.connects, "connects lazily once")
	require.Len(t, mc.messages, 2)
	assert.Equal(t, "lab/bench1/result", mc.messages[0].topic)

	var msg ResultMessage
	require.NoError(t, json.Unmarshal([]byte(mc.messages[0].payload), &msg))
	assert.Equal(t, history.SourceCamera, msg.Source)
	assert.Equal(t, []string{"Yellow", "Violet", "Red"}, msg.Bands)
	assert.Equal(t, "4.7kΩ", msg.DisplayValue)
	assert.Equal(t, "High Precision", msg.Quality)
	assert.False(t, msg.IsManual)
	assert.True(t, msg.Timestamp.Equal(p.now()))

	p.Close()
	assert.False(t, mc.IsConnected())
}

func TestPublisherPropagatesErrors(t *testing.T) {
	mc := &mockClient{connectErr: errors.NewStd("refused")}
	p := NewPublisher(mc, "resistorlens", quietLogger())

	err := p.Publish(context.Background(), history.SourceManual, reading.Result{FormattedValue: "1k"})
	require.Error(t, err)
	assert.Empty(t, mc.messages)

	mc.connectErr = nil
	mc.publishErr = errors.NewStd("queue full")
	err = p.Publish(context.Background(), history.SourceManual, reading.Result{FormattedValue: "1k"})
	require.ErrorContains(t, err, "queue full")
}

func TestConfigFromSettings(t *testing.T) {
	settings := &conf.Settings{}
	settings.Main.Name = "bench"
	settings.MQTT.Broker = "tcp://broker:1883"
	settings.MQTT.Topic = "lab"
	settings.MQTT.Retain = true

	cfg := ConfigFromSettings(settings)
	assert.Equal(t, "bench", cfg.ClientID)
	assert.Equal(t, "tcp://broker:1883", cfg.Broker)
	assert.True(t, cfg.Retain)
	assert.Equal(t, DefaultConfig().PublishTimeout, cfg.PublishTimeout)
}

func TestNewClientRejectsBadBroker(t *testing.T) {
	for _, broker := range []string{"", "localhost", "::not a url"} {
		cfg := DefaultConfig()
		cfg.Broker = broker
		_, err := NewClient(cfg, nil, quietLogger())
		require.Error(t, err, broker)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration), broker)
	}
}

func TestClientPublishWhileDisconnected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Broker = "tcp://127.0.0.1:1883"
	c, err := NewClient(cfg, nil, quietLogger())
	require.NoError(t, err)

	assert.False(t, c.IsConnected())
	err = c.Publish(context.Background(), "resistorlens/result", "{}")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPublish))
	c.Disconnect()
}

func TestClientConnectRefused(t *testing.T) {
	// Reserve a port and close it so nothing listens there.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Broker = "tcp://" + addr
	cfg.ClientID = "resistorlens-test"
	cfg.ConnectTimeout = 2 * time.Second
	c, err := NewClient(cfg, m, quietLogger())
	require.NoError(t, err)

	err = c.Connect(context.Background())
	require.Error(t, err)
	assert.False(t, c.IsConnected())
	assert.InDelta(t, 1, testutil.ToFloat64(m.Errors), 0)
	c.Disconnect()
}
