package analysis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/labddb/resistorlens/internal/buildinfo"
	"github.com/labddb/resistorlens/internal/conf"
	"github.com/labddb/resistorlens/internal/history"
	"github.com/labddb/resistorlens/internal/reading"
	"github.com/labddb/resistorlens/internal/testutil"
	"github.com/labddb/resistorlens/internal/vision"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("os/signal.signal_recv"),
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

type recordingClient struct {
	mu        sync.Mutex
	connected bool
	topics    []string
}

func (c *recordingClient) Connect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return nil
}

func (c *recordingClient) Publish(_ context.Context, topic, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	return nil
}

func (c *recordingClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *recordingClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func memorySettings() *conf.Settings {
	s := &conf.Settings{}
	s.History.Limit = 5
	s.WebServer.Listen = "127.0.0.1:0"
	s.Telemetry.Listen = "127.0.0.1:0"
	return s
}

func TestSetupWithoutVisionKeepsManualInput(t *testing.T) {
	rt, err := Setup(context.Background(), memorySettings())
	require.NoError(t, err)
	defer func() { require.NoError(t, rt.Close()) }()

	assert.False(t, rt.VisionReady)
	assert.Nil(t, rt.Publisher)
	assert.Equal(t, "memory", rt.Store.Kind())

	_, err = rt.Scanner.Scan(context.Background(), history.SourceUpload, vision.Image{Data: []byte("x"), MIMEType: "image/png"})
	require.ErrorIs(t, err, vision.ErrNotConfigured)

	r, err := rt.Scanner.DecodeBands(context.Background(), []string{"brown", "black", "red"})
	require.NoError(t, err)
	assert.Equal(t, "1k", r.Result.FormattedValue)
	assert.Equal(t, int64(1), r.Usage)
}

func TestSetupPublishesToMQTT(t *testing.T) {
	settings := memorySettings()
	settings.MQTT.Enabled = true
	settings.MQTT.Topic = "lab"
	client := &recordingClient{}

	analyzer := vision.AnalyzerFunc(func(context.Context, vision.Image) (reading.Result, error) {
		return reading.Result{Bands: []string{"Red", "Red", "Brown"}, ResistanceOhms: 220, FormattedValue: "220", Confidence: 70}, nil
	})
	rt, err := Setup(context.Background(), settings, WithAnalyzer(analyzer), WithMQTTClient(client))
	require.NoError(t, err)

	assert.True(t, rt.VisionReady)
	require.NotNil(t, rt.Publisher)

	r, err := rt.Scanner.Scan(context.Background(), history.SourceCamera, vision.Image{Data: []byte("x"), MIMEType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, reading.QualityVerify, r.Quality)
	assert.Equal(t, []string{"lab/result"}, client.topics)

	require.NoError(t, rt.Close())
	assert.False(t, client.IsConnected())
}

func TestSetupSkipsMisconfiguredBroker(t *testing.T) {
	settings := memorySettings()
	settings.MQTT.Enabled = true
	settings.MQTT.Broker = "not a broker"

	rt, err := Setup(context.Background(), settings)
	require.NoError(t, err)
	defer rt.Close()
	assert.Nil(t, rt.Publisher)
}

func TestServeStopsOnCancel(t *testing.T) {
	settings := memorySettings()
	settings.Telemetry.Enabled = true

	rt, err := Setup(context.Background(), settings, WithAnalyzer(vision.AnalyzerFunc(
		func(context.Context, vision.Image) (reading.Result, error) { return reading.Result{}, vision.ErrNoResult })))
	require.NoError(t, err)
	defer rt.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, rt, buildinfo.NewContext("test", "")) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	err = testutil.Receive(t, done, testutil.LongTestTimeout, "Serve did not return after cancel")
	require.NoError(t, err)
}
