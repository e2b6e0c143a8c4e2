package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/history"
	"github.com/labddb/resistorlens/internal/logger"
	"github.com/labddb/resistorlens/internal/reading"
)

// ResultMessage is the JSON payload published for each reading.
type ResultMessage struct {
	Source         history.Source `json:"source"`
	Bands          []string       `json:"bands"`
	ResistanceOhms float64        `json:"resistance_ohms"`
	FormattedValue string         `json:"formatted_value"`
	DisplayValue   string         `json:"display_value"`
	Confidence     int            `json:"confidence"`
	IsManual       bool           `json:"is_manual"`
	Quality        string         `json:"quality"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Publisher sends readings to <topic>/result. It connects lazily on the
// first publish when the client is not connected yet.
type Publisher struct {
	client Client
	topic  string
	now    func() time.Time
	log    logger.Logger
}

// NewPublisher creates a Publisher for the given base topic.
func NewPublisher(c Client, topic string, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.Global().Module("mqtt")
	}
	return &Publisher{
		client: c,
		topic:  strings.TrimRight(topic, "/") + ResultSuffix,
		now:    time.Now,
		log:    log,
	}
}

// Topic returns the topic readings are published to.
func (p *Publisher) Topic() string {
	return p.topic
}

// Publish implements scanner.Publisher.
func (p *Publisher) Publish(ctx context.Context, source history.Source, result reading.Result) error {
	payload, err := json.Marshal(newResultMessage(source, result, p.now()))
	if err != nil {
		return mqttError(fmt.Errorf("marshal reading: %w", err), errors.CategoryMQTTPublish, "marshal")
	}

	if !p.client.IsConnected() {
		if err := p.client.Connect(ctx); err != nil {
			return err
		}
	}

	if err := p.client.Publish(ctx, p.topic, string(payload)); err != nil {
		return err
	}
	p.log.Debug("reading published",
		logger.String("topic", p.topic),
		logger.String("value", result.FormattedValue))
	return nil
}

// Close disconnects the client.
func (p *Publisher) Close() {
	p.client.Disconnect()
}

func newResultMessage(source history.Source, r reading.Result, now time.Time) ResultMessage {
	return ResultMessage{
		Source:         source,
		Bands:          r.Bands,
		ResistanceOhms: r.ResistanceOhms,
		FormattedValue: r.FormattedValue,
		DisplayValue:   r.DisplayValue(),
		Confidence:     r.Confidence,
		IsManual:       r.IsManual,
		Quality:        string(r.Quality()),
		Timestamp:      now.UTC(),
	}
}
