package natspub

import (
	"encoding/json"

	"github.com/yarkivaev/serial-to-mqtt/metric"
	"github.com/yarkivaev/serial-to-mqtt/pipeline"
	"github.com/yarkivaev/serial-to-mqtt/reading"
	"github.com/yarkivaev/serial-to-mqtt/result"
)

// BrokerConn is the slice of Client the publisher needs.
type BrokerConn interface {
	Publish(subject string, data []byte) error
}

// wireReading is the published payload: timestamp in milliseconds since
// the Unix epoch and the numeric value.
type wireReading struct {
	TS    int64   `json:"ts"`
	Value float64 `json:"value"`
}

// Publisher sends readings to one broker subject. It implements
// pipeline.Publisher.
type Publisher struct {
	conn    BrokerConn
	subject string
	metrics *metric.Metrics
}

var _ pipeline.Publisher = (*Publisher)(nil)

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPublisherMetrics wires bridge metrics into the publisher.
func WithPublisherMetrics(m *metric.Metrics) PublisherOption {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// NewPublisher creates a Publisher for one subject.
func NewPublisher(conn BrokerConn, subject string, opts ...PublisherOption) *Publisher {
	p := &Publisher{conn: conn, subject: subject}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subject returns the subject this publisher sends to.
func (p *Publisher) Subject() string {
	return p.subject
}

// Publish encodes the reading and sends it. Broker failures become
// result failures so the pipeline can report and carry on.
func (p *Publisher) Publish(r reading.Reading) result.Result[result.Unit] {
	payload, err := json.Marshal(wireReading{
		TS:    r.Epoch().Milliseconds(),
		Value: r.Measurement().Value(),
	})
	if err != nil {
		return result.Failf[result.Unit]("encode reading: %s", err)
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.metrics.RecordPublishFailure(p.subject)
		return result.Failf[result.Unit]("publish to %s: %s", p.subject, err)
	}

	p.metrics.RecordReadingPublished(p.subject)
	return result.Ok(result.Unit{})
}
