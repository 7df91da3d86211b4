package publisher

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/theoremus-urban-solutions/gtfs-departures/board"
)

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	Publish(subject string, data []byte) error
}

type NATSPublisher struct {
	nc          Conn
	closer      *nats.Conn
	subject     string
	logSubjects bool
	metrics     PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, subject string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("gtfs-departures"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	p := NewWithConn(nc, subject, logSubjects, m)
	p.closer = nc
	return p, nil
}

// NewWithConn wraps an existing connection.
func NewWithConn(nc Conn, subject string, logSubjects bool, m PublisherMetrics) *NATSPublisher {
	if subject == "" {
		subject = "departures"
	}
	return &NATSPublisher{nc: nc, subject: subject, logSubjects: logSubjects, metrics: m}
}

func (p *NATSPublisher) Close() {
	if p.closer != nil {
		_ = p.closer.Drain()
		p.closer.Close()
	}
}

// BoardMessage is the payload published after every pass.
type BoardMessage struct {
	StopID    string       `json:"stopId"`
	Timestamp time.Time    `json:"timestamp"`
	Board     board.Result `json:"board"`
}

// Subject returns the subject a board for stopID is published on.
func (p *NATSPublisher) Subject(stopID string) string {
	return fmt.Sprintf("%s.%s", p.subject, subjectToken(stopID))
}

// Publish sends the board for stopID.
func (p *NATSPublisher) Publish(stopID string, res board.Result) error {
	subject := p.Subject(stopID)
	b, err := json.Marshal(BoardMessage{StopID: stopID, Timestamp: time.Now().UTC(), Board: res})
	if err != nil {
		return err
	}
	if p.logSubjects {
		log.Printf("nats publish subject=%s", subject)
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
