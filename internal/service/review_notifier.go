package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/nerus-go-api/internal/observability"
)

// ReviewEvent announces that a solution received an automated review.
type ReviewEvent struct {
	EventID       string    `json:"event_id"`
	SolutionID    uint      `json:"solution_id"`
	ProblemID     uint      `json:"problem_id"`
	StudentID     uint      `json:"student_id"`
	Score         float64   `json:"pontuacao"`
	Status        string    `json:"status_recomendado"`
	Provider      string    `json:"provider"`
	UsedFallback  bool      `json:"used_fallback"`
	FromCache     bool      `json:"from_cache"`
	ManualReview  bool      `json:"manual_review"`
	OccurredAt    time.Time `json:"occurred_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// ReviewNotifier delivers review events to interested parties.
type ReviewNotifier interface {
	Notify(ctx context.Context, event ReviewEvent) error
}

// LogReviewNotifier writes review events to the log.
type LogReviewNotifier struct {
	logger zerolog.Logger
}

// NewLogReviewNotifier constructs a logging notifier.
func NewLogReviewNotifier(logger zerolog.Logger) *LogReviewNotifier {
	return &LogReviewNotifier{logger: logger.With().Str("component", "review_notifier").Logger()}
}

// Notify logs the event and never fails.
func (l *LogReviewNotifier) Notify(ctx context.Context, event ReviewEvent) error {
	l.logger.Info().
		Str("event_id", event.EventID).
		Uint("solution_id", event.SolutionID).
		Float64("score", event.Score).
		Str("status", event.Status).
		Bool("manual_review", event.ManualReview).
		Msg("solution review recorded")
	observability.ReviewEvents().WithLabelValues("log", "delivered").Inc()
	return nil
}

// Publisher is the subset of *nats.Conn used to emit events.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// NATSReviewNotifier publishes review events as JSON on a NATS subject.
type NATSReviewNotifier struct {
	conn    Publisher
	subject string
	logger  zerolog.Logger
}

// NewNATSReviewNotifier constructs a notifier over an established connection.
func NewNATSReviewNotifier(conn Publisher, subject string, logger zerolog.Logger) *NATSReviewNotifier {
	return &NATSReviewNotifier{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "review_notifier").Str("subject", subject).Logger(),
	}
}

// Notify encodes and publishes the event.
func (n *NATSReviewNotifier) Notify(ctx context.Context, event ReviewEvent) error {
	if n.conn == nil || n.subject == "" {
		return errors.New("nats notifier not configured")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode review event: %w", err)
	}

	if err := n.conn.Publish(n.subject, payload); err != nil {
		observability.ReviewEvents().WithLabelValues("nats", "failed").Inc()
		return fmt.Errorf("publish review event: %w", err)
	}

	observability.ReviewEvents().WithLabelValues("nats", "delivered").Inc()
	n.logger.Debug().Str("event_id", event.EventID).Msg("review event published")
	return nil
}

// ConnectNATS dials the broker used for review events.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url, nats.Name(name), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return conn, nil
}

func newReviewEventID() string {
	return uuid.NewString()
}
