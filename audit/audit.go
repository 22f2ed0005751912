// Package audit records tool usage without ever failing the caller.
//
// A Recorder wraps a Sink (MongoDB or DynamoDB). Record bounds each write by
// a short timeout; failures are logged and counted, never returned:
//
//	rec := audit.New(audit.NewMongoSink(db), logger, audit.DefaultTimeout)
//	rec.Record(ctx, audit.Entry{ToolName: "budget", UserID: "ada", Action: "create"})
package audit

import (
	"context"
	"log/slog"
	"time"
)

// DefaultTimeout bounds a single audit write.
const DefaultTimeout = 2 * time.Second

// Entry is one tool-usage record. UserID and SessionID are optional.
type Entry struct {
	ToolName  string    `bson:"tool_name" json:"tool_name" dynamodbav:"tool_name"`
	UserID    string    `bson:"user_id" json:"user_id,omitempty" dynamodbav:"user_id,omitempty"`
	SessionID string    `bson:"session_id" json:"session_id,omitempty" dynamodbav:"session_id,omitempty"`
	Action    string    `bson:"action" json:"action,omitempty" dynamodbav:"action,omitempty"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp" dynamodbav:"timestamp"`
}

// actor is the identity used to spread entries across shards.
func (e Entry) actor() string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.SessionID
}

// Sink persists entries.
type Sink interface {
	Write(ctx context.Context, e Entry) error
}

// Discard drops every entry.
var Discard Sink = discard{}

type discard struct{}

func (discard) Write(context.Context, Entry) error { return nil }

// Recorder writes entries to a Sink on a best-effort basis.
type Recorder struct {
	sink    Sink
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// New creates a Recorder. A nil logger uses slog.Default(); a non-positive
// timeout uses DefaultTimeout.
func New(sink Sink, logger *slog.Logger, timeout time.Duration) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Recorder{
		sink:    sink,
		logger:  logger,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Record writes e, stamping Timestamp when zero. It never returns an error
// and never blocks longer than the recorder's timeout.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = r.now()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.sink.Write(ctx, e); err != nil {
		dropped.WithLabelValues(e.ToolName).Inc()
		r.logger.ErrorContext(ctx, "error logging tool usage",
			"tool_name", e.ToolName,
			"user_id", e.UserID,
			"session_id", e.SessionID,
			"error", err,
		)
		return
	}
	recorded.WithLabelValues(e.ToolName).Inc()
	r.logger.DebugContext(ctx, "logged tool usage", "tool_name", e.ToolName, "user_id", e.UserID)
}
