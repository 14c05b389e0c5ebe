package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"shopcore/pkg/requestcontext"
)

// Store is the persistence sink for audit records.
type Store interface {
	Append(ctx context.Context, record Record) error
}

// Publisher stamps and persists audit records. It runs synchronously so a
// failed append surfaces to the mutation that caused it.
type Publisher struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithLogger sets a logger for append failures.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) { p.now = now }
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit stamps the record with an ID, timestamp, and the request's client
// metadata, then appends it. Empty IP/UA fields are filled from context so
// call sites only provide what the middleware cannot know.
func (p *Publisher) Emit(ctx context.Context, record Record) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = p.now().UTC()
	}
	if record.IPAddress == "" {
		record.IPAddress = requestcontext.ClientIP(ctx)
	}
	if record.UserAgent == "" {
		record.UserAgent = requestcontext.UserAgent(ctx)
	}

	if err := p.store.Append(ctx, record); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit append failed",
				"action", record.Action,
				"tenant_id", record.TenantID,
				"error", err,
			)
		}
		return err
	}
	return nil
}

// DescribeUserAgent condenses a raw User-Agent header into "Browser x.y on OS"
// for human-readable audit descriptions. The raw header is still stored.
func DescribeUserAgent(raw string) string {
	if raw == "" {
		return "unknown client"
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return "unknown client"
	}
	desc := name
	if version != "" {
		desc += " " + version
	}
	if os := ua.OS(); os != "" {
		desc += " on " + os
	}
	return desc
}
