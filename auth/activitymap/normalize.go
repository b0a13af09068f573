// Package activitymap flattens auth activity events into audit records.
package activitymap

import (
	"strings"
	"time"

	"github.com/goliatone/go-fintrack/auth"
)

const (
	defaultChannel = "auth"
	defaultActorID = "anonymous"
)

// Record is the transport agnostic shape written to the audit log.
type Record struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	Channel    string         `json:"channel,omitempty"`
	Provider   string         `json:"provider,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Fields returns the record as logger key/value pairs.
func (r Record) Fields() []any {
	fields := []any{
		"actor_id", r.ActorID,
		"verb", r.Verb,
		"channel", r.Channel,
		"occurred_at", r.OccurredAt,
	}
	if r.Provider != "" {
		fields = append(fields, "provider", r.Provider)
	}
	if len(r.Metadata) > 0 {
		fields = append(fields, "metadata", r.Metadata)
	}
	return fields
}

// Option customizes Normalize.
type Option func(*options)

type options struct {
	channel       string
	actorFallback string
}

// WithChannel sets the channel of the records.
func WithChannel(channel string) Option {
	return func(o *options) {
		o.channel = strings.TrimSpace(channel)
	}
}

// WithActorFallback names the actor of events without a user, such as a
// failed login for an unknown email.
func WithActorFallback(actorID string) Option {
	return func(o *options) {
		o.actorFallback = strings.TrimSpace(actorID)
	}
}

// Normalize converts event. The "provider" metadata key of social logins is
// lifted into Record.Provider.
func Normalize(event auth.ActivityEvent, opts ...Option) Record {
	o := options{channel: defaultChannel, actorFallback: defaultActorID}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	actor := strings.TrimSpace(event.UserID)
	if actor == "" {
		actor = o.actorFallback
	}

	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}

	metadata := cloneMap(event.Metadata)
	var provider string
	if p, ok := metadata["provider"].(string); ok {
		provider = p
		delete(metadata, "provider")
		if len(metadata) == 0 {
			metadata = nil
		}
	}

	return Record{
		ActorID:    actor,
		Verb:       string(event.EventType),
		Channel:    o.channel,
		Provider:   provider,
		Metadata:   metadata,
		OccurredAt: occurred,
	}
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
