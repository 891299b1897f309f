// Package activitymap turns auth activity events into flat audit records
// and ships them to the structured log.
package activitymap

import (
	"maps"
	"strings"
	"time"

	auth "github.com/kodbank/go-bank-auth"
)

// Outcomes attached to audit records
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeExpired = "expired"
)

// MetadataKeyReason is the metadata key flows use to explain a failure
const MetadataKeyReason = "reason"

const anonymousActor = "anonymous"

// Record is the audit shape written for every activity event
type Record struct {
	Event    string         `json:"event"`
	Outcome  string         `json:"outcome"`
	Actor    string         `json:"actor"`
	UserID   string         `json:"user_id,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	At       time.Time      `json:"at"`
}

// Failed reports whether the record describes a rejected attempt
func (r Record) Failed() bool {
	return r.Outcome != OutcomeSuccess
}

type options struct {
	anonymous string
	now       func() time.Time
}

// Option customizes how events are mapped
type Option func(*options)

// WithAnonymousActor names the actor used when an event carries neither a
// username nor a user id.
func WithAnonymousActor(actor string) Option {
	return func(o *options) {
		if actor = strings.TrimSpace(actor); actor != "" {
			o.anonymous = actor
		}
	}
}

// WithClock stamps events that arrive without an occurrence time
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// FromEvent maps event to an audit record. The actor is the username when
// known, since that is what operators search by, then the user id.
func FromEvent(event auth.ActivityEvent, opts ...Option) Record {
	o := options{anonymous: anonymousActor, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	at := event.OccurredAt
	if at.IsZero() {
		at = o.now()
	}

	meta := maps.Clone(event.Metadata)
	reason, _ := meta[MetadataKeyReason].(string)
	delete(meta, MetadataKeyReason)
	if len(meta) == 0 {
		meta = nil
	}

	return Record{
		Event:    string(event.EventType),
		Outcome:  outcomeOf(event.EventType),
		Actor:    actorOf(event, o.anonymous),
		UserID:   strings.TrimSpace(event.UserID),
		Reason:   reason,
		Metadata: meta,
		At:       at.UTC(),
	}
}

func outcomeOf(t auth.ActivityEventType) string {
	switch t {
	case auth.ActivityEventLoginFailure:
		return OutcomeFailure
	case auth.ActivityEventSessionExpired:
		return OutcomeExpired
	default:
		return OutcomeSuccess
	}
}

func actorOf(event auth.ActivityEvent, anonymous string) string {
	if name := strings.TrimSpace(event.Username); name != "" {
		return name
	}
	if id := strings.TrimSpace(event.UserID); id != "" {
		return id
	}
	return anonymous
}
