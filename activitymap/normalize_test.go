package activitymap_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	auth "github.com/kodbank/go-bank-auth"
	"github.com/kodbank/go-bank-auth/activitymap"
)

func TestFromEventLoginSuccess(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType:  auth.ActivityEventLoginSuccess,
		UserID:     "user-100",
		Username:   "alice",
		Metadata:   map[string]any{"ip": "10.0.0.1"},
		OccurredAt: ts,
	}

	rec := activitymap.FromEvent(event)

	if rec.Event != string(auth.ActivityEventLoginSuccess) {
		t.Fatalf("expected event %q, got %q", auth.ActivityEventLoginSuccess, rec.Event)
	}
	if rec.Outcome != activitymap.OutcomeSuccess || rec.Failed() {
		t.Fatalf("expected success outcome, got %q", rec.Outcome)
	}
	if rec.Actor != "alice" {
		t.Fatalf("expected actor alice, got %q", rec.Actor)
	}
	if rec.UserID != "user-100" {
		t.Fatalf("expected user_id user-100, got %q", rec.UserID)
	}
	if !rec.At.Equal(ts) {
		t.Fatalf("expected at %v, got %v", ts, rec.At)
	}
	if rec.Metadata["ip"] != "10.0.0.1" {
		t.Fatalf("expected metadata ip, got %#v", rec.Metadata["ip"])
	}
}

func TestFromEventLoginFailureLiftsReason(t *testing.T) {
	t.Parallel()

	event := auth.ActivityEvent{
		EventType: auth.ActivityEventLoginFailure,
		Username:  "ghost",
		Metadata:  map[string]any{activitymap.MetadataKeyReason: "unknown_user"},
	}

	rec := activitymap.FromEvent(event)

	if rec.Outcome != activitymap.OutcomeFailure || !rec.Failed() {
		t.Fatalf("expected failure outcome, got %q", rec.Outcome)
	}
	if rec.Reason != "unknown_user" {
		t.Fatalf("expected reason unknown_user, got %q", rec.Reason)
	}
	if rec.Metadata != nil {
		t.Fatalf("expected reason to be lifted out of metadata, got %+v", rec.Metadata)
	}
	if event.Metadata[activitymap.MetadataKeyReason] != "unknown_user" {
		t.Fatalf("expected source metadata to remain unchanged, got %+v", event.Metadata)
	}
}

func TestFromEventSessionExpired(t *testing.T) {
	t.Parallel()

	rec := activitymap.FromEvent(auth.ActivityEvent{EventType: auth.ActivityEventSessionExpired, UserID: "user-7"})
	if rec.Outcome != activitymap.OutcomeExpired {
		t.Fatalf("expected expired outcome, got %q", rec.Outcome)
	}
	if rec.Actor != "user-7" {
		t.Fatalf("expected actor to fall back to the user id, got %q", rec.Actor)
	}
}

func TestFromEventActorFallbacks(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	event := auth.ActivityEvent{EventType: auth.ActivityEventLogout, Username: "  "}

	rec := activitymap.FromEvent(event, activitymap.WithClock(func() time.Time { return fixed }))
	if rec.Actor != "anonymous" {
		t.Fatalf("expected anonymous actor, got %q", rec.Actor)
	}
	if !rec.At.Equal(fixed) {
		t.Fatalf("expected clock time %v, got %v", fixed, rec.At)
	}

	rec = activitymap.FromEvent(event, activitymap.WithAnonymousActor("system"), activitymap.WithAnonymousActor(""))
	if rec.Actor != "system" {
		t.Fatalf("expected configured anonymous actor, got %q", rec.Actor)
	}
}

type lineLogger struct {
	info []string
	warn []string
}

func (l *lineLogger) Debug(msg string, args ...any) {}
func (l *lineLogger) Error(msg string, args ...any) {}

func (l *lineLogger) Info(msg string, args ...any) {
	l.info = append(l.info, msg+" "+fmt.Sprint(args...))
}

func (l *lineLogger) Warn(msg string, args ...any) {
	l.warn = append(l.warn, msg+" "+fmt.Sprint(args...))
}

func TestLogSinkLevels(t *testing.T) {
	t.Parallel()

	logger := &lineLogger{}
	sink := activitymap.NewLogSink(logger)
	ctx := context.Background()

	if err := sink.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventRegistered, Username: "alice", UserID: "user-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sink.Record(ctx, auth.ActivityEvent{
		EventType: auth.ActivityEventLoginFailure,
		Username:  "alice",
		Metadata:  map[string]any{"reason": "invalid_password"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(logger.info) != 1 || len(logger.warn) != 1 {
		t.Fatalf("expected one info and one warn line, got info=%v warn=%v", logger.info, logger.warn)
	}
	if !strings.Contains(logger.info[0], "auth.user.registered") || !strings.Contains(logger.info[0], "user-1") {
		t.Fatalf("unexpected info line %q", logger.info[0])
	}
	if !strings.Contains(logger.warn[0], "invalid_password") {
		t.Fatalf("expected the reason in the warn line, got %q", logger.warn[0])
	}
}

func TestLogSinkWithoutLogger(t *testing.T) {
	t.Parallel()

	sink := activitymap.NewLogSink(nil)
	if err := sink.Record(context.Background(), auth.ActivityEvent{EventType: auth.ActivityEventLogout}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
