package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// recordingNotifier captures events for assertions.
type recordingNotifier struct {
	events []Event
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func TestContextInjection(t *testing.T) {
	rec := &recordingNotifier{}
	ctx := WithNotifier(context.Background(), rec)

	got := NotifierFromContext(ctx)
	if got == nil {
		t.Fatal("NotifierFromContext returned nil")
	}
	if err := got.Notify(ctx, Event{Type: EventRunStarted}); err != nil {
		t.Fatal(err)
	}
	if len(rec.events) != 1 {
		t.Errorf("events = %d, want 1", len(rec.events))
	}

	if NotifierFromContext(context.Background()) != nil {
		t.Error("empty context should yield nil notifier")
	}
}

func TestMultiNotifierContinuesPastFailure(t *testing.T) {
	bad := &recordingNotifier{err: errors.New("down")}
	good := &recordingNotifier{}

	multi := NewMultiNotifier(bad, good)
	err := multi.Notify(context.Background(), Event{Type: EventRunCompleted, Message: "done"})
	if err == nil {
		t.Error("expected the failing notifier's error to surface")
	}
	if len(good.events) != 1 {
		t.Errorf("second notifier should still run, got %d events", len(good.events))
	}
}

func TestWebhookNotifier(t *testing.T) {
	var received Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("bad payload: %v", err)
		}
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, map[string]string{"X-Token": "abc"})
	err := n.Notify(context.Background(), Event{
		Type:      EventRunSuspended,
		RunID:     "run_a",
		Message:   "awaiting answers",
		Severity:  SeverityInfo,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if received.Type != EventRunSuspended || received.RunID != "run_a" {
		t.Errorf("received = %+v", received)
	}
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, nil)
	if err := n.Notify(context.Background(), Event{Type: EventRunFailed}); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestSlackNotifierPayload(t *testing.T) {
	var payload slackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("bad payload: %v", err)
		}
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, WithSlackChannel("#planning"), WithSlackUsername("planbot"))
	err := n.Notify(context.Background(), Event{
		Type:     EventRunCompleted,
		RunID:    "run_a",
		FlowID:   "planning",
		Message:  "plan ready",
		Severity: SeverityInfo,
		Metadata: map[string]any{"stages": 6},
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if payload.Channel != "#planning" || payload.Username != "planbot" {
		t.Errorf("payload = %+v", payload)
	}
	if len(payload.Attachments) != 1 || payload.Attachments[0].Color != "good" {
		t.Errorf("attachments = %+v", payload.Attachments)
	}
}

func TestNopNotifier(t *testing.T) {
	if err := (NopNotifier{}).Notify(context.Background(), Event{}); err != nil {
		t.Errorf("NopNotifier returned %v", err)
	}
}
