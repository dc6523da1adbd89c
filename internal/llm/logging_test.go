package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type captureLogger struct {
	events []CallEvent
	err    error
}

func (c *captureLogger) AppendLLMCall(_ context.Context, ev CallEvent) error {
	c.events = append(c.events, ev)
	return c.err
}

func TestLoggingProviderRecordsSuccess(t *testing.T) {
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`{"topic":"Optics"}`),
		Usage:   Usage{InputTokens: 120, OutputTokens: 18},
	})
	log := &captureLogger{}
	p := WithLogging(mock, log)

	ctx := WithPurpose(context.Background(), "classify-question")
	resp, err := p.Generate(ctx, Request{
		System:   "You tag exam questions.",
		Messages: []Message{{Role: RoleUser, Content: "State Hooke's law."}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp == nil {
		t.Fatal("nil response")
	}

	if len(log.events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(log.events))
	}
	ev := log.events[0]
	if !ev.Success {
		t.Error("Success = false")
	}
	if ev.Purpose != "classify-question" {
		t.Errorf("Purpose = %q", ev.Purpose)
	}
	if ev.InputTokens != 120 || ev.OutputTokens != 18 {
		t.Errorf("tokens = %d/%d", ev.InputTokens, ev.OutputTokens)
	}
	if ev.ResponseBody != `{"topic":"Optics"}` {
		t.Errorf("ResponseBody = %q", ev.ResponseBody)
	}
}

func TestLoggingProviderRecordsFailure(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}})
	log := &captureLogger{}
	p := WithLogging(mock, log)

	_, err := p.Generate(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error")
	}

	if len(log.events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(log.events))
	}
	ev := log.events[0]
	if ev.Success {
		t.Error("Success = true for failed call")
	}
	if ev.ErrorMessage == "" {
		t.Error("ErrorMessage empty")
	}
}

func TestLoggingProviderSwallowsLoggerErrors(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	log := &captureLogger{err: errors.New("disk full")}
	p := WithLogging(mock, log)

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("logger error must not fail the request: %v", err)
	}
}

func TestPurposeFromDefault(t *testing.T) {
	if got := PurposeFrom(context.Background()); got != "unknown" {
		t.Errorf("PurposeFrom = %q, want unknown", got)
	}
}
