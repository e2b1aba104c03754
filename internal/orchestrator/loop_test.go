package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"cody-cli/internal/api"
	"cody-cli/internal/session"
	"cody-cli/internal/tools"
)

// scriptedClient replays canned responses and captures every request.
type scriptedClient struct {
	responses []*api.ChatResponse
	errs      []error
	requests  []api.ChatRequest
}

func (c *scriptedClient) ChatCompletions(_ context.Context, req api.ChatRequest) (*api.ChatResponse, api.CallStats, error) {
	c.requests = append(c.requests, req)
	i := len(c.requests) - 1
	stats := api.CallStats{Status: 200, Latency: 5 * time.Millisecond}
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, stats, c.errs[i]
	}
	if i >= len(c.responses) {
		// Keep replying with the last scripted response.
		i = len(c.responses) - 1
	}
	return c.responses[i], stats, nil
}

func assistantText(content string) *api.ChatResponse {
	return &api.ChatResponse{
		Choices: []api.Choice{{Message: api.Message{Role: api.RoleAssistant, Content: content}, FinishReason: "stop"}},
		Usage:   api.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

func assistantToolCall(id, name, arguments string) *api.ChatResponse {
	return &api.ChatResponse{
		Choices: []api.Choice{{
			Message: api.Message{
				Role:      api.RoleAssistant,
				ToolCalls: []api.ToolCall{{ID: id, Type: "function", Function: api.FunctionCall{Name: name, Arguments: arguments}}},
			},
			FinishReason: "tool_calls",
		}},
		Usage: api.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

func addRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r, err := tools.NewRegistry(tools.Tool{
		Name:        "add",
		Description: "Add two numbers",
		Parameters: tools.ObjectSchema(map[string]tools.Property{
			"a": {Type: "number"},
			"b": {Type: "number"},
		}, "a", "b"),
		Execute: func(_ context.Context, args map[string]any) (string, error) {
			sum := args["a"].(float64) + args["b"].(float64)
			return fmt.Sprintf("%g", sum), nil
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func newLoop(t *testing.T, client ChatClient, registry *tools.Registry, recorder *session.Recorder) *Loop {
	t.Helper()
	loop, err := New(Options{
		Client:   client,
		Registry: registry,
		Recorder: recorder,
		Model:    "anthropic::2024-10-22::claude-sonnet-4-latest",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return loop
}

func userHistory(prompt string) []api.Message {
	return []api.Message{{Role: api.RoleUser, Content: prompt}}
}

func TestRun_ToolCallThenFinalAnswer(t *testing.T) {
	client := &scriptedClient{responses: []*api.ChatResponse{
		assistantToolCall("call_1", "add", `{"a":2,"b":3}`),
		assistantText("2 + 3 is 5."),
	}}
	recorder := session.NewRecorder(session.Metadata{Task: "test"})
	loop := newLoop(t, client, addRegistry(t), recorder)

	outcome, err := loop.Run(context.Background(), userHistory("what is 2+3?"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !outcome.Final() {
		t.Fatalf("State = %s, want FINAL_ANSWER", outcome.State)
	}
	if outcome.Answer != "2 + 3 is 5." {
		t.Fatalf("Answer = %q", outcome.Answer)
	}
	if outcome.Turns != 2 {
		t.Fatalf("Turns = %d, want 2", outcome.Turns)
	}
	if outcome.Usage.TotalTokens != 30 {
		t.Fatalf("Usage.TotalTokens = %d, want 30", outcome.Usage.TotalTokens)
	}

	// The tool result was folded into the second request.
	second := client.requests[1]
	var result *api.Message
	for i := range second.Messages {
		if second.Messages[i].ToolCallID == "call_1" {
			result = &second.Messages[i]
		}
	}
	if result == nil {
		t.Fatalf("second request missing tool result: %+v", second.Messages)
	}
	if result.Content != "5" || result.Name != "add" {
		t.Fatalf("tool result = %+v", result)
	}

	// The recorder saw both turns, with the invocation on the first.
	turns := recorder.Snapshot()
	if len(turns) != 2 {
		t.Fatalf("recorded turns = %d, want 2", len(turns))
	}
	if len(turns[0].ToolCalls) != 1 || turns[0].ToolCalls[0].Failed {
		t.Fatalf("turn 1 tool calls = %+v", turns[0].ToolCalls)
	}
	if turns[0].ToolCalls[0].Output != "5" {
		t.Fatalf("tool output = %q, want 5", turns[0].ToolCalls[0].Output)
	}
}

func TestRun_UnknownToolContinues(t *testing.T) {
	client := &scriptedClient{responses: []*api.ChatResponse{
		assistantToolCall("call_1", "unknown_fn", `{}`),
		assistantText("done"),
	}}
	recorder := session.NewRecorder(session.Metadata{Task: "test"})
	loop := newLoop(t, client, addRegistry(t), recorder)

	outcome, err := loop.Run(context.Background(), userHistory("go"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !outcome.Final() {
		t.Fatalf("State = %s, want FINAL_ANSWER", outcome.State)
	}

	call := recorder.Snapshot()[0].ToolCalls[0]
	if !call.Failed {
		t.Fatalf("expected failed tool call, got %+v", call)
	}
	if call.ErrorDetail != "tool not found: unknown_fn" {
		t.Fatalf("ErrorDetail = %q", call.ErrorDetail)
	}

	// The failed result still reaches the model as an error payload.
	second := client.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if last.ToolCallID != "call_1" || !strings.Contains(last.Content, "tool not found: unknown_fn") {
		t.Fatalf("resubmitted result = %+v", last)
	}
}

func TestRun_MalformedArgumentsContinue(t *testing.T) {
	client := &scriptedClient{responses: []*api.ChatResponse{
		assistantToolCall("call_1", "add", `{not json`),
		assistantText("done"),
	}}
	recorder := session.NewRecorder(session.Metadata{Task: "test"})
	loop := newLoop(t, client, addRegistry(t), recorder)

	outcome, err := loop.Run(context.Background(), userHistory("go"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !outcome.Final() {
		t.Fatalf("State = %s, want FINAL_ANSWER", outcome.State)
	}
	call := recorder.Snapshot()[0].ToolCalls[0]
	if !call.Failed || !strings.Contains(call.ErrorDetail, "invalid arguments for add") {
		t.Fatalf("tool call = %+v", call)
	}
}

func TestRun_MixedFailureIsolation(t *testing.T) {
	// One bad invocation must not poison the good one in the same turn.
	resp := &api.ChatResponse{
		Choices: []api.Choice{{
			Message: api.Message{
				Role: api.RoleAssistant,
				ToolCalls: []api.ToolCall{
					{ID: "call_1", Function: api.FunctionCall{Name: "unknown_fn", Arguments: `{}`}},
					{ID: "call_2", Function: api.FunctionCall{Name: "add", Arguments: `{"a":2,"b":3}`}},
				},
			},
		}},
	}
	client := &scriptedClient{responses: []*api.ChatResponse{resp, assistantText("done")}}
	recorder := session.NewRecorder(session.Metadata{Task: "test"})
	loop := newLoop(t, client, addRegistry(t), recorder)

	if _, err := loop.Run(context.Background(), userHistory("go")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	calls := recorder.Snapshot()[0].ToolCalls
	if len(calls) != 2 {
		t.Fatalf("tool calls = %d, want 2", len(calls))
	}
	if !calls[0].Failed || calls[1].Failed {
		t.Fatalf("failure isolation broken: %+v", calls)
	}
	if calls[1].Output != "5" {
		t.Fatalf("good call output = %q", calls[1].Output)
	}

	// Exactly one result per invocation, in response order, before the
	// next outbound request.
	second := client.requests[1]
	var ids []string
	for _, msg := range second.Messages {
		if msg.ToolCallID != "" {
			ids = append(ids, msg.ToolCallID)
		}
	}
	if len(ids) != 2 || ids[0] != "call_1" || ids[1] != "call_2" {
		t.Fatalf("resubmitted result ids = %v", ids)
	}
}

func TestRun_APIErrorRecordsFailedTurn(t *testing.T) {
	apiErr := &api.APIError{Status: 500, Type: "server_error", Message: "overloaded"}
	client := &scriptedClient{errs: []error{apiErr}}
	recorder := session.NewRecorder(session.Metadata{Task: "test"})
	loop := newLoop(t, client, addRegistry(t), recorder)

	_, err := loop.Run(context.Background(), userHistory("go"))
	var got *api.APIError
	if !errors.As(err, &got) {
		t.Fatalf("err = %v, want *api.APIError", err)
	}
	if got.Status != 500 || got.Message != "overloaded" {
		t.Fatalf("got = %+v", got)
	}

	turns := recorder.Snapshot()
	if len(turns) != 1 {
		t.Fatalf("recorded turns = %d, want 1", len(turns))
	}
	if !turns[0].Failed || !strings.Contains(turns[0].Error, "overloaded") {
		t.Fatalf("turn = %+v", turns[0])
	}
}

func TestRun_TurnBudgetAborts(t *testing.T) {
	// The model keeps asking for tools and never settles.
	client := &scriptedClient{responses: []*api.ChatResponse{
		assistantToolCall("call_1", "add", `{"a":1,"b":1}`),
	}}
	recorder := session.NewRecorder(session.Metadata{Task: "test"})
	loop := newLoop(t, client, addRegistry(t), recorder)

	outcome, err := loop.Run(context.Background(), userHistory("loop forever"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !outcome.Aborted() {
		t.Fatalf("State = %s, want ABORTED", outcome.State)
	}
	if outcome.Turns != DefaultMaxTurns {
		t.Fatalf("Turns = %d, want %d", outcome.Turns, DefaultMaxTurns)
	}
	if recorder.Len() != DefaultMaxTurns {
		t.Fatalf("recorded turns = %d, want %d", recorder.Len(), DefaultMaxTurns)
	}
	// Partial history survives: the user message plus one assistant
	// request and one tool result per turn.
	if len(outcome.History) != 1+2*DefaultMaxTurns {
		t.Fatalf("len(History) = %d", len(outcome.History))
	}
}

func TestRun_ContentWithToolCallsStaysToolRequest(t *testing.T) {
	resp := &api.ChatResponse{
		Choices: []api.Choice{{
			Message: api.Message{
				Role:      api.RoleAssistant,
				Content:   "Let me check that.",
				ToolCalls: []api.ToolCall{{ID: "call_1", Function: api.FunctionCall{Name: "add", Arguments: `{"a":1,"b":2}`}}},
			},
		}},
	}
	client := &scriptedClient{responses: []*api.ChatResponse{resp, assistantText("3")}}
	loop := newLoop(t, client, addRegistry(t), nil)

	outcome, err := loop.Run(context.Background(), userHistory("1+2?"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Answer != "3" {
		t.Fatalf("Answer = %q", outcome.Answer)
	}
	if len(client.requests) != 2 {
		t.Fatalf("requests = %d, want 2 (tool calls take precedence)", len(client.requests))
	}
	// The interim text is retained in the resubmitted history.
	found := false
	for _, msg := range client.requests[1].Messages {
		if msg.Role == api.RoleAssistant && msg.Content == "Let me check that." {
			found = true
		}
	}
	if !found {
		t.Fatalf("interim assistant text dropped from history")
	}
}

func TestRun_EmptyAssistantMessage(t *testing.T) {
	resp := &api.ChatResponse{
		Choices: []api.Choice{{Message: api.Message{Role: api.RoleAssistant}}},
	}
	client := &scriptedClient{responses: []*api.ChatResponse{resp}}
	recorder := session.NewRecorder(session.Metadata{Task: "test"})
	loop := newLoop(t, client, nil, recorder)

	outcome, err := loop.Run(context.Background(), userHistory("go"))
	if !errors.Is(err, api.ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
	if outcome.Final() {
		t.Fatalf("empty message must not count as a final answer")
	}
	turns := recorder.Snapshot()
	if len(turns) != 1 || !turns[0].Failed {
		t.Fatalf("recorded turns = %+v", turns)
	}
	// The invalid message stays out of the resumable history.
	if len(outcome.History) != 1 {
		t.Fatalf("len(History) = %d, want 1", len(outcome.History))
	}
}

func TestRun_EmptyChoices(t *testing.T) {
	client := &scriptedClient{responses: []*api.ChatResponse{{Choices: nil}}}
	loop := newLoop(t, client, nil, nil)

	_, err := loop.Run(context.Background(), userHistory("go"))
	if !errors.Is(err, api.ErrNoChoices) {
		t.Fatalf("err = %v, want ErrNoChoices", err)
	}
}

func TestRun_RequestCarriesToolDeclarations(t *testing.T) {
	client := &scriptedClient{responses: []*api.ChatResponse{assistantText("hi")}}
	loop := newLoop(t, client, addRegistry(t), nil)

	if _, err := loop.Run(context.Background(), userHistory("hello")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	req := client.requests[0]
	if len(req.Tools) != 1 || req.Tools[0].Function.Name != "add" {
		t.Fatalf("request tools = %+v", req.Tools)
	}
	var schema map[string]any
	if err := json.Unmarshal(req.Tools[0].Function.Parameters, &schema); err != nil {
		t.Fatalf("parameters not JSON: %v", err)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	client := &scriptedClient{responses: []*api.ChatResponse{assistantText("hi")}}
	loop := newLoop(t, client, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loop.Run(ctx, userHistory("hello"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
