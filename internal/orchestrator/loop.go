package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cody-cli/internal/api"
	"cody-cli/internal/logger"
	"cody-cli/internal/session"
	"cody-cli/internal/tools"
)

var log = logger.Named("orchestrator")

// DefaultMaxTurns bounds the request/response rounds of one Run.
const DefaultMaxTurns = 5

// State names the loop's position in the turn state machine.
type State string

const (
	StateAwaitingModel  State = "AWAITING_MODEL"
	StateToolRequested  State = "TOOL_REQUESTED"
	StateExecutingTools State = "EXECUTING_TOOLS"
	StateFinalAnswer    State = "FINAL_ANSWER"
	StateAborted        State = "ABORTED"
)

// ChatClient is the transport dependency: one synchronous chat round trip.
type ChatClient interface {
	ChatCompletions(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, api.CallStats, error)
}

// Options configures a Loop. Client is required; Registry, Recorder and the
// request knobs are optional.
type Options struct {
	Client      ChatClient
	Registry    *tools.Registry
	Recorder    *session.Recorder
	Model       string
	MaxTurns    int
	MaxTokens   int
	Temperature float64
}

// Loop drives a multi-turn exchange: submit the conversation, execute any
// requested tools locally, fold the results back in and resubmit until the
// model produces a plain-text answer or the turn budget runs out. All work
// is synchronous and request-at-a-time; tools run sequentially in response
// order so recorded transcripts stay reproducible.
type Loop struct {
	client      ChatClient
	registry    *tools.Registry
	recorder    *session.Recorder
	model       string
	maxTurns    int
	maxTokens   int
	temperature float64
}

// Outcome is the terminal result of one Run. Aborted outcomes carry the
// partial history and every recorded turn; they are a result, not an error.
type Outcome struct {
	State   State
	Answer  string
	History []api.Message
	Turns   int
	Usage   api.Usage
}

// Aborted reports whether the loop hit its turn budget before a final
// answer.
func (o Outcome) Aborted() bool { return o.State == StateAborted }

// Final reports whether the loop reached a plain-text answer.
func (o Outcome) Final() bool { return o.State == StateFinalAnswer }

func New(opts Options) (*Loop, error) {
	if opts.Client == nil {
		return nil, errors.New("chat client is required")
	}
	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Loop{
		client:      opts.Client,
		registry:    opts.Registry,
		recorder:    opts.Recorder,
		model:       opts.Model,
		maxTurns:    maxTurns,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}, nil
}

// Run executes the state machine over the given starting history. The
// history grows with each assistant reply and tool result; on success the
// final assistant content is returned in the outcome. Transport and API
// failures abort the run and propagate after the failed turn is recorded;
// per-invocation tool failures never do.
func (l *Loop) Run(ctx context.Context, history []api.Message) (Outcome, error) {
	outcome := Outcome{State: StateAwaitingModel, History: history}

	var declarations []api.ToolSchema
	if l.registry != nil {
		var err error
		declarations, err = l.registry.Schemas()
		if err != nil {
			return outcome, err
		}
	}

	for turn := 0; turn < l.maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		req := api.ChatRequest{
			Model:       l.model,
			Messages:    append([]api.Message(nil), outcome.History...),
			MaxTokens:   l.maxTokens,
			Temperature: l.temperature,
			Tools:       declarations,
		}

		started := time.Now().UTC()
		resp, stats, err := l.client.ChatCompletions(ctx, req)
		outcome.Turns = turn + 1

		record := session.Turn{
			StartedAt: started,
			Latency:   stats.Latency,
			Request:   req,
			Response:  resp,
		}
		if err != nil {
			record.Failed = true
			record.Error = err.Error()
			l.record(record)
			log.WithField("turn", outcome.Turns).Errorf("model call failed: %v", err)
			return outcome, err
		}
		record.Usage = resp.Usage
		outcome.Usage.Add(resp.Usage)

		if len(resp.Choices) == 0 {
			record.Failed = true
			record.Error = api.ErrNoChoices.Error()
			l.record(record)
			return outcome, api.ErrNoChoices
		}

		msg := resp.Choices[0].Message
		if msg.Content == "" && len(msg.ToolCalls) == 0 {
			record.Failed = true
			record.Error = api.ErrEmptyMessage.Error()
			l.record(record)
			return outcome, api.ErrEmptyMessage
		}
		outcome.History = append(outcome.History, msg)

		if len(msg.ToolCalls) == 0 {
			outcome.State = StateFinalAnswer
			outcome.Answer = msg.Content
			l.record(record)
			log.WithFields(logger.Fields{
				"turns":  outcome.Turns,
				"tokens": outcome.Usage.TotalTokens,
			}).Info("final answer")
			return outcome, nil
		}

		// Tool calls take precedence even when content is present; the
		// interim text stays in history via the appended message above.
		outcome.State = StateToolRequested
		log.WithFields(logger.Fields{
			"turn":  outcome.Turns,
			"calls": len(msg.ToolCalls),
		}).Info("tool invocations requested")

		outcome.State = StateExecutingTools
		for _, call := range msg.ToolCalls {
			result := l.execute(ctx, call)
			record.ToolCalls = append(record.ToolCalls, result)
			outcome.History = append(outcome.History, resultMessage(call, result))
		}
		l.record(record)
		outcome.State = StateAwaitingModel
	}

	outcome.State = StateAborted
	log.WithField("max_turns", l.maxTurns).Warn("turn budget exhausted")
	return outcome, nil
}

// execute resolves and runs one tool invocation. Failures are isolated:
// an unknown tool, malformed arguments, or an executor error all produce a
// failed result so the conversation stays resumable with partial results.
func (l *Loop) execute(ctx context.Context, call api.ToolCall) session.ToolCallRecord {
	record := session.ToolCallRecord{
		ID:        call.ID,
		Name:      call.Function.Name,
		Arguments: call.Function.Arguments,
	}
	started := time.Now()
	defer func() { record.Duration = time.Since(started) }()

	fail := func(detail string) session.ToolCallRecord {
		record.Failed = true
		record.ErrorDetail = detail
		log.WithFields(logger.Fields{
			"tool": record.Name,
			"id":   record.ID,
		}).Warnf("tool invocation failed: %s", detail)
		return record
	}

	if l.registry == nil {
		return fail("no tools registered")
	}
	tool, err := l.registry.Resolve(call.Function.Name)
	if err != nil {
		return fail(err.Error())
	}
	args, err := tool.ParseArgs(call.Function.Arguments)
	if err != nil {
		return fail(err.Error())
	}
	output, err := tool.Execute(ctx, args)
	if err != nil {
		return fail(err.Error())
	}
	record.Output = output
	return record
}

// resultMessage folds a tool result back into the conversation, keeping the
// invocation_id linkage.
func resultMessage(call api.ToolCall, result session.ToolCallRecord) api.Message {
	content := result.Output
	if result.Failed {
		encoded, err := json.Marshal(map[string]string{"error": result.ErrorDetail})
		if err != nil {
			encoded = []byte(fmt.Sprintf(`{"error":%q}`, result.ErrorDetail))
		}
		content = string(encoded)
	}
	return api.Message{
		Role:       api.RoleToolResult,
		ToolCallID: call.ID,
		Name:       call.Function.Name,
		Content:    content,
	}
}

func (l *Loop) record(t session.Turn) {
	if l.recorder == nil {
		return
	}
	l.recorder.RecordTurn(t)
}
