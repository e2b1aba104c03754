package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cody-cli/internal/api"
	"cody-cli/internal/report"
	"cody-cli/internal/session"
)

const askPreamble = "You are a senior software engineer helping with code review and refactoring."

func askMain(args []string) {
	if err := runAsk(args, os.Stdout); err != nil {
		log.Fatalf("ask failed: %v", err)
	}
}

// runAsk answers one question grounded in a local file. The API rejects the
// system role, so the instruction and the context both travel inside the
// user message.
func runAsk(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	common := registerCommon(fs)
	file := fs.String("file", "", "Context file to ground the answer in (required)")
	task := fs.String("task", "", "Task label for the transcript filename (default: the question)")
	maxTokens := fs.Int("max-tokens", 4000, "Completion token limit")
	temperature := fs.Float64("temperature", 0.7, "Sampling temperature")
	save := fs.Bool("save", true, "Flush the transcript when the answer arrives")
	if err := fs.Parse(args); err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return errors.New("usage: cody-cli ask -file <path> [flags] <question>")
	}
	if *file == "" {
		return errors.New("a context file is required: -file <path>")
	}
	contextContent, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read context file: %w", err)
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	label := *task
	if label == "" {
		label = question
	}
	recorder := session.NewRecorder(session.Metadata{
		Task:          label,
		Model:         cfg.Model,
		Endpoint:      cfg.URL,
		RequestedWith: cfg.RequestedWith,
	}, cfg.Token)

	prompt := fmt.Sprintf("%s You have been provided with %s to analyze.\n\nHere is the context you should analyze:\n\n```\n%s\n```\n\n%s",
		askPreamble, *file, contextContent, question)

	req := api.ChatRequest{
		Model:       cfg.Model,
		Messages:    []api.Message{{Role: api.RoleUser, Content: prompt}},
		MaxTokens:   *maxTokens,
		Temperature: *temperature,
	}
	started := time.Now().UTC()
	resp, stats, err := client.ChatCompletions(context.Background(), req)
	turn := session.Turn{StartedAt: started, Latency: stats.Latency, Request: req, Response: resp}
	if err != nil {
		turn.Failed = true
		turn.Error = err.Error()
		recorder.RecordTurn(turn)
		if flushErr := flushIfRequested(recorder, cfg.ResponsesDir, *save, out); flushErr != nil {
			log.Warnf("flush failed: %v", flushErr)
		}
		return err
	}
	turn.Usage = resp.Usage
	recorder.RecordTurn(turn)
	if len(resp.Choices) == 0 {
		if flushErr := flushIfRequested(recorder, cfg.ResponsesDir, *save, out); flushErr != nil {
			log.Warnf("flush failed: %v", flushErr)
		}
		return api.ErrNoChoices
	}

	fmt.Fprintln(out, resp.Choices[0].Message.Content)
	fmt.Fprintln(out, report.UsageLine(resp.Usage))
	return flushIfRequested(recorder, cfg.ResponsesDir, *save, out)
}
