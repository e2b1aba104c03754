package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"cody-cli/internal/api"
	"cody-cli/internal/orchestrator"
	"cody-cli/internal/report"
	"cody-cli/internal/session"
	"cody-cli/internal/tools"
)

func toolsMain(args []string) {
	if err := runTools(args, os.Stdout); err != nil {
		log.Fatalf("tools failed: %v", err)
	}
}

func runTools(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("tools", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	common := registerCommon(fs)
	maxTurns := fs.Int("max-turns", 0, "Turn budget (default from config)")
	maxTokens := fs.Int("max-tokens", 4000, "Completion token limit")
	temperature := fs.Float64("temperature", 0.7, "Sampling temperature")
	save := fs.Bool("save", true, "Flush the transcript when the run ends")
	list := fs.Bool("list", false, "List registered tools and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	registry := tools.NewBuiltinRegistry()

	if *list {
		declarations, err := registry.Schemas()
		if err != nil {
			return err
		}
		for _, d := range declarations {
			fmt.Fprintf(out, "%s\n    %s\n", report.Heading(d.Function.Name), report.Label(d.Function.Description))
		}
		return nil
	}

	task := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if task == "" {
		return errors.New("usage: cody-cli tools [flags] <task>")
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	if *maxTurns <= 0 {
		*maxTurns = cfg.MaxTurns
	}

	recorder := session.NewRecorder(session.Metadata{
		Task:          task,
		Model:         cfg.Model,
		Endpoint:      cfg.URL,
		RequestedWith: cfg.RequestedWith,
	}, cfg.Token)

	loop, err := orchestrator.New(orchestrator.Options{
		Client:      client,
		Registry:    registry,
		Recorder:    recorder,
		Model:       cfg.Model,
		MaxTurns:    *maxTurns,
		MaxTokens:   *maxTokens,
		Temperature: *temperature,
	})
	if err != nil {
		return err
	}

	outcome, err := loop.Run(context.Background(), []api.Message{{Role: api.RoleUser, Content: task}})

	for _, turn := range recorder.Snapshot() {
		for _, call := range turn.ToolCalls {
			fmt.Fprintln(out, report.ToolCallLine(call.Name, call.ID, call.Failed, call.ErrorDetail, call.Duration))
		}
	}
	if err != nil {
		if flushErr := flushIfRequested(recorder, cfg.ResponsesDir, *save, out); flushErr != nil {
			log.Warnf("flush failed: %v", flushErr)
		}
		return err
	}

	if outcome.Aborted() {
		fmt.Fprintln(out, report.Errorf("turn budget exhausted after %d turns without a final answer", outcome.Turns))
	} else {
		fmt.Fprintln(out, outcome.Answer)
	}
	fmt.Fprintln(out, report.UsageLine(outcome.Usage))
	return flushIfRequested(recorder, cfg.ResponsesDir, *save, out)
}
