package main

import (
	"bufio"
	"context"
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

func chatMain(args []string) {
	if err := runChat(args, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("chat failed: %v", err)
	}
}

func runChat(args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	common := registerCommon(fs)
	message := fs.String("m", "", "One-shot message; omit for an interactive session")
	maxTokens := fs.Int("max-tokens", 4000, "Completion token limit")
	temperature := fs.Float64("temperature", 0.7, "Sampling temperature")
	save := fs.Bool("save", false, "Flush the transcript when the session ends")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	task := "chat"
	if *message != "" {
		task = *message
	}
	recorder := session.NewRecorder(session.Metadata{
		Task:          task,
		Model:         cfg.Model,
		Endpoint:      cfg.URL,
		RequestedWith: cfg.RequestedWith,
	}, cfg.Token)

	send := func(history []api.Message) ([]api.Message, error) {
		req := api.ChatRequest{
			Model:       cfg.Model,
			Messages:    history,
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
			return history, err
		}
		turn.Usage = resp.Usage
		recorder.RecordTurn(turn)
		if len(resp.Choices) == 0 {
			return history, api.ErrNoChoices
		}
		reply := resp.Choices[0].Message
		fmt.Fprintln(out, reply.Content)
		fmt.Fprintln(out, report.UsageLine(resp.Usage))
		return append(history, reply), nil
	}

	var history []api.Message

	if *message != "" {
		history = append(history, api.Message{Role: api.RoleUser, Content: *message})
		if _, err := send(history); err != nil {
			return err
		}
		return flushIfRequested(recorder, cfg.ResponsesDir, *save, out)
	}

	fmt.Fprintln(out, report.Label("interactive chat; 'quit' to exit, 'clear' to reset history"))
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "quit", "exit":
			return flushIfRequested(recorder, cfg.ResponsesDir, *save, out)
		case "clear":
			history = nil
			fmt.Fprintln(out, report.Label("history cleared"))
			continue
		}

		history = append(history, api.Message{Role: api.RoleUser, Content: line})
		next, err := send(history)
		if err != nil {
			// Model errors end one exchange, not the whole session.
			fmt.Fprintln(out, report.Errorf("%v", err))
			history = history[:len(history)-1]
			continue
		}
		history = next
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flushIfRequested(recorder, cfg.ResponsesDir, *save, out)
}

func flushIfRequested(r *session.Recorder, dir string, save bool, out io.Writer) error {
	if !save || r.Len() == 0 {
		return nil
	}
	path, err := r.Flush(dir)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, report.Label("transcript saved to "+path))
	return nil
}
