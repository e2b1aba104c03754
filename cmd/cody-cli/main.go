package main

import (
	"fmt"
	"io"
	"os"

	"cody-cli/internal/logger"
)

var log = logger.Named("main")

func main() {
	logger.Configure()
	if logFile, _, err := logger.SetupFile(logger.DefaultLogPath); err != nil {
		log.Warnf("failed to initialize log file: %v", err)
	} else {
		defer logFile.Close()
	}

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage(os.Stderr)
		os.Exit(2)
	}

	switch args[0] {
	case "models":
		modelsMain(args[1:])
	case "model":
		modelMain(args[1:])
	case "chat":
		chatMain(args[1:])
	case "tools":
		toolsMain(args[1:])
	case "context":
		contextMain(args[1:])
	case "ask":
		askMain(args[1:])
	case "sessions":
		sessionsMain(args[1:])
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage(os.Stderr)
		os.Exit(2)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `usage: cody-cli <command> [flags]

Commands:
  models     List available models
  model      Show one model by id
  chat       Chat with a model, one-shot or interactive
  tools      Run a task through the tool-calling loop
  context    Search code context across repositories
  ask        Answer a question grounded in a local context file
  sessions   List flushed session transcripts

Run 'cody-cli <command> -h' for command flags.
`)
}
