package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"

	"cody-cli/internal/report"
)

func modelMain(args []string) {
	if err := runModel(args, os.Stdout); err != nil {
		log.Fatalf("model failed: %v", err)
	}
}

func runModel(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("model", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	common := registerCommon(fs)
	asJSON := fs.Bool("json", false, "Print the model descriptor as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: cody-cli model <model-id>")
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	model, _, err := client.GetModel(context.Background(), fs.Arg(0))
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(model)
	}
	report.ModelDetail(out, model)
	return nil
}
