package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"cody-cli/internal/report"
)

func modelsMain(args []string) {
	if err := runModels(args, os.Stdout); err != nil {
		log.Fatalf("models failed: %v", err)
	}
}

func runModels(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	common := registerCommon(fs)
	filter := fs.String("filter", "", "Fuzzy-filter models by id")
	asJSON := fs.Bool("json", false, "Print the raw model list as JSON")
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

	list, stats, err := client.ListModels(context.Background())
	if err != nil {
		return err
	}
	models := report.FilterModels(list.Data, *filter)

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(models)
	}

	fmt.Fprintln(out, report.Heading(fmt.Sprintf("Models (%d)", len(models))))
	report.ModelsTable(out, models)
	fmt.Fprintln(out, report.Label(fmt.Sprintf("fetched in %d ms", stats.Latency.Milliseconds())))
	return nil
}
