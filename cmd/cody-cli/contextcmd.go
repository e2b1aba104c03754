package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"cody-cli/internal/api"
	"cody-cli/internal/report"
)

func contextMain(args []string) {
	if err := runContext(args, os.Stdout); err != nil {
		log.Fatalf("context failed: %v", err)
	}
}

func runContext(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("context", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	common := registerCommon(fs)
	var repos csvSlice
	var repoIDs csvSlice
	var patterns stringSlice
	fs.Var(&repos, "repo", "Repository name (repeatable or comma-separated)")
	fs.Var(&repoIDs, "repo-id", "Repository id (repeatable or comma-separated)")
	fs.Var(&patterns, "file-pattern", "Restrict results to matching file paths (repeatable)")
	codeCount := fs.Int("code-results", 10, "Maximum code results")
	textCount := fs.Int("text-results", 5, "Maximum text results")
	width := fs.Int("width", 100, "Chunk display width in columns")
	asJSON := fs.Bool("json", false, "Print raw results as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		return errors.New("usage: cody-cli context -repo <name> [flags] <query>")
	}
	if len(repos) == 0 && len(repoIDs) == 0 {
		return errors.New("at least one -repo or -repo-id is required")
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	req := api.ContextRequest{
		Query:            query,
		CodeResultsCount: *codeCount,
		TextResultsCount: *textCount,
		FilePatterns:     patterns,
		Version:          "2.0",
	}
	for _, name := range repos {
		req.Repos = append(req.Repos, api.RepoSpec{Name: name})
	}
	for _, id := range repoIDs {
		req.Repos = append(req.Repos, api.RepoSpec{ID: id})
	}

	resp, stats, err := client.SearchContext(context.Background(), req)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp.Results)
	}

	fmt.Fprintln(out, report.Heading(fmt.Sprintf("Context results (%d)", len(resp.Results))))
	report.ContextResults(out, resp.Results, *width)
	fmt.Fprintln(out, report.Label(fmt.Sprintf("searched in %d ms", stats.Latency.Milliseconds())))
	return nil
}
