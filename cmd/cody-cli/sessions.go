package main

import (
	"flag"
	"io"
	"os"

	"cody-cli/internal/config"
	"cody-cli/internal/report"
	"cody-cli/internal/session"
)

func sessionsMain(args []string) {
	if err := runSessions(args, os.Stdout); err != nil {
		log.Fatalf("sessions failed: %v", err)
	}
}

func runSessions(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfgPath := fs.String("config", "", "Path to config file (default ~/.cody-cli/config.toml)")
	envPath := fs.String("env", "", "Path to .env file (default ./.env)")
	dir := fs.String("dir", "", "Transcript directory (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *dir == "" {
		// Listing transcripts needs no credentials, so load errors only
		// matter when the directory has to come from config.
		cfg, err := config.Load(*cfgPath, *envPath)
		if err != nil {
			return err
		}
		*dir = cfg.ResponsesDir
	}

	names, err := session.ListArtifacts(*dir)
	if err != nil {
		return err
	}
	report.ArtifactList(out, names)
	return nil
}
