package main

import (
	"flag"
	"time"

	"cody-cli/internal/api"
	"cody-cli/internal/config"
)

// commonFlags are the settings every subcommand accepts.
type commonFlags struct {
	cfgPath string
	envPath string
	model   string
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.cfgPath, "config", "", "Path to config file (default ~/.cody-cli/config.toml)")
	fs.StringVar(&c.envPath, "env", "", "Path to .env file (default ./.env)")
	fs.StringVar(&c.model, "model", "", "Model id (default from config)")
	return c
}

// load resolves config and validates that the API is reachable. The model
// flag, when set, overrides the configured model.
func (c *commonFlags) load() (config.Config, error) {
	cfg, err := config.Load(c.cfgPath, c.envPath)
	if err != nil {
		return cfg, err
	}
	if c.model != "" {
		cfg.Model = c.model
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newClient(cfg config.Config) (*api.Client, error) {
	return api.New(api.Options{
		Endpoint:      cfg.URL,
		AccessToken:   cfg.Token,
		RequestedWith: cfg.RequestedWith,
		Timeout:       time.Duration(cfg.RequestTimeoutSecs) * time.Second,
	})
}
