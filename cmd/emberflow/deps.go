package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/emberflow/emberflow/pkg/browser"
	"github.com/emberflow/emberflow/pkg/persistence"
	"github.com/emberflow/emberflow/pkg/persistence/file"
)

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "database-url",
		Usage:    "Storage location for engine state (file://path)",
		Required: true,
		Sources:  cli.EnvVars("DATABASE_URL"),
	}
}

func logLevelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		Value:   "info",
		Sources: cli.EnvVars("LOG_LEVEL"),
	}
}

func newPersistence(logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	store, err := file.NewPersistence(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("initialize persistence: %w", err)
	}

	logger.Info("Persistence initialized", "database_url", databaseURL)

	return store, nil
}

// fileProfiles resolves profile IDs from a JSON array on disk. The
// profile inventory is owned by the desktop shell; this source covers
// standalone deployments.
type fileProfiles struct {
	profiles map[string]browser.Profile
}

func newFileProfiles(path string) (*fileProfiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	var entries []browser.Profile
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode profiles file: %w", err)
	}

	profiles := make(map[string]browser.Profile, len(entries))
	for _, profile := range entries {
		profiles[profile.ID] = profile
	}

	return &fileProfiles{profiles: profiles}, nil
}

func (f *fileProfiles) ProfileByID(_ context.Context, id string) (browser.Profile, error) {
	profile, ok := f.profiles[id]
	if !ok {
		return browser.Profile{}, fmt.Errorf("profile %s not found", id)
	}

	return profile, nil
}
