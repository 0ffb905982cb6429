package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wharfctl/wharf/internal/awsapi"
	"github.com/wharfctl/wharf/internal/config"
	"github.com/wharfctl/wharf/internal/state"
)

// project bundles everything a command needs for one stage of one
// project directory.
type project struct {
	dir   string
	cfg   *config.Config
	stage *config.StageConfig
	store state.Store
}

func loadProject(args []string, stageName string) (*project, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	if len(args) > 0 {
		dir, err = filepath.Abs(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", args[0], err)
		}
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	store, err := state.NewStore(cfg.StateStore, dir)
	if err != nil {
		return nil, err
	}

	return &project{
		dir:   dir,
		cfg:   cfg,
		stage: cfg.Stage(stageName),
		store: store,
	}, nil
}

func (p *project) newClient(ctx context.Context) (*awsapi.Client, error) {
	return awsapi.New(ctx, p.stage.Region, p.stage.Profile)
}

// terminalUI streams executor progress messages to stdout.
type terminalUI struct{}

func (terminalUI) Write(msg string) {
	fmt.Println(msg)
}
