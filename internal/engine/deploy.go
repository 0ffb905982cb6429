package engine

import (
	"context"
	"fmt"

	"github.com/wharfctl/wharf/internal/ir"
	"github.com/wharfctl/wharf/internal/logging"
	"github.com/wharfctl/wharf/internal/model"
)

// DeployClient is the full cloud surface a deploy needs: the
// string-dispatched mutation methods plus the read probes used for
// diffing.
type DeployClient interface {
	CloudClient
	ReadClient
}

// Deployer runs the whole pipeline for one deploy attempt: order the
// graph, fill deferred fields, diff against remote state, sweep
// orphans, then execute.
type Deployer struct {
	client   DeployClient
	resolver *Resolver
	build    *BuildStage
	sweeper  *Sweeper
	ui       UI
}

func NewDeployer(client DeployClient, steps []BuildStep, ui UI) *Deployer {
	return &Deployer{
		client:   client,
		resolver: NewResolver(),
		build:    NewBuildStage(steps...),
		sweeper:  NewSweeper(),
		ui:       ui,
	}
}

// Deploy converges live infrastructure toward the declared graph and
// returns the resource records to persist for the next run's diff.
// On execution failure the error is returned and nothing should be
// persisted; the next run re-diffs against the last good record and
// completes the remaining convergence.
func (d *Deployer) Deploy(ctx context.Context, app *model.Application, deployed *ir.DeployedResources) ([]ir.RecordedResource, error) {
	if deployed == nil {
		deployed = ir.NewDeployedResources()
	}
	ordered := d.resolver.Order(app)
	logging.Debug("resolved resource graph", "resources", len(ordered))

	if err := d.build.Execute(app, ordered); err != nil {
		return nil, err
	}

	remote := NewRemoteState(d.client, deployed)
	plan, err := NewPlanner(remote).Plan(ctx, ordered)
	if err != nil {
		return nil, err
	}
	if err := d.sweeper.Sweep(plan, deployed); err != nil {
		return nil, err
	}
	logging.Debug("generated plan", "instructions", len(plan.Instructions))

	executor := NewExecutor(d.client, d.ui)
	if err := executor.Execute(ctx, plan); err != nil {
		return nil, fmt.Errorf("deploy failed: %w", err)
	}
	return executor.ResourceValues(), nil
}

// Destroy tears down everything the previous deploy recorded, in
// reverse creation order. It is a sweep against an empty plan.
func (d *Deployer) Destroy(ctx context.Context, deployed *ir.DeployedResources) error {
	if deployed == nil {
		return nil
	}
	plan := ir.NewPlan()
	if err := d.sweeper.Sweep(plan, deployed); err != nil {
		return err
	}
	executor := NewExecutor(d.client, d.ui)
	if err := executor.Execute(ctx, plan); err != nil {
		return fmt.Errorf("destroy failed: %w", err)
	}
	return nil
}
