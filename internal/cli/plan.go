package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wharfctl/wharf/internal/appgraph"
	"github.com/wharfctl/wharf/internal/engine"
	"github.com/wharfctl/wharf/internal/ir"
	"github.com/wharfctl/wharf/internal/packager"
)

var planStage string

var planCmd = &cobra.Command{
	Use:   "plan [project-dir]",
	Short: "Show what a deploy would change",
	Long: `Builds the resource graph and diffs it against remote state without
executing anything. Only read calls are issued.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planStage, "stage", "dev", "Stage to plan against")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	proj, err := loadProject(args, planStage)
	if err != nil {
		return err
	}

	deployed, err := proj.store.Load(ctx, planStage)
	if err != nil {
		return err
	}

	client, err := proj.newClient(ctx)
	if err != nil {
		return err
	}

	app := appgraph.Build(proj.cfg, planStage)
	ordered := engine.NewResolver().Order(app)

	build := engine.NewBuildStage(engine.DefaultBuildSteps(packager.New(proj.dir))...)
	if err := build.Execute(app, ordered); err != nil {
		return err
	}

	remote := engine.NewRemoteState(client, deployed)
	plan, err := engine.NewPlanner(remote).Plan(ctx, ordered)
	if err != nil {
		return err
	}
	if err := engine.NewSweeper().Sweep(plan, deployed); err != nil {
		return err
	}

	renderPlan(plan)
	return nil
}

// renderPlan prints the plan's progress messages plus the cloud calls
// each step will make.
func renderPlan(plan *ir.Plan) {
	calls := 0
	for _, instr := range plan.Instructions {
		if msg, ok := plan.Messages[instr]; ok && msg != "" {
			fmt.Println(msg)
		}
		if call, ok := instr.(*ir.APICall); ok {
			fmt.Printf("    %s\n", call.Method)
			calls++
		}
	}
	if calls == 0 {
		fmt.Println("No changes. Deployed resources are up-to-date.")
		return
	}
	fmt.Printf("\nPlan: %d API call(s).\n", calls)
}
