package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wharfctl/wharf/internal/appgraph"
	"github.com/wharfctl/wharf/internal/engine"
	"github.com/wharfctl/wharf/internal/packager"
	"github.com/wharfctl/wharf/internal/state"
)

var deployStage string

var deployCmd = &cobra.Command{
	Use:   "deploy [project-dir]",
	Short: "Deploy the application",
	Long: `Builds the resource graph for the selected stage, diffs it against
what is currently deployed, and applies the resulting plan.`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringVar(&deployStage, "stage", "dev", "Stage to deploy")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	proj, err := loadProject(args, deployStage)
	if err != nil {
		return err
	}

	if err := proj.store.Lock(deployStage); err != nil {
		return err
	}
	defer proj.store.Unlock(deployStage)

	deployed, err := proj.store.Load(ctx, deployStage)
	if err != nil {
		return err
	}

	client, err := proj.newClient(ctx)
	if err != nil {
		return err
	}

	app := appgraph.Build(proj.cfg, deployStage)
	steps := engine.DefaultBuildSteps(packager.New(proj.dir))
	deployer := engine.NewDeployer(client, steps, terminalUI{})

	values, err := deployer.Deploy(ctx, app, deployed)
	if err != nil {
		return err
	}

	if err := state.Record(ctx, proj.store, deployStage, values); err != nil {
		return fmt.Errorf("deploy succeeded but recording results failed: %w", err)
	}

	fmt.Printf("\nResources deployed to stage %s:\n", deployStage)
	for _, record := range values {
		fmt.Printf("  - %s (%s)\n", record.Name(), record.ResourceType())
		if url := record.String("rest_api_url"); url != "" {
			fmt.Printf("    URL: %s\n", url)
		}
	}
	return nil
}
