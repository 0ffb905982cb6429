package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wharfctl/wharf/internal/engine"
	"github.com/wharfctl/wharf/internal/state"
)

var (
	destroyStage       string
	destroyAutoApprove bool
)

var destroyCmd = &cobra.Command{
	Use:   "destroy [project-dir]",
	Short: "Delete all deployed resources for a stage",
	RunE:  runDestroy,
}

func init() {
	destroyCmd.Flags().StringVar(&destroyStage, "stage", "dev", "Stage to destroy")
	destroyCmd.Flags().BoolVar(&destroyAutoApprove, "auto-approve", false, "Skip interactive approval")
}

func runDestroy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	proj, err := loadProject(args, destroyStage)
	if err != nil {
		return err
	}

	deployed, err := proj.store.Load(ctx, destroyStage)
	if err != nil {
		return err
	}
	if len(deployed.Resources) == 0 {
		fmt.Printf("Nothing deployed to stage %s.\n", destroyStage)
		return nil
	}

	if !destroyAutoApprove {
		fmt.Printf("This will delete %d resource(s) from stage %s. Continue? (y/n): ",
			len(deployed.Resources), destroyStage)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "yes" {
			fmt.Println("Destroy cancelled.")
			return nil
		}
	}

	if err := proj.store.Lock(destroyStage); err != nil {
		return err
	}
	defer proj.store.Unlock(destroyStage)

	client, err := proj.newClient(ctx)
	if err != nil {
		return err
	}

	deployer := engine.NewDeployer(client, nil, terminalUI{})
	if err := deployer.Destroy(ctx, deployed); err != nil {
		return err
	}

	if err := state.Record(ctx, proj.store, destroyStage, nil); err != nil {
		return fmt.Errorf("destroy succeeded but recording results failed: %w", err)
	}
	fmt.Printf("Stage %s destroyed.\n", destroyStage)
	return nil
}
