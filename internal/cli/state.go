package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var stateStage string

var stateCmd = &cobra.Command{
	Use:   "state [project-dir]",
	Short: "Show the deployed record for a stage",
	RunE:  runState,
}

func init() {
	stateCmd.Flags().StringVar(&stateStage, "stage", "dev", "Stage to show")
}

func runState(cmd *cobra.Command, args []string) error {
	proj, err := loadProject(args, stateStage)
	if err != nil {
		return err
	}

	deployed, err := proj.store.Load(cmd.Context(), stateStage)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(deployed, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode deployed record: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
