package cli

import (
	"github.com/spf13/cobra"

	"github.com/wharfctl/wharf/internal/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "wharf",
	Short: "Declarative serverless deployments on AWS",
	Long: `Wharf plans and applies changes to an application's managed cloud
resources (functions, roles, APIs, event subscriptions), converging
live infrastructure toward the declared configuration while keeping
mutating calls to the minimum the diff requires.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(versionCmd)
}
