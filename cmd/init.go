package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shulebot/shulebot/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize shulebot configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure the LLM provider, school backend and server, and generates a .shulebot.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
