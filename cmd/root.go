package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "shulebot",
	Short: "Conversational front-end for a school management platform",
	Long: `Shulebot turns free-form chat messages ("set Grade 3 tuition to 15000",
"how many students do we have") into structured school-management
operations. It routes each message through a versioned rule catalog with
an LLM fallback, collects missing parameters across turns and dispatches
the completed operation to the school backend.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".shulebot.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
