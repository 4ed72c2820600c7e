package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shulebot/shulebot/internal/catalog"
	"github.com/shulebot/shulebot/internal/config"
	"github.com/shulebot/shulebot/internal/db"
	"github.com/shulebot/shulebot/internal/importer"
)

var (
	rulesVersionName string
	rulesActivate    bool
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage the classification rule catalog",
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <glob>",
	Short: "Import pattern and template rows from YAML files",
	Long: `Imports classification patterns and prompt templates from YAML files into
a new CANDIDATE config version. The glob supports ** recursion, e.g.
"rules/**/*.yml". Pass --activate to promote the version immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cleanup, err := openCatalogStore()
		if err != nil {
			return err
		}
		defer cleanup()

		summary, err := importer.New(store).Import(cmd.Context(), args[0], importer.Options{
			VersionName:  rulesVersionName,
			Activate:     rulesActivate,
			ShowProgress: true,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Imported %d patterns and %d templates from %d files as version %s (%s)\n",
			summary.Patterns, summary.Templates, summary.Files, summary.VersionName, summary.VersionID)
		if summary.Activated {
			fmt.Println("Version activated.")
		} else {
			fmt.Printf("Activate it with: shulebot rules activate %s\n", summary.VersionID)
		}
		return nil
	},
}

var rulesActivateCmd = &cobra.Command{
	Use:   "activate <version-id>",
	Short: "Promote a config version to ACTIVE",
	Long:  `Promotes a CANDIDATE config version to ACTIVE, archiving the previously active one. The running server picks it up on its next cache recheck or an admin reload.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cleanup, err := openCatalogStore()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := store.ActivateVersion(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Version %s is now active.\n", args[0])
		return nil
	},
}

func openCatalogStore() (*catalog.Store, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	database, err := db.Open(filepath.Join(cfg.DataDir, "shulebot.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return catalog.NewStore(database), func() { database.Close() }, nil
}

func init() {
	rulesImportCmd.Flags().StringVar(&rulesVersionName, "name", "", "version name (defaults to the name in the files)")
	rulesImportCmd.Flags().BoolVar(&rulesActivate, "activate", false, "activate the imported version immediately")
	rulesCmd.AddCommand(rulesImportCmd)
	rulesCmd.AddCommand(rulesActivateCmd)
	rootCmd.AddCommand(rulesCmd)
}
