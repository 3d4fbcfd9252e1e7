package cmd

import (
	"fmt"
	"os"

	"github.com/marcus/dtf/internal/config"
	"github.com/marcus/dtf/internal/db"
	"github.com/marcus/dtf/internal/git"
	"github.com/marcus/dtf/internal/output"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Initialize a dtf project",
	Long:    `Creates the local .dtf directory, the history database and a default config.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		database, err := db.Initialize(baseDir)
		if err != nil {
			output.Error("failed to initialize database: %v", err)
			return err
		}
		defer database.Close()

		if _, err := os.Stat(config.Path(baseDir)); err == nil {
			output.Warning("%s already exists", config.Path(baseDir))
		} else {
			cfg, err := config.Load(baseDir)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			if url, _ := cmd.Flags().GetString("url"); url != "" {
				cfg.DebuggerURL = url
			}
			if err := config.Save(baseDir, cfg); err != nil {
				output.Error("failed to write config: %v", err)
				return err
			}
		}

		fmt.Println("INITIALIZED .dtf/")
		fmt.Printf("Database: %s\n", db.Path(baseDir))

		// Keep history and logs out of the repository
		if git.IsRepo(baseDir) {
			if added, err := git.Ignore(baseDir, ".dtf/"); err != nil {
				output.Warning("could not update .gitignore: %v", err)
			} else if added {
				fmt.Println("Added .dtf/ to .gitignore")
			}
		}
		return nil
	},
}

func init() {
	initCmd.Flags().String("url", "", "Default debugger endpoint to store in the config")
	rootCmd.AddCommand(initCmd)
}
