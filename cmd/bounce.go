package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/marcus/dtf/internal/bouncetracking"
	"github.com/marcus/dtf/internal/cdp"
	"github.com/marcus/dtf/internal/db"
	"github.com/marcus/dtf/internal/output"
	"github.com/spf13/cobra"
)

var bounceCmd = &cobra.Command{
	Use:     "bounce",
	Short:   "Bounce tracking mitigations",
	GroupID: "panes",
}

// connectOptions builds session options from the shared connection flags
// and the config.
func connectOptions(cmd *cobra.Command, configURL string, configHeadless bool) cdp.Options {
	url, _ := cmd.Flags().GetString("url")
	if url == "" {
		url = configURL
	}
	launch, _ := cmd.Flags().GetBool("launch")
	headless := configHeadless
	if cmd.Flags().Changed("headless") {
		headless, _ = cmd.Flags().GetBool("headless")
	}
	return cdp.Options{URL: url, Launch: launch, Headless: headless}
}

func addConnectFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", "", "Debugger endpoint, ws:// or http://host:port (default: config or DTF_DEBUGGER_URL)")
	cmd.Flags().Bool("launch", false, "Launch a local browser when no endpoint is set")
	cmd.Flags().Bool("headless", false, "Run a launched browser headless")
}

// printBounceView prints the report sections after the run button.
func printBounceView(v *bouncetracking.View) {
	sections := v.Sections()
	for i, s := range sections {
		if i == 0 {
			continue
		}
		if i == len(sections)-1 && v.ShowsTable() {
			if run, ok := v.LastRun(); ok {
				fmt.Println(output.FormatBounceRun(run))
				fmt.Println()
			}
		}
		fmt.Println(s)
	}
}

var bounceRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Force bounce tracking mitigations to run now",
	Long: `Asks the browser to run bounce tracking mitigations immediately and lists
the sites whose state was deleted. Each run is stored in the history database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		fail := func(code string, err error) error {
			if jsonOutput {
				output.JSONError(code, err.Error())
			} else {
				output.Error("%v", err)
			}
			return err
		}

		cfg, debug, err := loadConfig(cmd)
		if err != nil {
			return fail(output.ErrCodeInvalidInput, err)
		}
		logger, err := newLogger(debug, false)
		if err != nil {
			return err
		}
		defer logger.Sync()

		database, err := db.Initialize(getBaseDir())
		if err != nil {
			return fail(output.ErrCodeDatabaseError, err)
		}
		defer database.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		opts := connectOptions(cmd, cfg.DebuggerURL, cfg.Headless)
		opts.Logger = logger
		session, err := cdp.Connect(ctx, opts)
		if err != nil {
			return fail(output.ErrCodeCDPError, err)
		}
		defer session.Close()

		view := bouncetracking.NewView(nil, database, logger)
		run, err := view.ForceRun(ctx, session.Client())
		if err != nil {
			return fail(output.ErrCodeCDPError, err)
		}

		if jsonOutput {
			return output.JSON(run)
		}
		printBounceView(view)
		return nil
	},
}

var bounceLastCmd = &cobra.Command{
	Use:   "last",
	Short: "Show the most recent mitigations run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		database, err := db.Open(getBaseDir())
		if err != nil {
			if jsonOutput {
				output.JSONError(output.ErrCodeDatabaseError, err.Error())
			} else {
				output.Error("%v", err)
			}
			return err
		}
		defer database.Close()

		run, ok, err := database.LastBounceRun()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if !ok {
			if jsonOutput {
				output.JSONError(output.ErrCodeNotFound, "no mitigations run recorded")
				return nil
			}
			fmt.Println("No mitigations run recorded")
			return nil
		}
		if jsonOutput {
			return output.JSON(run)
		}

		view := bouncetracking.NewView(nil, nil, nil)
		view.Restore(run)
		if !view.ShowsTable() {
			fmt.Println(output.Subtle("Ran " + output.FormatTimeAgo(run.RanAt)))
		}
		printBounceView(view)
		return nil
	},
}

func init() {
	addConnectFlags(bounceRunCmd)
	bounceRunCmd.Flags().Duration("timeout", 30*time.Second, "Give up after this long")
	bounceRunCmd.Flags().Bool("json", false, "JSON output")
	bounceLastCmd.Flags().Bool("json", false, "JSON output")

	bounceCmd.AddCommand(bounceRunCmd, bounceLastCmd)
	rootCmd.AddCommand(bounceCmd)
}
