package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/marcus/dtf/internal/config"
	"github.com/marcus/dtf/internal/logging"
	"github.com/marcus/dtf/internal/models"
	"github.com/marcus/dtf/internal/suggest"
	"github.com/marcus/dtf/internal/workdir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	versionStr string
	baseDir    string
)

// SetVersion sets the version string
func SetVersion(v string) {
	versionStr = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "dtf",
	Short: "Terminal DevTools front end",
	Long: `dtf - A terminal front end for a Chrome DevTools Protocol endpoint.

Shows filled address forms with the text each field produced, manages network
request blocking, forces bounce tracking mitigations and builds visual logging
configs.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// nameWithAliases returns "name, alias1, alias2" if aliases exist, else just "name"
func nameWithAliases(cmd *cobra.Command) string {
	if len(cmd.Aliases) > 0 {
		return cmd.Name() + ", " + strings.Join(cmd.Aliases, ", ")
	}
	return cmd.Name()
}

func init() {
	cobra.OnInitialize(initBaseDir)

	cobra.AddTemplateFunc("nameWithAliases", nameWithAliases)

	// Custom usage template that shows aliases inline
	usageTemplate := `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{if eq (len .Groups) 0}}

Available Commands:{{range $cmds}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{else}}{{range $group := .Groups}}

{{.Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{end}}{{if not .AllChildCommandsHaveGroup}}

Additional Commands:{{range $cmds}}{{if (and (eq .GroupID "") (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .CommandPath .CommandPathPadding}} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`
	cobra.AddTemplateFunc("add", func(a, b int) int { return a + b })
	rootCmd.SetUsageTemplate(usageTemplate)

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "panes", Title: "Pane Commands:"},
		&cobra.Group{ID: "logging", Title: "Visual Logging Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")

	rootCmd.SetFlagErrorFunc(flagError)

	rootCmd.PersistentFlags().Bool("debug", false, "Debug logging (also DTF_DEBUG=1)")
	rootCmd.PersistentFlags().String("dir", "", "Project directory holding .dtf/ (default: nearest ancestor with .dtf/, else working directory)")
}

// flagError adds "did you mean" suggestions to unknown flag errors.
func flagError(cmd *cobra.Command, err error) error {
	name, ok := strings.CutPrefix(err.Error(), "unknown flag: ")
	if !ok {
		return err
	}
	msg := err.Error()
	if hint := suggest.FlagHint(name); hint != "" {
		msg += "\nHint: " + hint
	} else {
		var valid []string
		cmd.Flags().VisitAll(func(f *pflag.Flag) { valid = append(valid, f.Name) })
		if s := suggest.Flag(name, valid); len(s) > 0 {
			msg += "\nDid you mean: " + strings.Join(s, ", ")
		}
	}
	return errors.New(msg)
}

func initBaseDir() {
	if dir, _ := rootCmd.PersistentFlags().GetString("dir"); dir != "" {
		baseDir = dir
		return
	}
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine working directory: %v\n", err)
		os.Exit(1)
	}
	baseDir = workdir.ResolveBaseDir(wd)
}

// getBaseDir returns the base directory for the project
func getBaseDir() string {
	return baseDir
}

// loadConfig reads the project config with environment overrides applied and
// reports whether debug logging is on.
func loadConfig(cmd *cobra.Command) (*models.Config, bool, error) {
	cfg, err := config.Load(getBaseDir())
	if err != nil {
		return nil, false, err
	}
	envDebug := config.ApplyEnv(cfg)
	debug, _ := cmd.Flags().GetBool("debug")
	return cfg, debug || envDebug, nil
}

// newLogger builds the zap logger for a command. The dashboard logs to a
// file so the terminal stays with the UI.
func newLogger(debug, toFile bool) (*zap.Logger, error) {
	if toFile {
		if err := os.MkdirAll(config.Dir(getBaseDir()), 0755); err != nil {
			return nil, err
		}
		return logging.NewFile(config.LogPath(getBaseDir()), debug)
	}
	return logging.New(debug)
}
