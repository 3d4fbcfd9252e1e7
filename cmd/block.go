package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/marcus/dtf/internal/config"
	"github.com/marcus/dtf/internal/db"
	"github.com/marcus/dtf/internal/input"
	"github.com/marcus/dtf/internal/models"
	"github.com/marcus/dtf/internal/network"
	"github.com/marcus/dtf/internal/output"
	"github.com/spf13/cobra"
)

var blockCmd = &cobra.Command{
	Use:   "block",
	Short: "Manage network request blocking patterns",
	Long: `Edits the blocking patterns stored in .dtf/config.json. A running monitor
picks changes up and re-applies them to every attached target.

Patterns use '*' as a wildcard and match anywhere in the URL.`,
	GroupID: "panes",
}

// updateBlocking loads the stored patterns, applies fn and saves the result.
// Nothing is written when fn fails.
func updateBlocking(fn func(b *network.Blocking) error) error {
	return config.Update(getBaseDir(), func(cfg *models.Config) error {
		b := network.NewBlocking(cfg.RequestBlockingEnabled, cfg.BlockedPatterns, nil)
		if err := fn(b); err != nil {
			return err
		}
		cfg.BlockedPatterns = b.Patterns()
		cfg.RequestBlockingEnabled = b.Enabled()
		return nil
	})
}

// blockingErrCode maps pattern errors to structured output codes.
func blockingErrCode(err error) string {
	switch {
	case errors.Is(err, network.ErrPatternNotFound):
		return output.ErrCodeNotFound
	case errors.Is(err, network.ErrDuplicatePattern):
		return output.ErrCodeConflict
	case errors.Is(err, network.ErrEmptyPattern), errors.Is(err, input.ErrStdinReused), errors.Is(err, fs.ErrNotExist):
		return output.ErrCodeInvalidInput
	default:
		return output.ErrCodeDatabaseError
	}
}

func reportBlockingErr(cmd *cobra.Command, err error) error {
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		output.JSONError(blockingErrCode(err), err.Error())
	} else {
		output.Error("%v", err)
	}
	return err
}

func promptPattern() (string, error) {
	var pattern string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Pattern").
			Description("Text pattern to block matching requests; use * for wildcard").
			Placeholder("example.com/*.js").
			Value(&pattern).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return network.ErrEmptyPattern
				}
				return nil
			}),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return pattern, nil
}

var blockAddCmd = &cobra.Command{
	Use:   "add [pattern...]",
	Short: "Add blocking patterns (prompts when none given)",
	Long: `Adds blocking patterns. A pattern of - reads one pattern per line from
stdin and @file reads them from a file; lines starting with # are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		patterns, err := input.ExpandValues(args, os.Stdin)
		if err != nil {
			return reportBlockingErr(cmd, err)
		}
		if len(args) == 0 {
			if !output.IsTerminal() {
				return reportBlockingErr(cmd, network.ErrEmptyPattern)
			}
			p, err := promptPattern()
			if err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return nil
				}
				return reportBlockingErr(cmd, err)
			}
			patterns = []string{p}
		}

		err = updateBlocking(func(b *network.Blocking) error {
			for _, p := range patterns {
				if err := b.Add(p); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return reportBlockingErr(cmd, err)
		}
		for _, p := range patterns {
			output.Success("ADDED %s", strings.TrimSpace(p))
		}
		return nil
	},
}

var blockRmCmd = &cobra.Command{
	Use:     "rm <pattern...>",
	Aliases: []string{"remove"},
	Short:   "Remove blocking patterns",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patterns, err := input.ExpandValues(args, os.Stdin)
		if err != nil {
			return reportBlockingErr(cmd, err)
		}
		err = updateBlocking(func(b *network.Blocking) error {
			for _, p := range patterns {
				if err := b.Remove(p); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return reportBlockingErr(cmd, err)
		}
		for _, p := range patterns {
			output.Success("REMOVED %s", p)
		}
		return nil
	},
}

var blockToggleCmd = &cobra.Command{
	Use:   "toggle <pattern>",
	Short: "Flip whether a pattern is enabled",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var enabled bool
		err := updateBlocking(func(b *network.Blocking) error {
			var err error
			enabled, err = b.Toggle(args[0])
			return err
		})
		if err != nil {
			return reportBlockingErr(cmd, err)
		}
		state := "DISABLED"
		if enabled {
			state = "ENABLED"
		}
		output.Success("%s %s", state, args[0])
		return nil
	},
}

func setBlockingEnabled(enabled bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.SetRequestBlockingEnabled(getBaseDir(), enabled); err != nil {
			return reportBlockingErr(cmd, err)
		}
		if enabled {
			output.Success("Request blocking enabled")
		} else {
			output.Success("Request blocking disabled")
		}
		return nil
	}
}

var blockEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Turn request blocking on",
	Args:  cobra.NoArgs,
	RunE:  setBlockingEnabled(true),
}

var blockDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn request blocking off without losing patterns",
	Args:  cobra.NoArgs,
	RunE:  setBlockingEnabled(false),
}

var blockClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every blocking pattern",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var n int
		err := updateBlocking(func(b *network.Blocking) error {
			n = len(b.Patterns())
			b.Clear()
			return nil
		})
		if err != nil {
			return reportBlockingErr(cmd, err)
		}
		output.Success("CLEARED %d patterns", n)
		return nil
	},
}

// patternListing is the JSON shape of block list.
type patternListing struct {
	Enabled  bool             `json:"enabled"`
	Patterns []patternSummary `json:"patterns"`
}

type patternSummary struct {
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
	Blocked int    `json:"blocked"`
}

var blockListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List blocking patterns with recorded block counts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		baseDir := getBaseDir()

		patterns, enabled, err := config.GetBlockedPatterns(baseDir)
		if err != nil {
			return reportBlockingErr(cmd, err)
		}

		// Counts come from monitor runs; a project that never ran one has none.
		counts := make(map[string]int, len(patterns))
		database, err := db.Open(baseDir)
		switch {
		case err == nil:
			defer database.Close()
			for _, p := range patterns {
				n, err := database.CountBlockedRequests(p.URL)
				if err != nil {
					return reportBlockingErr(cmd, err)
				}
				counts[p.URL] = n
			}
		case !errors.Is(err, db.ErrNotInitialized):
			return reportBlockingErr(cmd, err)
		}

		if jsonOutput {
			listing := patternListing{Enabled: enabled, Patterns: []patternSummary{}}
			for _, p := range patterns {
				listing.Patterns = append(listing.Patterns, patternSummary{URL: p.URL, Enabled: p.Enabled, Blocked: counts[p.URL]})
			}
			return output.JSON(listing)
		}

		check := "[ ]"
		if enabled {
			check = "[x]"
		}
		fmt.Printf("%s Enable network request blocking\n", check)
		if len(patterns) == 0 {
			fmt.Println(output.Subtle("  No blocking patterns"))
			return nil
		}
		for _, p := range patterns {
			fmt.Println("  " + output.FormatPattern(p, counts[p.URL]))
		}
		return nil
	},
}

var blockStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the most blocked URLs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		limit, _ := cmd.Flags().GetInt("limit")

		database, err := db.Open(getBaseDir())
		if err != nil {
			return reportBlockingErr(cmd, err)
		}
		defer database.Close()

		total, err := database.CountBlockedRequests("")
		if err != nil {
			return reportBlockingErr(cmd, err)
		}
		top, err := database.TopBlockedURLs(limit)
		if err != nil {
			return reportBlockingErr(cmd, err)
		}

		if jsonOutput {
			return output.JSON(map[string]interface{}{"total": total, "urls": top})
		}
		fmt.Printf("%d blocked requests\n", total)
		if len(top) > 0 {
			fmt.Print(output.SectionHeader("Most blocked"))
			for _, c := range top {
				fmt.Printf("  %5d  %s\n", c.Count, c.URL)
			}
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{blockAddCmd, blockRmCmd, blockToggleCmd, blockEnableCmd, blockDisableCmd, blockClearCmd, blockListCmd, blockStatsCmd} {
		c.Flags().Bool("json", false, "JSON output")
		blockCmd.AddCommand(c)
	}
	blockStatsCmd.Flags().Int("limit", 10, "Number of URLs to show")
	rootCmd.AddCommand(blockCmd)
}
