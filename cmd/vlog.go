package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/marcus/dtf/internal/output"
	"github.com/marcus/dtf/internal/suggest"
	"github.com/marcus/dtf/internal/visuallogging"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
)

var vlogCmd = &cobra.Command{
	Use:     "vlog",
	Short:   "Visual logging element names and configs",
	GroupID: "logging",
}

func vlogErrCode(err error) string {
	if errors.Is(err, visuallogging.ErrUnknownElement) {
		return output.ErrCodeNotFound
	}
	return output.ErrCodeInvalidInput
}

func reportVlogErr(cmd *cobra.Command, err error) error {
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		output.JSONError(vlogErrCode(err), err.Error())
	} else {
		output.Error("%v", err)
	}
	return err
}

type bindingJSON struct {
	Name string `json:"name"`
	VE   string `json:"ve"`
}

var vlogListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List builder names and the element each one logs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		markdown, _ := cmd.Flags().GetBool("markdown")
		table := visuallogging.DefaultTable()

		if jsonOutput {
			out := make([]bindingJSON, 0, table.Len())
			for _, b := range table.Bindings() {
				out = append(out, bindingJSON{Name: b.Name, VE: b.VE.String()})
			}
			return output.JSON(out)
		}

		if markdown {
			rows := make([][]string, 0, table.Len())
			for _, name := range table.Names() {
				b, _ := table.Lookup(name)
				rows = append(rows, []string{"`" + name + "`", b.VE.String()})
			}
			md := output.MarkdownTable([]string{"Builder", "Visual element"}, rows)
			if !output.IsTerminal() {
				fmt.Print(md)
				return nil
			}
			rendered, err := output.RenderMarkdown(md)
			if err != nil {
				fmt.Print(md)
				return nil
			}
			fmt.Print(rendered)
			return nil
		}

		for _, name := range table.Names() {
			b, _ := table.Lookup(name)
			fmt.Printf("%-32s %s\n", name, output.Subtle(b.VE.String()))
		}
		return nil
	},
}

var vlogFindCmd = &cobra.Command{
	Use:   "find <query>",
	Short: "Fuzzy search builder names",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		limit, _ := cmd.Flags().GetInt("limit")
		table := visuallogging.DefaultTable()

		matches := fuzzy.Find(args[0], table.Names())
		if limit > 0 && len(matches) > limit {
			matches = matches[:limit]
		}

		if jsonOutput {
			out := make([]bindingJSON, 0, len(matches))
			for _, m := range matches {
				b, _ := table.Lookup(m.Str)
				out = append(out, bindingJSON{Name: m.Str, VE: b.VE.String()})
			}
			return output.JSON(out)
		}
		if len(matches) == 0 {
			fmt.Printf("No builder matches %q\n", args[0])
			return nil
		}
		for _, m := range matches {
			b, _ := table.Lookup(m.Str)
			fmt.Printf("%-32s %s\n", m.Str, output.Subtle(b.VE.String()))
		}
		return nil
	},
}

var vlogBuildCmd = &cobra.Command{
	Use:   "build <name>",
	Short: "Build the config string for a named element",
	Example: `  dtf vlog build dropDownButton --context language --track click,keydown=Enter
  dtf vlog build treeItem --parent elementsTreeOutline`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		ctxValue, _ := cmd.Flags().GetString("context")
		parent, _ := cmd.Flags().GetString("parent")
		track, _ := cmd.Flags().GetString("track")

		table := visuallogging.DefaultTable()
		b, err := table.Builder(args[0])
		if err != nil {
			if near := suggest.Closest(args[0], table.Names()); len(near) > 0 {
				err = fmt.Errorf("%w (did you mean %s?)", err, strings.Join(near, ", "))
			}
			return reportVlogErr(cmd, err)
		}
		if ctxValue != "" {
			b.Context(ctxValue)
		}
		if parent != "" {
			b.Parent(parent)
		}
		if track != "" {
			opts, err := visuallogging.ParseTrack(track)
			if err != nil {
				return reportVlogErr(cmd, err)
			}
			b.Track(opts)
		}

		if jsonOutput {
			return output.JSON(map[string]string{"name": args[0], "ve": b.VisualElement().String(), "config": b.String()})
		}
		fmt.Println(b.String())
		return nil
	},
}

var vlogParseCmd = &cobra.Command{
	Use:   "parse <config>",
	Short: "Parse a config string back into its components",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		cfg, err := visuallogging.ParseConfig(args[0])
		if err != nil {
			return reportVlogErr(cmd, err)
		}

		if jsonOutput {
			out := map[string]string{"ve": cfg.VE.String()}
			if cfg.Context != "" {
				out["context"] = cfg.Context
			}
			if cfg.Parent != "" {
				out["parent"] = cfg.Parent
			}
			if !cfg.Track.IsZero() {
				out["track"] = cfg.Track.String()
			}
			return output.JSON(out)
		}

		fmt.Printf("ve:      %s\n", cfg.VE)
		if cfg.Context != "" {
			fmt.Printf("context: %s\n", cfg.Context)
		}
		if cfg.Parent != "" {
			fmt.Printf("parent:  %s\n", cfg.Parent)
		}
		if !cfg.Track.IsZero() {
			fmt.Printf("track:   %s\n", cfg.Track)
		}
		fmt.Println(output.Subtle("canonical: " + cfg.Builder().String()))
		return nil
	},
}

func init() {
	vlogListCmd.Flags().Bool("markdown", false, "Render as a markdown table")
	vlogFindCmd.Flags().Int("limit", 10, "Maximum matches (0 for all)")
	vlogBuildCmd.Flags().String("context", "", "Context value (a string or a registered provider name)")
	vlogBuildCmd.Flags().String("parent", "", "Parent provider name")
	vlogBuildCmd.Flags().String("track", "", "Tracked events, e.g. click,keydown=Enter|Escape")

	for _, c := range []*cobra.Command{vlogListCmd, vlogFindCmd, vlogBuildCmd, vlogParseCmd} {
		c.Flags().Bool("json", false, "JSON output")
		vlogCmd.AddCommand(c)
	}
	rootCmd.AddCommand(vlogCmd)
}
