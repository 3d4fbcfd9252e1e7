package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/marcus/dtf/internal/autofill"
	"github.com/marcus/dtf/internal/dateparse"
	"github.com/marcus/dtf/internal/db"
	"github.com/marcus/dtf/internal/events"
	"github.com/marcus/dtf/internal/models"
	"github.com/marcus/dtf/internal/output"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var autofillCmd = &cobra.Command{
	Use:     "autofill",
	Aliases: []string{"af"},
	Short:   "Inspect filled address forms",
	GroupID: "panes",
}

// fieldsFlag collects repeated --field values in order.
type fieldsFlag []models.FilledField

var _ pflag.Value = (*fieldsFlag)(nil)

func (f *fieldsFlag) String() string {
	parts := make([]string, 0, len(*f))
	for _, ff := range *f {
		if ff.AutofillType != "" {
			parts = append(parts, ff.AutofillType+"="+ff.Value)
		} else {
			parts = append(parts, ff.Value)
		}
	}
	return strings.Join(parts, ",")
}

func (f *fieldsFlag) Set(s string) error {
	*f = append(*f, parseField(s))
	return nil
}

func (f *fieldsFlag) Type() string { return "field" }

// parseField reads "TYPE=value" or a bare value. TYPE is only recognized
// when it looks like an autofill type such as ADDRESS_HOME_CITY.
func parseField(s string) models.FilledField {
	if typ, value, ok := strings.Cut(s, "="); ok && isAutofillType(typ) {
		return models.FilledField{AutofillType: typ, Value: value, FillingStrategy: models.FillingStrategyAutofillInferred}
	}
	return models.FilledField{Value: s, FillingStrategy: models.FillingStrategyAutofillInferred}
}

func isAutofillType(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}

// unescapeAddress turns the escapes a shell user can type into the
// characters a canonical address holds.
func unescapeAddress(s string) string {
	return strings.NewReplacer(`\n`, "\n", `\t`, "\t").Replace(s)
}

var autofillMatchCmd = &cobra.Command{
	Use:   "match",
	Short: "Show which parts of an address each field value produced",
	Example: `  dtf autofill match --address 'Crocodile Dundee\nOutback Road 1\nMelbourne' \
    --field NAME_FULL='Crocodile Dundee' --field ADDRESS_HOME_CITY=Melbourne`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		address, _ := cmd.Flags().GetString("address")
		fold, _ := cmd.Flags().GetBool("fold")
		fields := *cmd.Flags().Lookup("field").Value.(*fieldsFlag)

		if address == "" {
			err := errors.New("--address is required")
			if jsonOutput {
				output.JSONError(output.ErrCodeInvalidInput, err.Error())
			} else {
				output.Error("%v", err)
			}
			return err
		}
		address = unescapeAddress(address)

		for i := range fields {
			fields[i].Name = fmt.Sprintf("field%d", i)
		}
		matches := autofill.Matcher{FoldSeparators: fold}.Compute(address, fields)
		ev := models.AddressFormFilledEvent{
			Address:      address,
			FilledFields: fields,
			Matches:      matches,
		}

		if jsonOutput {
			return output.JSON(autofill.UTF16Event(ev))
		}
		printEvent(ev)
		return nil
	},
}

var autofillReplayCmd = &cobra.Command{
	Use:   "replay <file|->",
	Short: "Forward recorded Autofill.addressFormFilled params",
	Long: `Reads one Autofill.addressFormFilled params object, or a JSON array of
them, and forwards each through the same path live events take.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		record, _ := cmd.Flags().GetBool("record")
		target, _ := cmd.Flags().GetString("target")

		fail := func(code string, err error) error {
			if jsonOutput {
				output.JSONError(code, err.Error())
			} else {
				output.Error("%v", err)
			}
			return err
		}

		data, err := readInput(args[0])
		if err != nil {
			return fail(output.ErrCodeInvalidInput, err)
		}
		payloads, err := splitPayloads(data)
		if err != nil {
			return fail(output.ErrCodeInvalidInput, err)
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

		opts := []autofill.Option{autofill.WithMatcher(autofill.Matcher{FoldSeparators: !cfg.LiteralMatches})}
		if record {
			database, err := db.Initialize(getBaseDir())
			if err != nil {
				return fail(output.ErrCodeDatabaseError, err)
			}
			defer database.Close()
			opts = append(opts, autofill.WithRecorder(database))
		}

		bus := events.NewBus[models.AddressFormFilledEvent](events.KindAddressFormFilled, len(payloads))
		manager := autofill.NewManager(bus, nil, logger, opts...)

		out, components, err := replayPayloads(context.Background(), manager, target, payloads)
		if err != nil {
			return fail(output.ErrCodeInvalidInput, err)
		}

		if jsonOutput {
			return output.JSON(utf16Events(out))
		}
		for i, ev := range out {
			if i > 0 {
				fmt.Println()
			}
			printEvent(ev)
			printComponents(components[i])
		}
		return nil
	},
}

var autofillHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded address form fills",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		limit, _ := cmd.Flags().GetInt("limit")
		id, _ := cmd.Flags().GetString("id")

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

		if id != "" {
			ev, err := database.GetAddressFormFilled(id)
			if err != nil {
				code := output.ErrCodeDatabaseError
				if errors.Is(err, db.ErrNotFound) {
					code = output.ErrCodeNotFound
				}
				if jsonOutput {
					output.JSONError(code, err.Error())
				} else {
					output.Error("%v", err)
				}
				return err
			}
			if jsonOutput {
				return output.JSON(autofill.UTF16Event(ev))
			}
			printEvent(ev)
			return nil
		}

		var since time.Time
		if s, _ := cmd.Flags().GetString("since"); s != "" {
			if since, err = dateparse.ParseSince(s); err != nil {
				if jsonOutput {
					output.JSONError(output.ErrCodeInvalidInput, err.Error())
				} else {
					output.Error("%v", err)
				}
				return err
			}
		}

		list, err := database.ListAddressFormFilledSince(since, limit)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if jsonOutput {
			return output.JSON(utf16Events(list))
		}
		if len(list) == 0 {
			fmt.Println("No address forms recorded")
			return nil
		}
		for _, ev := range list {
			first, _, _ := strings.Cut(ev.Address, "\n")
			fmt.Printf("%s  %-12s %-32s %d/%d matched  %s\n",
				shortEventID(ev.ID), ev.TargetID, first,
				len(ev.Matches), len(ev.FilledFields),
				output.Subtle(output.FormatTimeAgo(ev.Timestamp)))
		}
		return nil
	},
}

// replayPayloads decodes each payload and forwards it through manager. It
// also returns the labeled address values of every payload.
func replayPayloads(ctx context.Context, manager *autofill.Manager, target string, payloads []json.RawMessage) ([]models.AddressFormFilledEvent, [][]models.AddressComponent, error) {
	var out []models.AddressFormFilledEvent
	var components [][]models.AddressComponent
	for i, p := range payloads {
		in, err := autofill.DecodeEvent(target, p)
		if err != nil {
			return nil, nil, fmt.Errorf("event %d: %w", i, err)
		}
		out = append(out, manager.Handle(ctx, in))
		components = append(components, autofill.Components(in.AddressUI))
	}
	return out, components, nil
}

// utf16Events converts match offsets for JSON consumers, which index the
// address in UTF-16 code units.
func utf16Events(list []models.AddressFormFilledEvent) []models.AddressFormFilledEvent {
	if list == nil {
		return nil
	}
	out := make([]models.AddressFormFilledEvent, len(list))
	for i, ev := range list {
		out[i] = autofill.UTF16Event(ev)
	}
	return out
}

func printEvent(ev models.AddressFormFilledEvent) {
	if ev.ID != "" {
		fmt.Printf("%s %s\n", shortEventID(ev.ID), output.Subtle(ev.TargetID))
	}
	fmt.Println(output.HighlightMatches(ev.Address, ev.Matches))
	fmt.Print(output.SectionHeader("Filled fields"))
	for i, f := range ev.FilledFields {
		fmt.Println(output.FormatFilledField(i, f, ev.Matches))
	}
}

func printComponents(comps []models.AddressComponent) {
	if len(comps) == 0 {
		return
	}
	fmt.Print(output.SectionHeader("Address components"))
	for _, c := range comps {
		fmt.Println(output.FormatComponent(c))
	}
}

func shortEventID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

// splitPayloads accepts a single JSON object or an array of objects.
func splitPayloads(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("no event data")
	}
	if data[0] != '[' {
		return []json.RawMessage{data}, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse event list: %w", err)
	}
	return list, nil
}

func init() {
	autofillMatchCmd.Flags().String("address", "", "Canonical address text (\\n separates lines)")
	autofillMatchCmd.Flags().Var(&fieldsFlag{}, "field", "Filled field value, as TYPE=value or value (repeatable)")
	autofillMatchCmd.Flags().Bool("fold", false, "Let commas and whitespace in a value match any separator run")
	autofillMatchCmd.Flags().Bool("json", false, "JSON output")

	autofillReplayCmd.Flags().String("target", "replay", "Target id to attribute events to")
	autofillReplayCmd.Flags().Bool("record", false, "Store forwarded events in the history database")
	autofillReplayCmd.Flags().Bool("json", false, "JSON output")

	autofillHistoryCmd.Flags().Int("limit", 20, "Maximum events to list")
	autofillHistoryCmd.Flags().String("id", "", "Show one event by id")
	autofillHistoryCmd.Flags().String("since", "", "Only events after a time (e.g. 2h, 3d, yesterday, monday, 2026-03-01)")
	autofillHistoryCmd.Flags().Bool("json", false, "JSON output")

	autofillCmd.AddCommand(autofillMatchCmd, autofillReplayCmd, autofillHistoryCmd)
	rootCmd.AddCommand(autofillCmd)
}
