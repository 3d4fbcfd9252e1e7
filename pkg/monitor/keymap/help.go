package keymap

import (
	"fmt"
	"strings"
)

var helpTitles = map[Context]string{
	ContextGlobal: "GLOBAL",
	ContextMain:   "DASHBOARD",
	ContextFilter: "FILTER",
}

// GenerateHelp renders the bindings of the main, filter and global contexts.
// Keys bound to the same command are listed together.
func (r *Registry) GenerateHelp() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString("\nDTF MONITOR - Key Bindings\n")
	for _, ctx := range []Context{ContextMain, ContextFilter, ContextGlobal} {
		bindings := r.bindings[ctx]
		if len(bindings) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s:\n", helpTitles[ctx])

		var order []Command
		keys := make(map[Command][]string)
		desc := make(map[Command]string)
		for _, b := range bindings {
			if _, seen := keys[b.Command]; !seen {
				order = append(order, b.Command)
				desc[b.Command] = b.Description
			}
			keys[b.Command] = append(keys[b.Command], b.Key)
		}
		for _, cmd := range order {
			fmt.Fprintf(&sb, "  %-20s %s\n", strings.Join(keys[cmd], " / "), desc[cmd])
		}
	}
	sb.WriteString("\nPress ? to close help\n")
	return sb.String()
}
