package keymap

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// sequenceTimeout bounds the gap between the keys of a sequence like "g g".
const sequenceTimeout = 500 * time.Millisecond

// Context is the part of the dashboard that has input focus.
type Context string

const (
	ContextGlobal Context = "global"
	ContextMain   Context = "main"
	ContextFilter Context = "filter" // autofill filter input focused
	ContextHelp   Context = "help"   // help overlay open
)

// Command names a dashboard action.
type Command string

const (
	CmdQuit       Command = "quit"
	CmdToggleHelp Command = "toggle-help"
	CmdRefresh    Command = "refresh"

	CmdNextPanel    Command = "next-panel"
	CmdPrevPanel    Command = "prev-panel"
	CmdPanelOne     Command = "panel-1"
	CmdPanelTwo     Command = "panel-2"
	CmdPanelThree   Command = "panel-3"
	CmdCursorDown   Command = "cursor-down"
	CmdCursorUp     Command = "cursor-up"
	CmdCursorTop    Command = "cursor-top"
	CmdCursorBottom Command = "cursor-bottom"

	// Request blocking panel
	CmdTogglePattern  Command = "toggle-pattern"
	CmdRemovePattern  Command = "remove-pattern"
	CmdToggleBlocking Command = "toggle-blocking"
	CmdClearLog       Command = "clear-log"

	// Bounce tracking panel
	CmdForceRun Command = "force-run"

	// Autofill panel
	CmdFilter        Command = "filter"
	CmdFilterConfirm Command = "filter-confirm"
	CmdFilterCancel  Command = "filter-cancel"
	CmdFilterClear   Command = "filter-clear"
)

// Binding ties a key, or a space separated key sequence, to a command.
type Binding struct {
	Key         string
	Command     Command
	Context     Context
	Description string
}

// Registry resolves keys to commands. User overrides win over the
// defaults, and the focused context wins over global.
type Registry struct {
	mu          sync.RWMutex
	bindings    map[Context][]Binding
	overrides   map[Context]map[string]Command
	pendingKey  string
	pendingTime time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		bindings:  make(map[Context][]Binding),
		overrides: make(map[Context]map[string]Command),
	}
}

func (r *Registry) RegisterBindings(bindings []Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range bindings {
		r.bindings[b.Context] = append(r.bindings[b.Context], b)
	}
}

// SetUserOverride binds key to cmd in ctx ahead of any default binding.
func (r *Registry) SetUserOverride(ctx Context, key string, cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.overrides[ctx] == nil {
		r.overrides[ctx] = make(map[string]Command)
	}
	r.overrides[ctx][key] = cmd
}

// chain lists the contexts consulted for ctx, most specific first.
func chain(ctx Context) []Context {
	if ctx == "" || ctx == ContextGlobal {
		return []Context{ContextGlobal}
	}
	return []Context{ctx, ContextGlobal}
}

// Lookup resolves a key press in ctx. A key that only starts a sequence
// returns false and is remembered until the next press or the timeout.
func (r *Registry) Lookup(msg tea.KeyMsg, ctx Context) (Command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := KeyToString(msg)
	if r.pendingKey != "" {
		prev := r.pendingKey
		r.pendingKey = ""
		if time.Since(r.pendingTime) < sequenceTimeout {
			if cmd, ok := r.resolve(prev+" "+key, ctx); ok {
				return cmd, true
			}
		}
	}

	if r.startsSequence(key, ctx) {
		r.pendingKey = key
		r.pendingTime = time.Now()
		return "", false
	}
	return r.resolve(key, ctx)
}

func (r *Registry) resolve(key string, ctx Context) (Command, bool) {
	contexts := chain(ctx)
	for _, c := range contexts {
		if cmd, ok := r.overrides[c][key]; ok {
			return cmd, true
		}
	}
	for _, c := range contexts {
		for _, b := range r.bindings[c] {
			if b.Key == key {
				return b.Command, true
			}
		}
	}
	return "", false
}

func (r *Registry) startsSequence(key string, ctx Context) bool {
	prefix := key + " "
	for _, c := range chain(ctx) {
		for _, b := range r.bindings[c] {
			if strings.HasPrefix(b.Key, prefix) {
				return true
			}
		}
		for k := range r.overrides[c] {
			if strings.HasPrefix(k, prefix) {
				return true
			}
		}
	}
	return false
}

// ResetPending drops a half typed sequence.
func (r *Registry) ResetPending() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingKey = ""
}

// PendingKey returns the first key of a sequence still waiting for its
// second key, for display in the footer.
func (r *Registry) PendingKey() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if time.Since(r.pendingTime) >= sequenceTimeout {
		return ""
	}
	return r.pendingKey
}

// KeyToString names a key press the way bindings spell it.
func KeyToString(msg tea.KeyMsg) string {
	if msg.Type == tea.KeySpace || (msg.Type == tea.KeyRunes && len(msg.Runes) == 1 && msg.Runes[0] == ' ') {
		return "space"
	}
	return msg.String()
}

// IsPrintable reports whether msg is a single printable ASCII character,
// which the filter input consumes instead of the keymap.
func IsPrintable(msg tea.KeyMsg) bool {
	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 || msg.Alt {
		return false
	}
	r := msg.Runes[0]
	return r >= ' ' && r <= '~'
}
