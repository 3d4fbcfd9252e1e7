package keymap

// DefaultBindings returns the default key bindings for the dashboard.
func DefaultBindings() []Binding {
	return []Binding{
		// Global
		{Key: "q", Command: CmdQuit, Context: ContextGlobal, Description: "Quit"},
		{Key: "ctrl+c", Command: CmdQuit, Context: ContextGlobal, Description: "Quit"},
		{Key: "?", Command: CmdToggleHelp, Context: ContextGlobal, Description: "Toggle help"},

		// Panel navigation
		{Key: "tab", Command: CmdNextPanel, Context: ContextMain, Description: "Next panel"},
		{Key: "shift+tab", Command: CmdPrevPanel, Context: ContextMain, Description: "Previous panel"},
		{Key: "1", Command: CmdPanelOne, Context: ContextMain, Description: "Autofill panel"},
		{Key: "2", Command: CmdPanelTwo, Context: ContextMain, Description: "Request blocking panel"},
		{Key: "3", Command: CmdPanelThree, Context: ContextMain, Description: "Bounce tracking panel"},

		// Cursor movement
		{Key: "j", Command: CmdCursorDown, Context: ContextMain, Description: "Move down"},
		{Key: "down", Command: CmdCursorDown, Context: ContextMain, Description: "Move down"},
		{Key: "k", Command: CmdCursorUp, Context: ContextMain, Description: "Move up"},
		{Key: "up", Command: CmdCursorUp, Context: ContextMain, Description: "Move up"},
		{Key: "G", Command: CmdCursorBottom, Context: ContextMain, Description: "Go to bottom"},
		{Key: "g g", Command: CmdCursorTop, Context: ContextMain, Description: "Go to top"},

		// Actions
		{Key: "r", Command: CmdRefresh, Context: ContextMain, Description: "Refresh"},
		{Key: "/", Command: CmdFilter, Context: ContextMain, Description: "Filter autofill events"},
		{Key: "esc", Command: CmdFilterClear, Context: ContextMain, Description: "Clear filter"},
		{Key: "space", Command: CmdTogglePattern, Context: ContextMain, Description: "Toggle selected pattern"},
		{Key: "x", Command: CmdRemovePattern, Context: ContextMain, Description: "Remove selected pattern"},
		{Key: "b", Command: CmdToggleBlocking, Context: ContextMain, Description: "Enable or disable request blocking"},
		{Key: "c", Command: CmdClearLog, Context: ContextMain, Description: "Clear blocked request counts"},
		{Key: "f", Command: CmdForceRun, Context: ContextMain, Description: "Force run bounce tracking mitigations"},

		// Filter input
		{Key: "enter", Command: CmdFilterConfirm, Context: ContextFilter, Description: "Apply filter"},
		{Key: "esc", Command: CmdFilterCancel, Context: ContextFilter, Description: "Cancel filter"},
		{Key: "ctrl+c", Command: CmdQuit, Context: ContextFilter, Description: "Quit"},

		// Help overlay
		{Key: "esc", Command: CmdToggleHelp, Context: ContextHelp, Description: "Close help"},
	}
}

// RegisterDefaults installs DefaultBindings.
func RegisterDefaults(r *Registry) {
	r.RegisterBindings(DefaultBindings())
}
