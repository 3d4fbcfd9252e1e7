package visuallogging

import "fmt"

// VisualElement identifies a loggable UI element type.
type VisualElement int

const (
	AccessibilityComputedProperties VisualElement = iota + 1
	AccessibilityPane
	AccessibilitySourceOrder
	AddColor
	AddElementClassPrompt
	AddStylesRule
	AriaAttributes
	BezierCurveEditor
	BezierEditor
	BezierPresetCategory
	BezierPreview
	ColorCanvas
	ColorEyeDropper
	ColorPicker
	CopyColor
	CssAngleEditor
	CssColorMix
	CssFlexboxEditor
	CssGridEditor
	CssLayersPane
	CssShadowEditor
	DOMBreakpoint
	DOMBreakpointsPane
	DropDownButton
	ElementClassesPane
	ElementPropertiesPane
	ElementStatesPan
	EventListenersPane
	FilterDropdown
	FilterTextField
	JumpToSource
	Link
	MetricsBox
	Next
	Option
	PaletteColorShades
	PalettePanel
	Previous
	Refresh
	ShowAllStyleProperties
	ShowStyleEditor
	Slider
	StylePropertiesSection
	StylePropertiesSectionSeparator
	StylesMetricsPane
	StylesPane
	StylesSelector
	Toggle
	ToggleSubpane
	TreeItem
	TreeItemExpand
	Value
)

var veTokens = [...]string{
	AccessibilityComputedProperties: "AccessibilityComputedProperties",
	AccessibilityPane:               "AccessibilityPane",
	AccessibilitySourceOrder:        "AccessibilitySourceOrder",
	AddColor:                        "AddColor",
	AddElementClassPrompt:           "AddElementClassPrompt",
	AddStylesRule:                   "AddStylesRule",
	AriaAttributes:                  "AriaAttributes",
	BezierCurveEditor:               "BezierCurveEditor",
	BezierEditor:                    "BezierEditor",
	BezierPresetCategory:            "BezierPresetCategory",
	BezierPreview:                   "BezierPreview",
	ColorCanvas:                     "ColorCanvas",
	ColorEyeDropper:                 "ColorEyeDropper",
	ColorPicker:                     "ColorPicker",
	CopyColor:                       "CopyColor",
	CssAngleEditor:                  "CssAngleEditor",
	CssColorMix:                     "CssColorMix",
	CssFlexboxEditor:                "CssFlexboxEditor",
	CssGridEditor:                   "CssGridEditor",
	CssLayersPane:                   "CssLayersPane",
	CssShadowEditor:                 "cssShadowEditor",
	DOMBreakpoint:                   "DOMBreakpoint",
	DOMBreakpointsPane:              "DOMBreakpointsPane",
	DropDownButton:                  "DropDownButton",
	ElementClassesPane:              "ElementClassesPane",
	ElementPropertiesPane:           "ElementPropertiesPane",
	ElementStatesPan:                "ElementStatesPan",
	EventListenersPane:              "EventListenersPane",
	FilterDropdown:                  "FilterDropdown",
	FilterTextField:                 "FilterTextField",
	JumpToSource:                    "JumpToSource",
	Link:                            "Link",
	MetricsBox:                      "MetricsBox",
	Next:                            "Next",
	Option:                          "Option",
	PaletteColorShades:              "PaletteColorShades",
	PalettePanel:                    "PalettePanel",
	Previous:                        "Previous",
	Refresh:                         "Refresh",
	ShowAllStyleProperties:          "ShowAllStyleProperties",
	ShowStyleEditor:                 "ShowStyleEditor",
	Slider:                          "Slider",
	StylePropertiesSection:          "StylePropertiesSection",
	StylePropertiesSectionSeparator: "StylePropertiesSectionSeparator",
	StylesMetricsPane:               "StylesMetricsPane",
	StylesPane:                      "StylesPane",
	StylesSelector:                  "StylesSelector",
	Toggle:                          "Toggle",
	ToggleSubpane:                   "ToggleSubpane",
	TreeItem:                        "TreeItem",
	TreeItemExpand:                  "TreeItemExpand",
	Value:                           "Value",
}

var veByToken = func() map[string]VisualElement {
	m := make(map[string]VisualElement, len(veTokens))
	for i, tok := range veTokens {
		if tok != "" {
			m[tok] = VisualElement(i)
		}
	}
	return m
}()

// String returns the token written to config strings.
func (v VisualElement) String() string {
	if v > 0 && int(v) < len(veTokens) {
		return veTokens[v]
	}
	return fmt.Sprintf("VisualElement(%d)", int(v))
}

// Valid reports whether v is a known element.
func (v VisualElement) Valid() bool {
	return v > 0 && int(v) < len(veTokens)
}

// ParseVisualElement returns the element for a token. Tokens are case sensitive.
func ParseVisualElement(token string) (VisualElement, error) {
	if v, ok := veByToken[token]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownElement, token)
}

// VisualElements returns every known element in declaration order.
func VisualElements() []VisualElement {
	out := make([]VisualElement, 0, len(veTokens)-1)
	for i := 1; i < len(veTokens); i++ {
		out = append(out, VisualElement(i))
	}
	return out
}
