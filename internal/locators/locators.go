// Package locators holds the table of page element locators used by the
// device dialog suite, keyed by logical element name.
package locators

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Strategy identifies how a locator value is interpreted
type Strategy string

const (
	StrategyID    Strategy = "id"
	StrategyXPath Strategy = "xpath"
	StrategyCSS   Strategy = "css"
	StrategyText  Strategy = "text"
)

// Name is the logical name of a page element
type Name string

const (
	SettingsMenu       Name = "settings-menu"
	AddEditDevice      Name = "add-edit-device"
	Dialog             Name = "dialog"
	ModeAdd            Name = "mode-add"
	ModeEdit           Name = "mode-edit"
	DeviceName         Name = "device-name"
	PulsingIcon        Name = "pulsing-icon"
	SidebarPulseRadius Name = "sidebar-pulse-radius"
	MapPulseRadius     Name = "map-pulse-radius"
	IconOption         Name = "icon-option"
	Submit             Name = "submit"
	Search             Name = "search"
	Remove             Name = "remove"
	Status             Name = "status"
	DeviceList         Name = "device-list"
	DeviceListItem     Name = "device-list-item"
	LoginUsername      Name = "login-username"
	LoginPassword      Name = "login-password"
	LoginSubmit        Name = "login-submit"
	LoginError         Name = "login-error"
)

// ErrUnknownLocator is returned when a table has no entry for a name.
var ErrUnknownLocator = errors.New("unknown locator")

// Locator describes how to find elements on the current page.
// Nth, when set, selects one match (0-based) among several.
type Locator struct {
	Strategy Strategy `yaml:"strategy" json:"strategy"`
	Value    string   `yaml:"value" json:"value"`
	Nth      *int     `yaml:"nth,omitempty" json:"nth,omitempty"`
}

// ID returns a locator matching an element id.
func ID(id string) Locator { return Locator{Strategy: StrategyID, Value: id} }

// XPath returns a locator for an XPath expression.
func XPath(expr string) Locator { return Locator{Strategy: StrategyXPath, Value: expr} }

// CSS returns a locator for a CSS selector.
func CSS(sel string) Locator { return Locator{Strategy: StrategyCSS, Value: sel} }

// Text returns a locator matching visible text.
func Text(text string) Locator { return Locator{Strategy: StrategyText, Value: text} }

// At returns a copy of l restricted to the n-th match.
func (l Locator) At(n int) Locator {
	l.Nth = &n
	return l
}

// Selector renders the locator as a playwright selector string.
func (l Locator) Selector() (string, error) {
	if l.Value == "" {
		return "", fmt.Errorf("empty %s locator", l.Strategy)
	}
	var sel string
	switch l.Strategy {
	case StrategyID:
		if isPlainIdent(l.Value) {
			sel = "#" + l.Value
		} else {
			sel = fmt.Sprintf(`[id="%s"]`, strings.ReplaceAll(l.Value, `"`, `\"`))
		}
	case StrategyXPath:
		sel = "xpath=" + l.Value
	case StrategyCSS:
		sel = l.Value
	case StrategyText:
		sel = "text=" + l.Value
	default:
		return "", fmt.Errorf("unsupported locator strategy %q", l.Strategy)
	}
	if l.Nth != nil {
		if *l.Nth < 0 {
			return "", fmt.Errorf("negative nth %d", *l.Nth)
		}
		sel = fmt.Sprintf("%s >> nth=%d", sel, *l.Nth)
	}
	return sel, nil
}

// String is used in wait and assertion messages.
func (l Locator) String() string {
	if l.Nth != nil {
		return fmt.Sprintf("%s(%s)[%d]", l.Strategy, l.Value, *l.Nth)
	}
	return fmt.Sprintf("%s(%s)", l.Strategy, l.Value)
}

// isPlainIdent reports whether v can be used verbatim after '#'.
func isPlainIdent(v string) bool {
	for i, r := range v {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '-':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Table maps logical names to locators. A Table is not modified after
// construction; Merge returns a new one.
type Table struct {
	entries map[Name]Locator
}

// NewTable builds a table from the given entries.
func NewTable(entries map[Name]Locator) *Table {
	t := &Table{entries: make(map[Name]Locator, len(entries))}
	for k, v := range entries {
		t.entries[k] = v
	}
	return t
}

// Get returns the locator registered under name.
func (t *Table) Get(name Name) (Locator, error) {
	l, ok := t.entries[name]
	if !ok {
		return Locator{}, fmt.Errorf("%w: %s", ErrUnknownLocator, name)
	}
	return l, nil
}

// MustGet is Get for names known at compile time.
func (t *Table) MustGet(name Name) Locator {
	l, err := t.Get(name)
	if err != nil {
		panic(err)
	}
	return l
}

// Names returns the registered names in sorted order.
func (t *Table) Names() []Name {
	names := make([]Name, 0, len(t.entries))
	for k := range t.entries {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Merge returns a new table with overrides applied on top of t.
func (t *Table) Merge(overrides map[Name]Locator) *Table {
	merged := NewTable(t.entries)
	for k, v := range overrides {
		merged.entries[k] = v
	}
	return merged
}

// Defaults returns the built-in locators for the Add/Edit Device dialog.
func Defaults() *Table {
	return NewTable(map[Name]Locator{
		SettingsMenu:       ID("settings-menu"),
		AddEditDevice:      ID("add-edit-device"),
		Dialog:             XPath("//div[contains(text(),'Add/Edit Device')]"),
		ModeAdd:            XPath("//input[@type='radio' and @value='Add Device']"),
		ModeEdit:           XPath("//input[@type='radio' and @value='Edit Device']"),
		DeviceName:         XPath("//input[contains(@placeholder,'Device Name')]"),
		PulsingIcon:        XPath("//input[@type='checkbox']").At(0),
		SidebarPulseRadius: XPath("//input[contains(@placeholder,'Sidebar Pulse Radius')]"),
		MapPulseRadius:     XPath("//input[contains(@placeholder,'Map Pulse Radius')]"),
		IconOption:         XPath("//input[@type='radio' and @name='icon-selection'][2]"),
		Submit:             XPath("//button[text()='Update Device']"),
		Search:             XPath("//input[contains(@placeholder,'Search Device')]"),
		Remove:             XPath("//button[text()='Remove Device']"),
		Status:             ID("device-status"),
		DeviceList:         ID("device-list"),
		DeviceListItem:     CSS("#device-list li"),
		LoginUsername:      CSS("input[name='form-username']"),
		LoginPassword:      CSS("input[type='password']"),
		LoginSubmit:        CSS("input[type='submit'], button[type='submit']").At(0),
		LoginError:         ID("error-message"),
	})
}
