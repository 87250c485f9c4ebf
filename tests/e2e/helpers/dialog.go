package helpers

import (
	"fmt"
	"regexp"
	"time"

	"github.com/fleet-e2e/device-dialog/internal/locators"
	"github.com/playwright-community/playwright-go"
)

// Status texts shown after a successful mutation
const (
	StatusAdded   = "Device added"
	StatusUpdated = "Device updated"
	StatusRemoved = "Device removed"
)

// DeviceForm holds the values entered in Add Device mode
type DeviceForm struct {
	Name          string
	Pulsing       bool
	SidebarRadius string
	MapRadius     string
}

// SavedDevice is what Edit Device mode loads for an existing device
type SavedDevice struct {
	Name          string
	Pulsing       bool
	SidebarRadius string
	MapRadius     string
	// IconSelected reports whether the icon-option radio is the chosen icon
	IconSelected bool
}

// Dialog drives the Add/Edit Device dialog through a Session
type Dialog struct {
	s *Session
}

// NewDialog returns dialog fixtures bound to s
func NewDialog(s *Session) *Dialog {
	return &Dialog{s: s}
}

// Reset reloads the application page so each case starts from the same
// state regardless of what the previous case left behind.
func (d *Dialog) Reset() error {
	return d.s.NavigateTo(d.s.AppURL)
}

// Open clicks the settings menu, then the Add/Edit Device entry.
func (d *Dialog) Open() error {
	if err := d.s.Click(locators.SettingsMenu); err != nil {
		return fmt.Errorf("open settings menu: %w", err)
	}
	if err := d.s.Click(locators.AddEditDevice); err != nil {
		return fmt.Errorf("open add/edit device: %w", err)
	}
	return nil
}

// IsOpen waits for the dialog container and reports whether it is displayed.
func (d *Dialog) IsOpen() (bool, error) {
	return d.s.IsDisplayed(locators.Dialog)
}

// Add fills Add Device mode from form and submits it.
func (d *Dialog) Add(form DeviceForm) error {
	if err := d.s.Click(locators.ModeAdd); err != nil {
		return err
	}
	if err := d.s.Fill(locators.DeviceName, form.Name); err != nil {
		return err
	}
	if form.Pulsing {
		if _, err := d.s.EnsureChecked(locators.PulsingIcon); err != nil {
			return err
		}
	}
	if err := d.s.ClearAndFill(locators.SidebarPulseRadius, form.SidebarRadius); err != nil {
		return err
	}
	if err := d.s.ClearAndFill(locators.MapPulseRadius, form.MapRadius); err != nil {
		return err
	}
	if err := d.s.Click(locators.IconOption); err != nil {
		return err
	}
	return d.s.Click(locators.Submit)
}

// Search switches to Edit Device mode and types term into the search field.
func (d *Dialog) Search(term string) error {
	if err := d.s.Click(locators.ModeEdit); err != nil {
		return err
	}
	return d.s.Fill(locators.Search, term)
}

// Rename searches for term, overwrites the name field and submits.
func (d *Dialog) Rename(term, newName string) error {
	if err := d.Search(term); err != nil {
		return err
	}
	if err := d.s.ClearAndFill(locators.DeviceName, newName); err != nil {
		return err
	}
	return d.s.Click(locators.Submit)
}

// Remove searches for term and clicks Remove Device.
func (d *Dialog) Remove(term string) error {
	if err := d.Search(term); err != nil {
		return err
	}
	return d.s.Click(locators.Remove)
}

// Saved reloads the page, opens Edit Device mode, searches for term and
// reads back the values the application loaded into the form.
func (d *Dialog) Saved(term string) (SavedDevice, error) {
	var saved SavedDevice
	if err := d.Reset(); err != nil {
		return saved, err
	}
	if err := d.Open(); err != nil {
		return saved, err
	}
	if err := d.Search(term); err != nil {
		return saved, err
	}

	name, err := d.s.Locate(locators.DeviceName)
	if err != nil {
		return saved, err
	}
	err = pollUntil(time.Now().Add(d.s.Config.Timeout), func() (bool, error) {
		v, err := name.InputValue()
		saved.Name = v
		return v != "", err
	})
	if err != nil {
		return saved, fmt.Errorf("search %q loaded no device: %w", term, err)
	}

	if saved.Pulsing, err = d.s.IsChecked(locators.PulsingIcon); err != nil {
		return saved, err
	}
	if saved.SidebarRadius, err = d.s.InputValue(locators.SidebarPulseRadius); err != nil {
		return saved, err
	}
	if saved.MapRadius, err = d.s.InputValue(locators.MapPulseRadius); err != nil {
		return saved, err
	}
	if saved.IconSelected, err = d.s.IsChecked(locators.IconOption); err != nil {
		return saved, err
	}
	return saved, nil
}

// WaitForStatus blocks until the status area shows want.
func (d *Dialog) WaitForStatus(want string) error {
	return d.s.WaitForText(locators.Status, want)
}

func (d *Dialog) listItems(name string) (playwright.Locator, error) {
	items, err := d.s.Locate(locators.DeviceListItem)
	if err != nil {
		return nil, err
	}
	exact := regexp.MustCompile("^" + regexp.QuoteMeta(name) + "$")
	return items.Filter(playwright.LocatorFilterOptions{HasText: exact}), nil
}

// Listed reports whether the device list currently shows name.
func (d *Dialog) Listed(name string) (bool, error) {
	items, err := d.listItems(name)
	if err != nil {
		return false, err
	}
	n, err := items.Count()
	return n > 0, err
}

// WaitForListed blocks until the device list shows (or stops showing) name.
func (d *Dialog) WaitForListed(name string, present bool) error {
	items, err := d.listItems(name)
	if err != nil {
		return err
	}
	if !present {
		return d.s.WaitForCount(items, 0, fmt.Sprintf("device list entry %q", name))
	}
	return d.s.WaitForCount(items.First(), 1, fmt.Sprintf("device list entry %q", name))
}

// EnsureDevice makes sure a device called form.Name exists, adding it
// through the dialog if needed, and leaves the page reset.
func (d *Dialog) EnsureDevice(form DeviceForm) error {
	if err := d.Reset(); err != nil {
		return err
	}
	listed, err := d.Listed(form.Name)
	if err != nil {
		return err
	}
	if !listed {
		if err := d.Open(); err != nil {
			return err
		}
		if err := d.Add(form); err != nil {
			return fmt.Errorf("seed device %q: %w", form.Name, err)
		}
		if err := d.WaitForStatus(StatusAdded); err != nil {
			return fmt.Errorf("seed device %q: %w", form.Name, err)
		}
	}
	return d.Reset()
}
