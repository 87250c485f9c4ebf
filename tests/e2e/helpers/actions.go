package helpers

import (
	"fmt"
	"strings"

	"github.com/fleet-e2e/device-dialog/internal/locators"
	"github.com/playwright-community/playwright-go"
)

// Click waits for the element to be clickable, then clicks it.
func (s *Session) Click(name locators.Name) error {
	loc, err := s.WaitFor(name, Clickable)
	if err != nil {
		return err
	}
	if err := loc.Click(); err != nil {
		return fmt.Errorf("failed to click %s: %w", name, err)
	}
	return nil
}

// Fill waits for the element to be visible and types value into it.
// Any existing text is replaced.
func (s *Session) Fill(name locators.Name, value string) error {
	loc, err := s.WaitFor(name, Visible)
	if err != nil {
		return err
	}
	if err := loc.Fill(value); err != nil {
		return fmt.Errorf("failed to fill %s: %w", name, err)
	}
	return nil
}

// ClearAndFill empties the field before entering value, so the field's
// input handlers observe the cleared state first.
func (s *Session) ClearAndFill(name locators.Name, value string) error {
	loc, err := s.WaitFor(name, Visible)
	if err != nil {
		return err
	}
	if err := loc.Clear(); err != nil {
		return fmt.Errorf("failed to clear %s: %w", name, err)
	}
	if err := loc.Fill(value); err != nil {
		return fmt.Errorf("failed to fill %s: %w", name, err)
	}
	return nil
}

// IsChecked reports the checked state of a checkbox or radio.
func (s *Session) IsChecked(name locators.Name) (bool, error) {
	loc, err := s.WaitFor(name, Visible)
	if err != nil {
		return false, err
	}
	return loc.IsChecked()
}

// EnsureChecked clicks the control only when it is unchecked and reports
// whether a click was made. Calling it again is a no-op.
func (s *Session) EnsureChecked(name locators.Name) (bool, error) {
	loc, err := s.WaitFor(name, Clickable)
	if err != nil {
		return false, err
	}
	checked, err := loc.IsChecked()
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if checked {
		return false, nil
	}
	if err := loc.Click(); err != nil {
		return false, fmt.Errorf("failed to click %s: %w", name, err)
	}
	return true, nil
}

// IsDisplayed waits for the element to become visible and reports whether
// it is. A timeout yields false together with the wait error.
func (s *Session) IsDisplayed(name locators.Name) (bool, error) {
	loc, err := s.WaitFor(name, Visible)
	if err != nil {
		return false, err
	}
	return loc.IsVisible()
}

// Text returns the trimmed inner text of a visible element.
func (s *Session) Text(name locators.Name) (string, error) {
	loc, err := s.WaitFor(name, Visible)
	if err != nil {
		return "", err
	}
	text, err := loc.InnerText()
	return strings.TrimSpace(text), err
}

// InputValue returns the current value of a visible input.
func (s *Session) InputValue(name locators.Name) (string, error) {
	loc, err := s.WaitFor(name, Visible)
	if err != nil {
		return "", err
	}
	return loc.InputValue()
}

// WaitForText blocks until the element shows text containing want.
func (s *Session) WaitForText(name locators.Name, want string) error {
	loc, err := s.WaitFor(name, Visible)
	if err != nil {
		return err
	}
	filtered := loc.Filter(playwright.LocatorFilterOptions{HasText: want})
	if err := filtered.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(s.Config.TimeoutMillis()),
	}); err != nil {
		text, _ := loc.InnerText()
		return fmt.Errorf("%w: %s shows %q, want %q", ErrLocatorTimeout, name, text, want)
	}
	return nil
}
