package helpers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fleet-e2e/device-dialog/internal/locators"
	"github.com/playwright-community/playwright-go"
)

// ErrLocatorTimeout is returned when an element does not reach the awaited
// state within the session timeout.
var ErrLocatorTimeout = errors.New("locator timeout")

// Condition is a readiness predicate awaited before an interaction
type Condition string

const (
	Attached  Condition = "attached"
	Visible   Condition = "visible"
	Hidden    Condition = "hidden"
	Clickable Condition = "clickable"
)

// pollInterval is how often Clickable and WaitForCount re-check the page
const pollInterval = 100 * time.Millisecond

// Locate renders the named locator against the current page. The result is
// recomputed per call and must not be kept across navigations.
func (s *Session) Locate(name locators.Name) (playwright.Locator, error) {
	l, err := s.Locators.Get(name)
	if err != nil {
		return nil, err
	}
	sel, err := l.Selector()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return s.Page.Locator(sel), nil
}

// WaitFor blocks until the named element satisfies cond or the session
// timeout elapses.
func (s *Session) WaitFor(name locators.Name, cond Condition) (playwright.Locator, error) {
	loc, err := s.Locate(name)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(s.Config.Timeout)

	var state *playwright.WaitForSelectorState
	switch cond {
	case Attached:
		state = playwright.WaitForSelectorStateAttached
	case Visible, Clickable:
		state = playwright.WaitForSelectorStateVisible
	case Hidden:
		state = playwright.WaitForSelectorStateHidden
	default:
		return nil, fmt.Errorf("unknown wait condition %q", cond)
	}

	err = loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   state,
		Timeout: playwright.Float(s.Config.TimeoutMillis()),
	})
	if err != nil {
		return nil, s.waitError(name, cond, err)
	}

	if cond == Clickable {
		err := pollUntil(deadline, func() (bool, error) {
			return loc.IsEnabled()
		})
		if err != nil {
			return nil, s.waitError(name, cond, err)
		}
	}
	return loc, nil
}

// WaitForCount blocks until the located elements number exactly n.
func (s *Session) WaitForCount(loc playwright.Locator, n int, what string) error {
	deadline := time.Now().Add(s.Config.Timeout)
	last := -1
	err := pollUntil(deadline, func() (bool, error) {
		count, err := loc.Count()
		last = count
		return count == n, err
	})
	if err != nil {
		return fmt.Errorf("%w: %s: want %d matches, have %d after %s", ErrLocatorTimeout, what, n, last, s.Config.Timeout)
	}
	return nil
}

func (s *Session) waitError(name locators.Name, cond Condition, err error) error {
	l, _ := s.Locators.Get(name)
	if isTimeout(err) {
		return fmt.Errorf("%w: %s %s not %s within %s", ErrLocatorTimeout, name, l, cond, s.Config.Timeout)
	}
	return fmt.Errorf("waiting for %s %s to be %s: %w", name, l, cond, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, playwright.ErrTimeout) || errors.Is(err, ErrLocatorTimeout) {
		return true
	}
	// older drivers only report the error name
	return strings.Contains(err.Error(), "Timeout")
}

// pollUntil calls check until it reports true, returns an error, or the
// deadline passes.
func pollUntil(deadline time.Time, check func() (bool, error)) error {
	for {
		ok, err := check()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().Add(pollInterval).After(deadline) {
			return ErrLocatorTimeout
		}
		time.Sleep(pollInterval)
	}
}
