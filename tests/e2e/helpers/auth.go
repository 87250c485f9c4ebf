package helpers

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/fleet-e2e/device-dialog/internal/locators"
	"github.com/playwright-community/playwright-go"
)

// LoginURL is the client login page derived from the application origin
func (s *Session) LoginURL() (string, error) {
	app, err := url.Parse(s.AppURL)
	if err != nil {
		return "", err
	}
	return app.Scheme + "://" + app.Host + s.Config.LoginPath, nil
}

// Login performs login with the configured credentials and waits until the
// browser has left the login page.
func (s *Session) Login() error {
	loginURL, err := s.LoginURL()
	if err != nil {
		return fmt.Errorf("failed to build login url: %w", err)
	}
	if err := s.NavigateTo(loginURL); err != nil {
		return err
	}

	if err := s.Fill(locators.LoginUsername, s.Config.LoginUser); err != nil {
		return fmt.Errorf("username: %w", err)
	}
	if err := s.Fill(locators.LoginPassword, s.Config.LoginPassword); err != nil {
		return fmt.Errorf("password: %w", err)
	}
	if err := s.Click(locators.LoginSubmit); err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	err = s.Page.WaitForURL(func(u string) bool {
		return !strings.HasPrefix(u, loginURL)
	}, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(s.Config.TimeoutMillis()),
	})
	if err != nil {
		// Check for error message
		if errMsg, lerr := s.Locate(locators.LoginError); lerr == nil {
			if n, _ := errMsg.Count(); n > 0 {
				msg, _ := errMsg.TextContent()
				return fmt.Errorf("login rejected: %s", strings.TrimSpace(msg))
			}
		}
		return fmt.Errorf("still on login page after submit: %w", err)
	}
	return nil
}
