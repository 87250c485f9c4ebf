package helpers

import (
	"errors"
	"testing"
	"time"

	"github.com/fleet-e2e/device-dialog/tests/e2e/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollUntil(t *testing.T) {
	t.Run("returns once the check passes", func(t *testing.T) {
		calls := 0
		err := pollUntil(time.Now().Add(time.Second), func() (bool, error) {
			calls++
			return calls == 3, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("times out within the deadline", func(t *testing.T) {
		start := time.Now()
		err := pollUntil(start.Add(300*time.Millisecond), func() (bool, error) { return false, nil })
		assert.ErrorIs(t, err, ErrLocatorTimeout)
		assert.Less(t, time.Since(start), 300*time.Millisecond+2*pollInterval)
	})

	t.Run("stops on check errors", func(t *testing.T) {
		boom := errors.New("boom")
		err := pollUntil(time.Now().Add(time.Second), func() (bool, error) { return false, boom })
		assert.ErrorIs(t, err, boom)
	})
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "TestDeviceDialog_Add_device", sanitizeFileName("TestDeviceDialog/Add_device"))
	assert.Equal(t, "a_b.png", sanitizeFileName("a b.png"))
	assert.Equal(t, "x", sanitizeFileName("//x//"))
}

func TestEnvError(t *testing.T) {
	err := envError("could not launch %s: %v", "chromium", errors.New("no display"))
	assert.ErrorIs(t, err, ErrEnvironment)
	assert.Contains(t, err.Error(), "could not launch chromium: no display")
}

func TestLoginURL(t *testing.T) {
	s := NewSession(t, &config.TestConfig{LoginPath: "/gpsandfleet/client_login.php"})
	s.AppURL = "https://fleet.example.com/maps/index2.php"

	u, err := s.LoginURL()
	require.NoError(t, err)
	assert.Equal(t, "https://fleet.example.com/gpsandfleet/client_login.php", u)
	assert.Len(t, s.RunID, 8)
}

func TestTearDownWithoutSetup(t *testing.T) {
	s := NewSession(t, &config.TestConfig{})
	assert.NotPanics(t, func() {
		s.TearDown()
		s.TearDown()
	})
}

func TestCaptureFailureWithoutPage(t *testing.T) {
	s := NewSession(t, &config.TestConfig{Screenshots: true})
	assert.False(t, s.CaptureFailure(t), "passing test takes no screenshot")
	assert.False(t, s.CaptureFailure(nil))
	assert.Zero(t, s.captured)
}
