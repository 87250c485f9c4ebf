//go:build playwright

package helpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fleet-e2e/device-dialog/internal/locators"
	"github.com/fleet-e2e/device-dialog/tests/e2e/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStubSession starts a browser against the in-process fleet stub
func newStubSession(t *testing.T, timeout time.Duration) *Session {
	t.Helper()
	cfg := &config.TestConfig{
		Timeout:        timeout,
		Headless:       true,
		Browser:        "chromium",
		ViewportWidth:  1280,
		ViewportHeight: 720,
		ArtifactsDir:   t.TempDir(),
		Preinstalled:   os.Getenv("PLAYWRIGHT_PREINSTALLED") == "true",
	}
	s := NewSession(t, cfg)
	t.Cleanup(s.TearDown)
	require.NoError(t, s.Setup(), "Failed to setup browser")
	return s
}

func TestEnsureCheckedIsIdempotent(t *testing.T) {
	s := newStubSession(t, 5*time.Second)
	d := NewDialog(s)
	require.NoError(t, d.Open())

	clicked, err := s.EnsureChecked(locators.PulsingIcon)
	require.NoError(t, err)
	assert.True(t, clicked, "first call should click the unchecked box")

	clicked, err = s.EnsureChecked(locators.PulsingIcon)
	require.NoError(t, err)
	assert.False(t, clicked, "second call must not toggle the box back")

	checked, err := s.IsChecked(locators.PulsingIcon)
	require.NoError(t, err)
	assert.True(t, checked)
}

func TestMutationWithoutOpenDialogFailsFast(t *testing.T) {
	timeout := 1500 * time.Millisecond
	s := newStubSession(t, timeout)

	start := time.Now()
	err := s.Click(locators.ModeAdd)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocatorTimeout)
	assert.Contains(t, err.Error(), string(locators.ModeAdd))
	assert.Less(t, elapsed, timeout+2*time.Second, "wait must be bounded by the configured timeout")
}

func TestOpenDialogShowsContainer(t *testing.T) {
	s := newStubSession(t, 5*time.Second)
	d := NewDialog(s)

	hidden, err := s.WaitFor(locators.Dialog, Hidden)
	require.NoError(t, err, "dialog starts closed")
	require.NotNil(t, hidden)

	require.NoError(t, d.Open())
	displayed, err := d.IsOpen()
	require.NoError(t, err)
	assert.True(t, displayed)
}

func TestAddEditRemoveRoundTrip(t *testing.T) {
	s := newStubSession(t, 5*time.Second)
	d := NewDialog(s)
	form := DeviceForm{Name: "Round Trip", Pulsing: true, SidebarRadius: "20", MapRadius: "30"}

	require.NoError(t, d.EnsureDevice(form))
	listed, err := d.Listed("Round Trip")
	require.NoError(t, err)
	assert.True(t, listed)

	// a second call must not add a duplicate
	require.NoError(t, d.EnsureDevice(form))
	items, err := d.listItems("Round Trip")
	require.NoError(t, err)
	count, err := items.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	saved, err := d.Saved("round")
	require.NoError(t, err)
	assert.Equal(t, SavedDevice{
		Name:          "Round Trip",
		Pulsing:       true,
		SidebarRadius: "20",
		MapRadius:     "30",
		IconSelected:  true,
	}, saved, "search should load every saved field")

	require.NoError(t, d.Reset())
	require.NoError(t, d.Open())
	require.NoError(t, d.Remove("Round Trip"))
	require.NoError(t, d.WaitForStatus(StatusRemoved))
	assert.NoError(t, d.WaitForListed("Round Trip", false))
}

func TestScreenshot(t *testing.T) {
	s := newStubSession(t, 5*time.Second)

	path, err := s.Screenshot(t.Name())
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSavedReportsUncheckedFields(t *testing.T) {
	s := newStubSession(t, 5*time.Second)
	d := NewDialog(s)

	require.NoError(t, d.Open())
	require.NoError(t, s.Click(locators.ModeAdd))
	require.NoError(t, s.Fill(locators.DeviceName, "Plain Device"))
	require.NoError(t, s.ClearAndFill(locators.SidebarPulseRadius, "7"))
	require.NoError(t, s.ClearAndFill(locators.MapPulseRadius, "8"))
	require.NoError(t, s.Click(locators.Submit))
	require.NoError(t, d.WaitForStatus(StatusAdded))

	saved, err := d.Saved("Plain Device")
	require.NoError(t, err)
	assert.False(t, saved.Pulsing)
	assert.False(t, saved.IconSelected, "the first icon stays selected by default")
	assert.Equal(t, "7", saved.SidebarRadius)
	assert.Equal(t, "8", saved.MapRadius)
}

func TestSavedUnknownDevice(t *testing.T) {
	s := newStubSession(t, 1500*time.Millisecond)
	_, err := NewDialog(s).Saved("no such device")
	assert.ErrorIs(t, err, ErrLocatorTimeout)
}

// failedTB reports a failure without failing the wrapped test
type failedTB struct {
	testing.TB
	name string
}

func (f failedTB) Failed() bool { return true }
func (f failedTB) Name() string { return f.name }

func TestFailureScreenshotTakenOnce(t *testing.T) {
	shots := func(s *Session) []string {
		files, err := filepath.Glob(filepath.Join(s.Config.ArtifactsDir, "screenshots", s.RunID, "*.png"))
		require.NoError(t, err)
		return files
	}

	t.Run("subtest capture suppresses the suite capture", func(t *testing.T) {
		s := newStubSession(t, 5*time.Second)
		s.Config.Screenshots = true
		s.t = failedTB{TB: t, name: "TestDeviceDialog"}

		assert.True(t, s.CaptureFailure(failedTB{TB: t, name: "TestDeviceDialog/Add_device"}))
		s.TearDown()

		files := shots(s)
		require.Len(t, files, 1)
		assert.Contains(t, files[0], "Add_device")
	})

	t.Run("suite failure without subtest capture", func(t *testing.T) {
		s := newStubSession(t, 5*time.Second)
		s.Config.Screenshots = true
		s.t = failedTB{TB: t, name: "TestDeviceDialog"}

		s.TearDown()
		assert.Len(t, shots(s), 1)
	})
}
