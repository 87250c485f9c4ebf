package locators

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocatorSelector(t *testing.T) {
	testCases := []struct {
		name     string
		locator  Locator
		expected string
	}{
		{"plain id", ID("settings-menu"), "#settings-menu"},
		{"id needing escape", ID("1st.menu"), `[id="1st.menu"]`},
		{"xpath", XPath("//button[text()='Update Device']"), "xpath=//button[text()='Update Device']"},
		{"css", CSS("#device-list li"), "#device-list li"},
		{"text", Text("Add/Edit Device"), "text=Add/Edit Device"},
		{"nth", XPath("//input[@type='checkbox']").At(0), "xpath=//input[@type='checkbox'] >> nth=0"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sel, err := tc.locator.Selector()
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sel)
		})
	}

	t.Run("rejects bad locators", func(t *testing.T) {
		_, err := Locator{Strategy: "name", Value: "q"}.Selector()
		assert.Error(t, err)

		_, err = ID("").Selector()
		assert.Error(t, err)

		_, err = CSS("li").At(-1).Selector()
		assert.Error(t, err)
	})
}

func TestAtDoesNotMutateReceiver(t *testing.T) {
	base := XPath("//input")
	first := base.At(1)

	assert.Nil(t, base.Nth)
	require.NotNil(t, first.Nth)
	assert.Equal(t, 1, *first.Nth)
	assert.Equal(t, "xpath(//input)[1]", first.String())
}

func TestDefaults(t *testing.T) {
	table := Defaults()

	for _, name := range []Name{
		SettingsMenu, AddEditDevice, Dialog, ModeAdd, ModeEdit, DeviceName,
		PulsingIcon, SidebarPulseRadius, MapPulseRadius, IconOption, Submit,
		Search, Remove, Status, DeviceList, DeviceListItem,
		LoginUsername, LoginPassword, LoginSubmit, LoginError,
	} {
		l, err := table.Get(name)
		require.NoError(t, err, "default table should define %s", name)
		_, err = l.Selector()
		assert.NoError(t, err, "default %s should render", name)
	}

	assert.Equal(t, ID("settings-menu"), table.MustGet(SettingsMenu))
	assert.Equal(t, "//div[contains(text(),'Add/Edit Device')]", table.MustGet(Dialog).Value)
	assert.Equal(t, "//input[@type='radio' and @name='icon-selection'][2]", table.MustGet(IconOption).Value)
}

func TestTableGetUnknown(t *testing.T) {
	_, err := Defaults().Get("no-such-element")
	assert.True(t, errors.Is(err, ErrUnknownLocator))

	assert.Panics(t, func() { Defaults().MustGet("no-such-element") })
}

func TestTableMerge(t *testing.T) {
	base := Defaults()
	merged := base.Merge(map[Name]Locator{
		SettingsMenu: CSS("nav .settings"),
		"help-link":  Text("Help"),
	})

	assert.Equal(t, CSS("nav .settings"), merged.MustGet(SettingsMenu))
	assert.Equal(t, Text("Help"), merged.MustGet("help-link"))
	assert.Equal(t, ID("settings-menu"), base.MustGet(SettingsMenu), "merge must not modify the base table")
	assert.Len(t, merged.Names(), len(base.Names())+1)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("empty path returns defaults", func(t *testing.T) {
		table, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Defaults().Names(), table.Names())
	})

	t.Run("valid overrides are merged", func(t *testing.T) {
		path := filepath.Join(dir, "locators.yaml")
		content := `apiVersion: locators/v1
kind: LocatorTable
locators:
  settings-menu:
    strategy: css
    value: "button.settings"
  pulsing-icon:
    strategy: xpath
    value: "//input[@name='pulsing']"
    nth: 0
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		table, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, CSS("button.settings"), table.MustGet(SettingsMenu))

		pulsing := table.MustGet(PulsingIcon)
		require.NotNil(t, pulsing.Nth)
		assert.Equal(t, 0, *pulsing.Nth)
		assert.Equal(t, Defaults().MustGet(Submit), table.MustGet(Submit))
	})

	t.Run("schema violations are reported", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		content := `apiVersion: locators/v1
kind: LocatorTable
locators:
  settings-menu:
    strategy: name
    value: ""
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		_, err := Load(path)
		require.Error(t, err)

		var schemaErr *SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.Equal(t, path, schemaErr.File)
		assert.GreaterOrEqual(t, len(schemaErr.Errors), 2)
	})

	t.Run("wrong kind is rejected", func(t *testing.T) {
		_, err := Parse("inline", []byte("apiVersion: locators/v1\nkind: Route\nlocators: {}\n"))
		var schemaErr *SchemaError
		assert.True(t, errors.As(err, &schemaErr))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.yaml"))
		assert.Error(t, err)
	})
}
