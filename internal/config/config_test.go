package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/phinze/wallpanel/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestMain(m *testing.M) {
	keyring.MockInit()
	os.Exit(m.Run())
}

const yamlConfig = `
processor:
  key: wall1
  name: Lobby Wall
  properties:
    control:
      ipId: "0x50"
    screens:
      1:
        enabled: true
        name: Main
        screenIndex: 1
        layouts:
          1:
            layoutName: Full
            layoutIndex: 1
          2:
            layoutName: Side by side
            layoutIndex: 3
            layoutType: sideBySide
            windows:
              1: {label: Left, input: Laptop}
    inputNames:
      1: Laptop
      2: Camera
server:
  listen: 127.0.0.1:9999
panel:
  screen: 2
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", yamlConfig)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "wall1", cfg.Processor.Key)
	assert.Equal(t, "Lobby Wall", cfg.Processor.Name)
	assert.Equal(t, "hdwp4k401c", cfg.Processor.Type)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Listen)
	assert.Equal(t, uint(2), cfg.Panel.Screen)
	assert.Equal(t, byte(80), cfg.Panel.Brightness)

	props := cfg.Processor.Properties
	require.NotNil(t, props)
	assert.Equal(t, "0x50", props.Control.IPID)
	assert.Equal(t, map[uint]string{1: "Laptop", 2: "Camera"}, props.InputNames)
	require.Len(t, props.Screens, 1)

	screen := props.Screens[1]
	assert.Equal(t, "Main", screen.Name)
	assert.True(t, screen.Enabled)
	require.Len(t, screen.Layouts, 2)
	assert.Equal(t, 3, screen.Layouts[2].Index())
	assert.Equal(t, "sideBySide", screen.Layouts[2].LayoutType)
	assert.Empty(t, screen.Layouts[1].LayoutType)
	assert.Equal(t, config.WindowConfig{Label: "Left", Input: "Laptop"}, screen.Layouts[2].Windows[1])
	assert.NoError(t, props.Validate())
}

func TestLoadFileMissing(t *testing.T) {
	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Nil(t, cfg.Processor.Properties)
	assert.Equal(t, "windowProc", cfg.Processor.Key)
	assert.Equal(t, "127.0.0.1:8090", cfg.Server.Listen)
}

func TestLoadFileEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "props.json", `{"screens": {"1": {"enabled": true, "name": "Json", "screenIndex": 1, "layouts": {"1": {"layoutName": "Auto", "layoutIndex": 0, "layoutType": "automatic"}}}}}`)
	path := writeFile(t, dir, "config.yaml", yamlConfig)

	t.Setenv("WALLPANEL_LISTEN", ":7000")
	t.Setenv("WALLPANEL_API_TOKEN", "s3cret")
	t.Setenv("WALLPANEL_PROPERTIES_FILE", "props.json")
	t.Setenv("WALLPANEL_PANEL_SCREEN", "3")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Listen)
	assert.Equal(t, "s3cret", cfg.Server.APIToken)
	assert.Equal(t, uint(3), cfg.Panel.Screen)
	require.NotNil(t, cfg.Processor.Properties)
	assert.Equal(t, "Json", cfg.Processor.Properties.Screens[1].Name)
	assert.Equal(t, 0, cfg.Processor.Properties.Screens[1].Layouts[1].Index())
	assert.Equal(t, "automatic", cfg.Processor.Properties.Screens[1].Layouts[1].LayoutType)
}

func TestLoadFileKeychainToken(t *testing.T) {
	require.NoError(t, config.SetKeychainSecret(config.KeyAPIToken, "from-keychain"))
	t.Cleanup(func() { _ = keyring.Delete(config.KeychainService, config.KeyAPIToken) })

	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-keychain", cfg.Server.APIToken)

	got, err := config.GetKeychainSecret(config.KeyAPIToken)
	require.NoError(t, err)
	assert.Equal(t, "from-keychain", got)
}

func TestLoadFileInvalidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "processor: [")

	_, err := config.LoadFile(path)
	assert.ErrorContains(t, err, "parsing")
}

func TestParseProperties(t *testing.T) {
	testCases := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "empty", data: "", wantErr: config.ErrNoProperties},
		{name: "null", data: " null\n", wantErr: config.ErrNoProperties},
		{name: "no screens", data: `{"control": {"ipId": "0x10"}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			props, err := config.ParseProperties([]byte(tc.data))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, props)
				return
			}
			require.NoError(t, err)
			assert.Nil(t, props.Screens)
		})
	}
}

func TestValidate(t *testing.T) {
	one := 1

	testCases := []struct {
		name    string
		props   *config.Properties
		wantErr []string
	}{
		{
			name:    "nil properties",
			props:   nil,
			wantErr: []string{"no properties"},
		},
		{
			name: "valid",
			props: &config.Properties{Screens: map[uint]config.ScreenInfo{
				1: {Name: "Main", Layouts: map[uint]config.LayoutInfo{1: {LayoutName: "Full", LayoutIndex: &one}}},
			}},
		},
		{
			name: "missing name and index",
			props: &config.Properties{Screens: map[uint]config.ScreenInfo{
				1: {Name: " ", Layouts: map[uint]config.LayoutInfo{1: {LayoutName: "Full"}}},
				2: {Name: "Side", Layouts: map[uint]config.LayoutInfo{
					4: {LayoutName: "Bad window", LayoutIndex: &one, Windows: map[uint]config.WindowConfig{0: {}}},
				}},
			}},
			wantErr: []string{
				"screen 1: name is required",
				"screen 1 layout 1: layoutIndex is required",
				"screen 2 layout 4: window numbers start at 1",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.props.Validate()
			if len(tc.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			for _, want := range tc.wantErr {
				assert.ErrorContains(t, err, want)
			}
		})
	}
}

func TestCloneScreens(t *testing.T) {
	idx := 2
	orig := map[uint]config.ScreenInfo{
		1: {Name: "Main", Layouts: map[uint]config.LayoutInfo{
			1: {LayoutName: "PiP", LayoutIndex: &idx, LayoutType: "pip", Windows: map[uint]config.WindowConfig{1: {Label: "Big"}}},
		}},
	}

	clone := config.CloneScreens(orig)
	require.Equal(t, orig, clone)

	*clone[1].Layouts[1].LayoutIndex = 5
	clone[1].Layouts[1].Windows[1] = config.WindowConfig{Label: "Changed"}

	assert.Equal(t, 2, orig[1].Layouts[1].Index())
	assert.Equal(t, "Big", orig[1].Layouts[1].Windows[1].Label)
	assert.Nil(t, config.CloneScreens(nil))
}
