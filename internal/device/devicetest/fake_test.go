package devicetest_test

import (
	"image"
	"image/color"
	"testing"
	"time"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phinze/wallpanel/internal/device"
	"github.com/phinze/wallpanel/internal/device/devicetest"
)

func TestForEachKeyClearsEveryKey(t *testing.T) {
	var dev device.Device = devicetest.New()

	var visited []device.KeyID
	require.NoError(t, dev.ForEachKey(func(k device.KeyID) error {
		visited = append(visited, k)
		return dev.ClearKey(k)
	}))

	want := []device.KeyID{
		device.KEY_1, device.KEY_2, device.KEY_3, device.KEY_4,
		device.KEY_5, device.KEY_6, device.KEY_7, device.KEY_8,
	}
	if diff := gocmp.Diff(want, visited); diff != "" {
		t.Errorf("visited keys (-want +got):\n%s", diff)
	}

	fake := dev.(*devicetest.Fake)
	for _, k := range want {
		img := fake.KeyImage(k)
		require.NotNil(t, img, "key %d", k)
		assert.Equal(t, color.RGBA{}, img.RGBAAt(0, 0))
	}
}

func TestImageRectangles(t *testing.T) {
	var dev device.Device = devicetest.New()

	assert.True(t, dev.GetTouchStripSupported())

	key, err := dev.GetKeyImageRectangle()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 72, 72), key)

	strip, err := dev.GetTouchStripImageRectangle()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 800, 100), strip)
}

func TestSetKeyImageRejectsUnknownKey(t *testing.T) {
	tests := []struct {
		name    string
		key     device.KeyID
		wantErr bool
	}{
		{name: "first", key: device.KEY_1},
		{name: "last", key: device.KEY_8},
		{name: "zero", key: 0, wantErr: true},
		{name: "past end", key: device.KEY_8 + 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := devicetest.New()
			err := fake.SetKeyImage(tt.key, image.NewRGBA(image.Rect(0, 0, 72, 72)))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCloseUnblocksListen(t *testing.T) {
	var dev device.Device = devicetest.New()

	done := make(chan error, 1)
	go func() { done <- dev.Listen(nil) }()

	require.NoError(t, dev.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after Close")
	}

	assert.Error(t, dev.Close(), "second close")
}
