package audio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDevices() []DeviceInfo {
	return []DeviceInfo{
		{ID: "capture-0", Name: "USB Mic", Formats: []SampleFormat{FormatS16}},
		{ID: "capture-1", Name: "Built-in", IsDefault: true, Formats: []SampleFormat{FormatOther, FormatF32}},
		{ID: "capture-2", Name: "USB Mic", Formats: []SampleFormat{FormatF32}},
	}
}

func TestFindDevice(t *testing.T) {
	devices := testDevices()

	tests := []struct {
		name   string
		query  string
		wantID string
	}{
		{"empty selects default", "", "capture-1"},
		{"exact name", "Built-in", "capture-1"},
		{"duplicate names resolve to first", "USB Mic", "capture-0"},
		{"falls back to id", "capture-2", "capture-2"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, err := FindDevice(devices, tc.query)
			require.NoError(t, err)
			assert.Equal(t, tc.wantID, d.ID)
		})
	}
}

func TestFindDeviceErrors(t *testing.T) {
	_, err := FindDevice(testDevices(), "Nonexistent")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
	assert.Contains(t, err.Error(), "Nonexistent")

	_, err = FindDevice(nil, "")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestFindDeviceWithoutDefault(t *testing.T) {
	devices := testDevices()
	devices[1].IsDefault = false

	d, err := FindDevice(devices, "")
	require.NoError(t, err)
	assert.Equal(t, "capture-0", d.ID)
}

func TestDeviceInfoDefaultFormat(t *testing.T) {
	devices := testDevices()
	assert.Equal(t, FormatS16, devices[0].DefaultFormat())
	assert.Equal(t, FormatF32, devices[1].DefaultFormat())
	assert.Equal(t, FormatUnknown, DeviceInfo{}.DefaultFormat())
}

func TestDeviceNames(t *testing.T) {
	assert.Equal(t, []string{"USB Mic", "Built-in", "USB Mic"}, DeviceNames(testDevices()))
	assert.Empty(t, DeviceNames(nil))
}

func TestListDevicesFromDemoBackend(t *testing.T) {
	devices, err := ListDevices(context.Background(), NewSilentBackend())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "demo-silent", devices[0].ID)
	assert.Contains(t, devices[0].String(), "[DEFAULT]")
}
