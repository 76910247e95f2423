package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/emmett/audioscope/internal/audio"
	"github.com/emmett/audioscope/internal/capture"
)

// DeviceManager handles audio device listing
type DeviceManager struct {
	mgr *capture.Manager
	out io.Writer
}

// NewDeviceManager creates a new DeviceManager writing to out
func NewDeviceManager(mgr *capture.Manager, out io.Writer) *DeviceManager {
	return &DeviceManager{mgr: mgr, out: out}
}

// ListDevices lists all available audio input devices
func (dm *DeviceManager) ListDevices(ctx context.Context) error {
	fmt.Fprintln(dm.out, "Detecting audio input devices...")
	fmt.Fprintln(dm.out)

	devices, err := dm.mgr.Devices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	if len(devices) == 0 {
		fmt.Fprintln(dm.out, "No audio capture devices found.")
		return fmt.Errorf("no devices found")
	}

	fmt.Fprintf(dm.out, "Found %d capture device(s):\n\n", len(devices))

	for i, device := range devices {
		marker := ""
		if device.IsDefault {
			marker = " [DEFAULT]"
		}
		fmt.Fprintf(dm.out, "%d. %s%s\n", i+1, device.Name, marker)
		fmt.Fprintf(dm.out, "   ID: %s\n", device.ID)
		if device.MaxChannels > 0 {
			fmt.Fprintf(dm.out, "   Max Channels: %d\n", device.MaxChannels)
		}
		if device.SampleRate > 0 {
			fmt.Fprintf(dm.out, "   Sample Rate: %d Hz\n", device.SampleRate)
		}
		if len(device.Formats) > 0 {
			fmt.Fprintf(dm.out, "   Formats: %s\n", formatList(device.Formats))
		}
		fmt.Fprintln(dm.out)
	}

	fmt.Fprintln(dm.out, "To use a specific device, run:")
	fmt.Fprintln(dm.out, "  audioscope --device \"<device-name>\"")
	fmt.Fprintln(dm.out)
	fmt.Fprintln(dm.out, "Example:")
	fmt.Fprintf(dm.out, "  audioscope --device \"%s\"\n", devices[0].Name)

	return nil
}

func formatList(formats []audio.SampleFormat) string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.String()
	}
	return strings.Join(names, ", ")
}
