package audio

import (
	"context"
	"fmt"
	"strings"
)

// DeviceInfo describes a capture source at enumeration time
type DeviceInfo struct {
	ID          string         // Backend-scoped identifier
	Name        string         // Human-readable device name
	IsDefault   bool           // Whether this is the default input
	Formats     []SampleFormat // Native sample formats the device offers
	MaxChannels uint32         // Largest native channel count, 0 if unknown
	SampleRate  uint32         // Nominal sample rate, 0 if unknown

	native any // backend handle used to open the device
}

// String returns a human-readable representation of the device
func (d DeviceInfo) String() string {
	defaultMarker := ""
	if d.IsDefault {
		defaultMarker = " [DEFAULT]"
	}
	formats := make([]string, 0, len(d.Formats))
	for _, f := range d.Formats {
		formats = append(formats, f.String())
	}
	return fmt.Sprintf("%s: %s%s (channels: %d, rate: %d, formats: %s)",
		d.ID, d.Name, defaultMarker, d.MaxChannels, d.SampleRate, strings.Join(formats, ","))
}

// DefaultFormat returns the first supported native format, or FormatUnknown
func (d DeviceInfo) DefaultFormat() SampleFormat {
	for _, f := range d.Formats {
		if f.Supported() {
			return f
		}
	}
	return FormatUnknown
}

// Directory enumerates capture sources
type Directory interface {
	Devices(ctx context.Context) ([]DeviceInfo, error)
}

// ListDevices returns the devices of dir
func ListDevices(ctx context.Context, dir Directory) ([]DeviceInfo, error) {
	devices, err := dir.Devices(ctx)
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// DeviceNames returns the names of devices in enumeration order
func DeviceNames(devices []DeviceInfo) []string {
	names := make([]string, 0, len(devices))
	for _, d := range devices {
		names = append(names, d.Name)
	}
	return names
}

// FindDevice resolves a device by exact name, then by ID. Duplicate names
// resolve to the first in enumeration order. An empty name selects the
// default device, or the first one if none is marked default.
func FindDevice(devices []DeviceInfo, name string) (DeviceInfo, error) {
	if len(devices) == 0 {
		return DeviceInfo{}, fmt.Errorf("%w: no capture devices available", ErrDeviceNotFound)
	}

	if name == "" {
		for _, d := range devices {
			if d.IsDefault {
				return d, nil
			}
		}
		return devices[0], nil
	}

	for _, d := range devices {
		if d.Name == name {
			return d, nil
		}
	}
	for _, d := range devices {
		if d.ID == name {
			return d, nil
		}
	}

	return DeviceInfo{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
}
