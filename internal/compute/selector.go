package compute

import (
	"fmt"
)

// Selector picks the device and queue family for a run.
type Selector struct {
	driver     Driver
	validation bool
	appName    string
}

// NewSelector returns a selector for drv. validation is forwarded to the
// driver when the instance is opened.
func NewSelector(drv Driver, validation bool) *Selector {
	return &Selector{driver: drv, validation: validation, appName: "mandel"}
}

// Validation reports whether the selector opens instances with validation.
func (s *Selector) Validation() bool { return s.validation }

// DeviceContext is the immutable result of device selection.
type DeviceContext struct {
	Device      Device
	QueueFamily uint32
	Info        DeviceInfo
	Memory      MemoryProperties
	Validation  bool
}

// Select opens an instance, picks the first compute-capable device and
// opens it. The instance and device are owned by scope.
func (s *Selector) Select(scope *Scope) (DeviceContext, error) {
	inst, err := s.driver.Open(OpenOptions{AppName: s.appName, Validation: s.validation})
	if err != nil {
		return DeviceContext{}, fmt.Errorf("open %s instance: %w", s.driver.Name(), err)
	}
	scope.Defer("instance", inst.Destroy)

	devices, err := inst.PhysicalDevices()
	if err != nil {
		return DeviceContext{}, fmt.Errorf("enumerate devices: %w", err)
	}

	pd, family, err := PickDevice(devices)
	if err != nil {
		return DeviceContext{}, err
	}

	info := pd.Info()
	slogger().Info("compute: device selected",
		"name", info.Name,
		"type", info.Type.String(),
		"queueFamily", family,
		"api", info.APIVersionString(),
	)

	dev, err := pd.CreateDevice(family)
	if err != nil {
		return DeviceContext{}, fmt.Errorf("create device: %w", err)
	}
	scope.Defer("device", dev.Destroy)

	return DeviceContext{
		Device:      dev,
		QueueFamily: family,
		Info:        info,
		Memory:      pd.MemoryProperties(),
		Validation:  s.validation,
	}, nil
}

// PickDevice returns the first device that has a compute queue family,
// together with the index of its first such family.
func PickDevice(devices []PhysicalDevice) (PhysicalDevice, uint32, error) {
	for _, pd := range devices {
		if family, ok := ComputeFamily(pd.QueueFamilies()); ok {
			return pd, family, nil
		}
	}
	return nil, 0, &NoCapableDeviceError{Devices: len(devices)}
}

// ComputeFamily returns the index of the first family with compute support
// and at least one queue.
func ComputeFamily(families []QueueFamily) (uint32, bool) {
	for i, f := range families {
		if f.Flags&QueueCompute != 0 && f.Count > 0 {
			return uint32(i), true //nolint:gosec // queue family count fits in uint32
		}
	}
	return 0, false
}

// DeviceSummary describes an enumerated device for listing.
type DeviceSummary struct {
	Info          DeviceInfo
	QueueFamilies []QueueFamily
	Memory        MemoryProperties
	// ComputeFamily is the family a run would use, valid if Capable.
	ComputeFamily uint32
	Capable       bool
}

// ListDevices enumerates the devices of drv without opening any of them.
func ListDevices(drv Driver, validation bool) ([]DeviceSummary, error) {
	inst, err := drv.Open(OpenOptions{AppName: "mandel", Validation: validation})
	if err != nil {
		return nil, fmt.Errorf("open %s instance: %w", drv.Name(), err)
	}
	defer inst.Destroy()

	devices, err := inst.PhysicalDevices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	out := make([]DeviceSummary, 0, len(devices))
	for _, pd := range devices {
		families := pd.QueueFamilies()
		family, ok := ComputeFamily(families)
		out = append(out, DeviceSummary{
			Info:          pd.Info(),
			QueueFamilies: families,
			Memory:        pd.MemoryProperties(),
			ComputeFamily: family,
			Capable:       ok,
		})
	}
	return out, nil
}
