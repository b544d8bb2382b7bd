package engine

import (
	"os/exec"
	goruntime "runtime"
)

// Known compute devices in preference order.
const (
	DeviceCUDA = "cuda"
	DeviceMPS  = "mps"
	DeviceCPU  = "cpu"
)

// deviceProbes isolates OS probing for device selection tests.
type deviceProbes struct {
	lookPath func(string) (string, error)
	goos     string
}

// DetectDevice picks the best available compute device: CUDA when an NVIDIA
// driver is present, MPS on macOS, CPU otherwise. Called once at startup.
func DetectDevice() string {
	return detectDevice(deviceProbes{
		lookPath: exec.LookPath,
		goos:     goruntime.GOOS,
	})
}

// ResolveDevice maps a configured device preference to a concrete device.
// "auto" or empty triggers detection; anything else is taken as-is.
func ResolveDevice(preference string) string {
	switch preference {
	case "", "auto":
		return DetectDevice()
	default:
		return preference
	}
}

func detectDevice(probes deviceProbes) string {
	if _, err := probes.lookPath("nvidia-smi"); err == nil {
		return DeviceCUDA
	}
	if probes.goos == "darwin" {
		return DeviceMPS
	}
	return DeviceCPU
}
