package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"rollcall/internal/devmon"
)

// CameraProbe reports which configured capture devices are present.
type CameraProbe struct {
	Present []string
	Absent  []string
	Denied  []string
}

// ProbeCameras checks each configured device index for a readable
// /dev/videoN node. It does not open the device.
func ProbeCameras(devices []int) CameraProbe {
	var probe CameraProbe
	for _, idx := range devices {
		path := devmon.DevicePath(idx)
		if _, err := os.Stat(path); err != nil {
			probe.Absent = append(probe.Absent, path)
			continue
		}
		if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
			probe.Denied = append(probe.Denied, path)
			continue
		}
		probe.Present = append(probe.Present, path)
	}
	return probe
}

// Detail renders a display-friendly summary for status UIs.
func (p CameraProbe) Detail() string {
	if len(p.Present) > 0 {
		return fmt.Sprintf("%s available", strings.Join(p.Present, ", "))
	}
	if len(p.Denied) > 0 {
		return fmt.Sprintf("%s present but not accessible (check video group membership)", strings.Join(p.Denied, ", "))
	}
	if len(p.Absent) == 0 {
		return "no devices configured"
	}
	return fmt.Sprintf("no capture device found (tried %s)", strings.Join(p.Absent, ", "))
}

// Result converts the probe into a preflight result.
func (p CameraProbe) Result() Result {
	return Result{Name: "Camera", Passed: len(p.Present) > 0, Detail: p.Detail()}
}
