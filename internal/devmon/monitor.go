// Package devmon watches udev netlink events for the capture device being
// unplugged so the loop can stop promptly instead of waiting on a dead read.
package devmon

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"rollcall/internal/logging"
)

// DevicePath returns the video4linux node for a capture index.
func DevicePath(index int) string {
	return fmt.Sprintf("/dev/video%d", index)
}

// Monitor reports removal of one video device.
type Monitor struct {
	logger    *slog.Logger
	device    string
	onRemoved func(device string)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// New returns a monitor for device, or nil when device is empty.
func New(device string, logger *slog.Logger, onRemoved func(device string)) *Monitor {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil
	}
	return &Monitor{
		logger:    logging.NewComponentLogger(logger, "device-monitor"),
		device:    device,
		onRemoved: onRemoved,
	}
}

// Device returns the watched device node.
func (m *Monitor) Device() string {
	if m == nil {
		return ""
	}
	return m.device
}

// Start begins listening. Failing to open the netlink socket is logged and
// otherwise ignored; capture failures still stop the loop.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; camera removal detected by read failures only",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the process may open netlink sockets"),
			logging.String(logging.FieldImpact, "unplug detection falls back to capture errors"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, conn, quit)

	m.logger.Info("device monitor started",
		logging.String(logging.FieldEventType, "device_monitor_started"),
		logging.String("device", m.device),
	)
	return nil
}

// Stop shuts down the monitor.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("device monitor stopped",
		logging.String(logging.FieldEventType, "device_monitor_stopped"),
	)
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "camera removal may go unnoticed"),
			)
		}
	}
}

// buildMatcher matches video4linux removals.
func buildMatcher() netlink.Matcher {
	action := "remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	devname := deviceName(uevent)
	if devname == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}
	if devname != m.device {
		m.logger.Debug("ignoring event for another device",
			logging.String("device", devname),
			logging.String("watched_device", m.device),
		)
		return
	}

	logging.WarnWithContext(m.logger, "camera removed", "camera_removed",
		logging.String("device", devname),
		logging.String(logging.FieldImpact, "capture loop stops"),
		logging.String(logging.FieldErrorHint, "reconnect the camera and restart rollcall run"),
	)
	if m.onRemoved != nil {
		m.onRemoved(devname)
	}
}

// deviceName gets the device node from a uevent.
func deviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/dev/") {
			devname = "/dev/" + devname
		}
		return devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
