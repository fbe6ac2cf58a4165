//go:build linux

package can

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/robocorp-link/linkbus"
	"golang.org/x/sys/unix"
)

// Interface bring-up helpers (SUPPLEMENTED FEATURES item 1): the original
// Raspberry Pi program (original_source/CAN/Raspberry/src/can.cpp) assumed
// can0 was already configured by the time it ran. A complete transport
// layer should be able to bring the interface up and set its bitrate
// itself, the way `ip link` does, so these are adapted from the teacher's
// iface_linux.go, replacing its hand-rolled syscall+unsafe ioctl with
// golang.org/x/sys/unix per SPEC_FULL's DOMAIN STACK.

// IsInterfaceUp reports whether name currently has IFF_UP set.
func IsInterfaceUp(name string) (bool, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return false, linkbus.WrapErr(linkbus.ErrOpenFailed, err)
	}
	defer unix.Close(fd)

	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return false, fmt.Errorf("can: invalid interface name %q: %w", name, err)
	}
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr); err != nil {
		return false, linkbus.WrapErr(linkbus.ErrOpenFailed, err)
	}
	return ifr.Uint16() & unix.IFF_UP != 0, nil
}

// SetInterfaceUp sets IFF_UP on name. Requires CAP_NET_ADMIN.
func SetInterfaceUp(name string) error {
	return setInterfaceFlag(name, unix.IFF_UP, true)
}

// SetInterfaceDown clears IFF_UP on name. Requires CAP_NET_ADMIN.
func SetInterfaceDown(name string) error {
	return setInterfaceFlag(name, unix.IFF_UP, false)
}

func setInterfaceFlag(name string, flag uint16, set bool) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return linkbus.WrapErr(linkbus.ErrOpenFailed, err)
	}
	defer unix.Close(fd)

	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return fmt.Errorf("can: invalid interface name %q: %w", name, err)
	}
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr); err != nil {
		return linkbus.WrapErr(linkbus.ErrOpenFailed, err)
	}
	current := ifr.Uint16()
	var next uint16
	if set {
		next = current | flag
	} else {
		next = current &^ flag
	}
	if next == current {
		return nil
	}
	ifr.SetUint16(next)
	if err := unix.IoctlIfreq(fd, unix.SIOCSIFFLAGS, ifr); err != nil {
		return linkbus.WrapErr(linkbus.ErrOpenFailed, RequireRootOrCapNetAdmin(err))
	}
	return nil
}

// RequireRootOrCapNetAdmin annotates a permission error with a hint that
// CAP_NET_ADMIN (or root) is required.
func RequireRootOrCapNetAdmin(err error) error {
	if errors.Is(err, unix.EPERM) {
		return fmt.Errorf("operation requires CAP_NET_ADMIN (or root): %w", err)
	}
	return err
}

// BitrateOptions controls the CAN-specific parameters applied through the
// system `ip` tool (iproute2), mirroring what the teacher's
// ConfigureLinuxCANInterface did.
type BitrateOptions struct {
	// BitrateHz sets the arbitration bit rate (e.g. 125000, 500000, 1000000).
	// Left unchanged if zero.
	BitrateHz uint32
	// RestartMs sets automatic bus-off recovery delay in milliseconds. It
	// is applied only when SetRestartMs is true (otherwise left unchanged);
	// RestartMs 0 with SetRestartMs true disables auto-restart.
	RestartMs     uint32
	SetRestartMs  bool
}

// Configure applies bitrate/restart-ms to a CAN interface via `ip link set
// ... type can`. The interface typically must be down first; call
// SetInterfaceDown before Configure and SetInterfaceUp after.
func Configure(name string, opts BitrateOptions) error {
	if opts.BitrateHz == 0 && !opts.SetRestartMs {
		return nil
	}
	args := []string{"link", "set", "dev", name, "type", "can"}
	if opts.BitrateHz != 0 {
		args = append(args, "bitrate", fmt.Sprintf("%d", opts.BitrateHz))
	}
	if opts.SetRestartMs {
		args = append(args, "restart-ms", fmt.Sprintf("%d", opts.RestartMs))
	}
	cmd := exec.Command("ip", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return linkbus.WrapErr(linkbus.ErrOpenFailed,
			RequireRootOrCapNetAdmin(fmt.Errorf("ip link set type can failed: %w; output: %s", err, string(out))))
	}
	return nil
}
