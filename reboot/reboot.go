package reboot

import (
	"context"
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"

	"github.com/moffa90/go-bleota/ota"
)

const (
	logindDest   = "org.freedesktop.login1"
	logindPath   = "/org/freedesktop/login1"
	logindReboot = "org.freedesktop.login1.Manager.Reboot"
)

// caller is the subset of dbus.BusObject used by Logind.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Logind reboots the host through systemd-logind.
type Logind struct {
	connect func() (caller, error)
}

// NewLogind returns a Logind that connects to the system bus on first use.
func NewLogind() *Logind {
	return &Logind{connect: systemLogind}
}

func systemLogind() (caller, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	return conn.Object(logindDest, dbus.ObjectPath(logindPath)), nil
}

// Restart calls Manager.Reboot without interactive authorization.
func (l *Logind) Restart(ctx context.Context) error {
	obj, err := l.connect()
	if err != nil {
		return err
	}
	if err := obj.CallWithContext(ctx, logindReboot, 0, false).Err; err != nil {
		return fmt.Errorf("logind reboot: %w", err)
	}
	return nil
}

// Exit terminates the process with Code.
type Exit struct {
	Code int
	exit func(int)
}

// NewExit returns an Exit restarter using os.Exit.
func NewExit(code int) *Exit {
	return &Exit{Code: code, exit: os.Exit}
}

// Restart exits the process. It only returns if exiting is stubbed out.
func (e *Exit) Restart(ctx context.Context) error {
	e.exit(e.Code)
	return nil
}

// FromMode builds the restarter named by a config mode: "logind", "exit" or
// "none". "none" returns a nil Restarter, which leaves the session terminal
// without restarting.
func FromMode(mode string, exitCode int) (ota.Restarter, error) {
	switch mode {
	case "logind":
		return NewLogind(), nil
	case "exit":
		return NewExit(exitCode), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown reboot mode %q", mode)
	}
}
