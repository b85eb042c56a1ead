// Package reboot provides ota.Restarter implementations for Linux hosts.
//
// Logind asks systemd-logind to reboot the machine over the system D-Bus.
// Exit terminates the process with a fixed code, for deployments where a
// supervisor restarts the daemon onto the new image.
//
//	r, err := reboot.FromMode(cfg.Reboot.Mode, cfg.Reboot.ExitCode)
//	if err != nil {
//	    return err
//	}
//	sess := ota.New(sink, ota.WithRestarter(r))
package reboot
