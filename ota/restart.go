package ota

import "context"

// Restarter performs the device restart after a successful update.
// It is expected not to return on success; if it does, the session stays
// terminal and ignores further messages.
type Restarter interface {
	Restart(ctx context.Context) error
}

// RestartFunc adapts a function to the Restarter interface.
type RestartFunc func(ctx context.Context) error

// Restart calls f(ctx).
func (f RestartFunc) Restart(ctx context.Context) error {
	return f(ctx)
}
