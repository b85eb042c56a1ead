package reboot

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBusObject struct {
	method string
	args   []interface{}
	err    error
}

func (f *fakeBusObject) CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	f.method = method
	f.args = args
	return &dbus.Call{Err: f.err}
}

func TestLogindRestart(t *testing.T) {
	obj := &fakeBusObject{}
	l := &Logind{connect: func() (caller, error) { return obj, nil }}

	require.NoError(t, l.Restart(context.Background()))
	assert.Equal(t, "org.freedesktop.login1.Manager.Reboot", obj.method)
	assert.Equal(t, []interface{}{false}, obj.args)
}

func TestLogindRestartErrors(t *testing.T) {
	t.Run("call fails", func(t *testing.T) {
		obj := &fakeBusObject{err: errors.New("access denied")}
		l := &Logind{connect: func() (caller, error) { return obj, nil }}

		err := l.Restart(context.Background())
		assert.ErrorContains(t, err, "logind reboot: access denied")
	})

	t.Run("no bus", func(t *testing.T) {
		l := &Logind{connect: func() (caller, error) { return nil, errors.New("no bus") }}
		assert.Error(t, l.Restart(context.Background()))
	})
}

func TestExitRestart(t *testing.T) {
	got := -1
	e := NewExit(3)
	e.exit = func(code int) { got = code }

	require.NoError(t, e.Restart(context.Background()))
	assert.Equal(t, 3, got)
}

func TestFromMode(t *testing.T) {
	tests := []struct {
		mode    string
		wantNil bool
		wantErr bool
	}{
		{mode: "logind"},
		{mode: "exit"},
		{mode: "none", wantNil: true},
		{mode: "", wantNil: true},
		{mode: "kexec", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			r, err := FromMode(tt.mode, 0)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNil, r == nil)
		})
	}
}
