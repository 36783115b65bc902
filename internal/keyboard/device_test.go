package keyboard

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
)

func TestIsRetryableDeviceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"busy errno", &os.PathError{Op: "open", Path: "/dev/uinput", Err: syscall.EBUSY}, true},
		{"missing node", &os.PathError{Op: "open", Path: "/dev/uinput", Err: syscall.ENOENT}, true},
		{"busy message", errors.New("open /dev/uinput: device or resource busy"), true},
		{"missing node message", errors.New("open /dev/uinput: no such file or directory"), true},
		{"permission errno", &os.PathError{Op: "open", Path: "/dev/uinput", Err: syscall.EACCES}, false},
		{"permission message", errors.New("open /dev/uinput: permission denied"), false},
		{"cancelled", context.Canceled, false},
		{"unrelated", errors.New("invalid key code"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableDeviceError(tt.err); got != tt.want {
				t.Errorf("IsRetryableDeviceError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
