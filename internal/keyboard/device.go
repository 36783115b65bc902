package keyboard

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"syscall"
)

// transientDeviceErrors are the messages of virtual keyboard open failures
// that clear on their own: the uinput node is still being created by udev
// or another process holds it.
var transientDeviceErrors = []string{
	"device or resource busy",
	"resource temporarily unavailable",
	"no such file or directory",
	"no such device",
}

// IsRetryableDeviceError reports whether opening the virtual keyboard may
// succeed on a later attempt. Permission errors are final: they need the
// user added to the input group, not a retry.
func IsRetryableDeviceError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, fs.ErrPermission) {
		return false
	}
	if errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.ENODEV) {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission denied") {
		return false
	}
	for _, s := range transientDeviceErrors {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
