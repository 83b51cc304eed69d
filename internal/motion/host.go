package motion

import "context"

// Host is the motion-sensing substrate a Session runs on: a browser page,
// a replayed trace or a synthetic generator.
type Host interface {
	// HasDeviceMotion reports whether the devicemotion feature exists at all.
	HasDeviceMotion() bool

	// AddMotionListener registers fn for raw samples and returns a func
	// that removes it. Hosts may call fn from any goroutine.
	AddMotionListener(fn func(RawSample)) (remove func())
}

// PermissionRequester is implemented by hosts that may expose an explicit
// asynchronous permission prompt (DeviceMotionEvent.requestPermission on
// iOS 13 and later).
type PermissionRequester interface {
	HasPermissionRequest() bool
	RequestPermission(ctx context.Context) (string, error)
}
