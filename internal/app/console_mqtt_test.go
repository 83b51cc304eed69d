package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/devicemotion/internal/motion"
	"github.com/relabs-tech/devicemotion/internal/platform"
)

func TestFormatSample(t *testing.T) {
	line := formatSample(SampleMessage{
		Client:                       "0123456789abcdef",
		Time:                         1.5,
		AccelerationIncludingGravity: &motion.Axes{X: 1, Y: -2, Z: 9.81},
		RotationRate:                 &motion.Rates{Alpha: 30, Beta: 10, Gamma: 20},
		Interval:                     16,
	})

	assert.Equal(t,
		"[MOTION] client=01234567 t=   1.50s  accG x=  1.00 y= -2.00 z=  9.81  gyro a=  30.00 b=  10.00 g=  20.00  dt=16.0ms",
		line)
}

func TestFormatStatus(t *testing.T) {
	v := 64
	line := formatStatus(StatusMessage{
		Client:       "abc",
		Platform:     platform.Info{OS: platform.Android, Browser: platform.Chrome, Version: &v},
		Permission:   motion.Granted,
		Availability: motion.FieldAvailability{AccelerationIncludingGravity: true, RotationRate: true},
	})
	assert.Equal(t, "[PERM]  client=abc platform=android/chrome 64 permission=granted fields=accG,gyro", line)

	line = formatStatus(StatusMessage{
		Client:     "abc",
		Platform:   platform.Info{OS: platform.MacOS, Browser: platform.Chrome},
		Permission: motion.Denied,
		Reason:     motion.ErrProbeTimeout.Error(),
	})
	assert.Equal(t, "[PERM]  client=abc platform=macos/chrome permission=denied reason=no devicemotion event received", line)
}

func TestThrottle(t *testing.T) {
	th := newThrottle(100 * time.Millisecond)
	now := time.Now()

	assert.True(t, th.allow("a", now))
	assert.False(t, th.allow("a", now.Add(50*time.Millisecond)))
	assert.True(t, th.allow("b", now.Add(50*time.Millisecond)))
	assert.True(t, th.allow("a", now.Add(100*time.Millisecond)))
}
