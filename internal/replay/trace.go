// Package replay plays recorded devicemotion traces as a motion.Host.
package replay

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/devicemotion/internal/motion"
	"github.com/relabs-tech/devicemotion/internal/platform"
)

// Trace is a recorded browser session.
type Trace struct {
	UserAgent string `yaml:"user_agent"`
	// MaxTouchPoints is navigator.maxTouchPoints, needed to tell iPadOS
	// desktop-mode pages from Macs.
	MaxTouchPoints int `yaml:"max_touch_points"`
	// HasDeviceMotion defaults to true when omitted.
	HasDeviceMotion *bool `yaml:"has_device_motion"`
	// Permission is the answer of DeviceMotionEvent.requestPermission.
	// Empty means the page has no such primitive.
	Permission string  `yaml:"permission"`
	Events     []Event `yaml:"events"`
}

// Event is one raw sample, fired DelayMS after the previous one.
type Event struct {
	DelayMS          int `yaml:"delay_ms"`
	motion.RawSample `yaml:",inline"`
}

// Parse decodes a YAML trace.
func Parse(data []byte) (*Trace, error) {
	var tr Trace
	if err := yaml.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("replay: decode trace: %w", err)
	}
	for i, ev := range tr.Events {
		if ev.DelayMS < 0 {
			return nil, fmt.Errorf("replay: event %d: negative delay_ms %d", i, ev.DelayMS)
		}
	}
	return &tr, nil
}

// Load reads and decodes a YAML trace file.
func Load(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("replay: read trace: %w", err)
	}
	return Parse(data)
}

// Platform returns the platform detected from the trace's user agent.
func (t *Trace) Platform() platform.Info {
	return platform.DetectWith(t.UserAgent, t.MaxTouchPoints)
}

// Host replays a Trace. Every registered listener receives the whole event
// sequence from the start.
type Host struct {
	trace *Trace

	doneOnce sync.Once
	done     chan struct{}
}

// NewHost creates a host for trace.
func NewHost(trace *Trace) *Host {
	return &Host{trace: trace, done: make(chan struct{})}
}

func (h *Host) HasDeviceMotion() bool {
	return h.trace.HasDeviceMotion == nil || *h.trace.HasDeviceMotion
}

func (h *Host) HasPermissionRequest() bool {
	return h.trace.Permission != ""
}

func (h *Host) RequestPermission(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return h.trace.Permission, nil
}

// AddMotionListener starts playing the trace to fn.
func (h *Host) AddMotionListener(fn func(motion.RawSample)) func() {
	stop := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		defer h.doneOnce.Do(func() { close(h.done) })
		for _, ev := range h.trace.Events {
			if ev.DelayMS > 0 {
				timer := time.NewTimer(time.Duration(ev.DelayMS) * time.Millisecond)
				select {
				case <-stop:
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			select {
			case <-stop:
				return
			default:
			}
			fn(ev.RawSample)
		}
	}()

	return func() { stopOnce.Do(func() { close(stop) }) }
}

// Done is closed once a playback has ended or was removed.
func (h *Host) Done() <-chan struct{} {
	return h.done
}
