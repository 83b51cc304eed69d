// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/relabs-tech/devicemotion/internal/platform"
)

// DefaultProbeTimeout is how long the availability probe waits for a first
// event before deciding the platform never fires devicemotion.
const DefaultProbeTimeout = 1000 * time.Millisecond

const radToDeg = 180 / math.Pi

// PermissionState is the outcome of the permission gate.
type PermissionState string

const (
	Unrequested PermissionState = "unrequested"
	Granted     PermissionState = "granted"
	Denied      PermissionState = "denied"
)

// Reasons for a Denied state, see Session.Reason.
var (
	ErrCapabilityAbsent  = errors.New("devicemotion not supported")
	ErrPermissionRefused = errors.New("permission refused")
	ErrProbeTimeout      = errors.New("no devicemotion event received")
)

type handlerMode int

const (
	modeIdle handlerMode = iota
	modeProbing
	modeNormalizing
)

// Options tunes a Session.
type Options struct {
	ProbeTimeout time.Duration // defaults to DefaultProbeTimeout
}

// Session owns the permission state, the availability record and the
// listener set for one host. Sessions are independent of each other.
type Session struct {
	host         Host
	info         platform.Info
	probeTimeout time.Duration

	// per-platform corrections, fixed at construction
	accelSign     float64
	intervalScale float64
	rotationScale float64

	group singleflight.Group

	mu           sync.Mutex
	state        PermissionState
	reason       error
	mode         handlerMode
	availability FieldAvailability
	leadSkipped  int
	probeTimer   *time.Timer
	probeDone    chan bool
	removeHost   func()
	listeners    map[Listener]struct{}

	emitMu sync.Mutex
	sample Sample
}

// NewSession creates a session for host running on the given platform.
func NewSession(host Host, info platform.Info, opts Options) *Session {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}

	s := &Session{
		host:          host,
		info:          info,
		probeTimeout:  opts.ProbeTimeout,
		accelSign:     1,
		intervalScale: 1,
		rotationScale: 1,
		state:         Unrequested,
		listeners:     make(map[Listener]struct{}),
	}

	// iOS inverts acceleration axes and reports the interval in seconds.
	if info.OS == platform.IOS {
		s.accelSign = -1
		s.intervalScale = 1000
	}
	// Chrome Android before 65 reported rotation rate in rad/s.
	// cf. https://bugs.chromium.org/p/chromium/issues/detail?id=541607
	if info.IsAndroidChrome() && info.Version != nil && *info.Version < 65 {
		s.rotationScale = radToDeg
	}
	return s
}

// Platform returns the platform the session was created for.
func (s *Session) Platform() platform.Info {
	return s.info
}

// State returns the current permission state without prompting.
func (s *Session) State() PermissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reason explains a Denied state. It is nil otherwise.
func (s *Session) Reason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// FieldAvailability returns which sample groups the platform provides. It
// is only meaningful once the session is Granted.
func (s *Session) FieldAvailability() FieldAvailability {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.availability
}

// RequestPermission runs the permission gate. The first resolution is
// final: later calls return it without prompting the host again.
// Concurrent callers share a single prompt and probe. If ctx is done
// before resolution the current (unresolved) state is returned and the
// sequence keeps running for the other callers.
func (s *Session) RequestPermission(ctx context.Context) PermissionState {
	if st := s.State(); st != Unrequested {
		return st
	}

	ch := s.group.DoChan("permission", func() (any, error) {
		return s.resolve(context.WithoutCancel(ctx)), nil
	})

	select {
	case res := <-ch:
		return res.Val.(PermissionState)
	case <-ctx.Done():
		return s.State()
	}
}

func (s *Session) resolve(ctx context.Context) PermissionState {
	// a previous flight may have finished between State() and DoChan
	if st := s.State(); st != Unrequested {
		return st
	}

	var reason error
	if !s.host.HasDeviceMotion() {
		reason = ErrCapabilityAbsent
	} else {
		if pr, ok := s.host.(PermissionRequester); ok && pr.HasPermissionRequest() {
			answer, err := pr.RequestPermission(ctx)
			switch {
			case err != nil:
				log.Printf("motion: permission prompt failed: %v", err)
				reason = fmt.Errorf("%w: %v", ErrPermissionRefused, err)
			case answer != string(Granted):
				reason = fmt.Errorf("%w: %q", ErrPermissionRefused, answer)
			}
		}
		if reason == nil && !s.probe() {
			reason = ErrProbeTimeout
		}
	}

	state := Granted
	if reason != nil {
		state = Denied
	}

	s.mu.Lock()
	s.state = state
	s.reason = reason
	s.mu.Unlock()

	if reason != nil {
		log.Printf("motion: permission %s on %s: %v", state, s.info, reason)
	} else {
		log.Printf("motion: permission %s on %s (available: %+v)", state, s.info, s.FieldAvailability())
	}
	return state
}

// probe registers the host listener and waits until either the first
// trustworthy event or the timeout decides availability.
func (s *Session) probe() bool {
	done := make(chan bool, 1)

	s.mu.Lock()
	s.mode = modeProbing
	s.probeDone = done
	s.probeTimer = time.AfterFunc(s.probeTimeout, s.probeExpired)
	s.mu.Unlock()

	remove := s.host.AddMotionListener(s.process)

	s.mu.Lock()
	if s.mode == modeIdle {
		// timed out while registering
		s.mu.Unlock()
		remove()
	} else {
		s.removeHost = remove
		s.mu.Unlock()
	}

	return <-done
}

func (s *Session) probeExpired() {
	s.mu.Lock()
	if s.mode != modeProbing {
		s.mu.Unlock()
		return
	}
	s.mode = modeIdle
	remove := s.removeHost
	s.removeHost = nil
	done := s.probeDone
	s.mu.Unlock()

	if remove != nil {
		remove()
	}
	done <- false
}

// process is the single host callback. It dispatches to the probe while
// availability is undecided and to the normalizer afterwards.
func (s *Session) process(raw RawSample) {
	s.mu.Lock()
	switch s.mode {
	case modeProbing:
		s.check(raw)
		s.mu.Unlock()
	case modeNormalizing:
		if len(s.listeners) == 0 {
			s.mu.Unlock()
			return
		}
		listeners := make([]Listener, 0, len(s.listeners))
		for l := range s.listeners {
			listeners = append(listeners, l)
		}
		avail := s.availability
		s.mu.Unlock()
		s.emit(raw, avail, listeners)
	default:
		s.mu.Unlock()
	}
}

// check decides availability from the first trustworthy event. Called
// with s.mu held.
func (s *Session) check(raw RawSample) {
	// Firefox Android reports null accelerationIncludingGravity on the
	// first event even when the sensor exists, so wait for a second one.
	// The timer keeps running across the skipped event: a page that fires
	// only once resolves denied instead of waiting forever.
	if s.info.IsAndroidFirefox() && s.leadSkipped < 1 {
		s.leadSkipped++
		return
	}

	if !s.probeTimer.Stop() {
		// the timeout already fired and owns the outcome
		return
	}
	s.availability = availabilityOf(raw)
	s.mode = modeNormalizing
	s.probeDone <- true
}
