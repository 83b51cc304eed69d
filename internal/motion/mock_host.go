// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"math"
	"sync"
	"time"
)

type mockHost struct {
	start    time.Time
	interval time.Duration

	mu      sync.Mutex
	nextID  int
	cancels map[int]chan struct{}
}

// NewMockHost creates a host that fires smooth synthetic devicemotion
// events every interval, shaped like a Chrome Android page.
func NewMockHost(interval time.Duration) Host {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &mockHost{
		start:    time.Now(),
		interval: interval,
		cancels:  make(map[int]chan struct{}),
	}
}

func (m *mockHost) HasDeviceMotion() bool { return true }

func (m *mockHost) AddMotionListener(fn func(RawSample)) func() {
	stop := make(chan struct{})

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.cancels[id] = stop
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fn(m.next())
			}
		}
	}()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.cancels[id]; ok {
			close(c)
			delete(m.cancels, id)
		}
	}
}

// next produces a device slowly rocking around its resting position.
func (m *mockHost) next() RawSample {
	elapsed := time.Since(m.start).Seconds()

	ax := 2 * math.Sin(elapsed)
	ay := 1.5 * math.Cos(elapsed*0.7)
	az := 9.81

	return RawSample{
		AccelerationIncludingGravity: NewVector(ax, ay, az),
		Acceleration:                 NewVector(ax, ay, 0),
		// raw labels as the browsers report them
		RotationRate: NewRotation(
			-105*math.Sin(elapsed*0.7),
			30,
			115*math.Cos(elapsed),
		),
		Interval: float64(m.interval.Milliseconds()),
	}
}
