// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/relabs-tech/devicemotion/internal/config"
	"github.com/relabs-tech/devicemotion/internal/motion"
	"github.com/relabs-tech/devicemotion/internal/platform"
)

// mockUserAgent is the page the mock host pretends to be.
const mockUserAgent = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.43 Mobile Safari/537.36"

// RunMockConsole prints normalized samples from a synthetic host.
func RunMockConsole() error {
	cfg := config.Get()

	sess := motion.NewSession(motion.NewMockHost(cfg.MockInterval()), platform.Detect(mockUserAgent),
		motion.Options{ProbeTimeout: cfg.ProbeTimeout()})
	if st := sess.RequestPermission(context.Background()); st != motion.Granted {
		return fmt.Errorf("mock host permission %s: %w", st, sess.Reason())
	}

	var (
		mu     sync.Mutex
		latest motion.Sample
	)
	cancel := sess.Subscribe(func(s *motion.Sample) {
		mu.Lock()
		latest = *s
		mu.Unlock()
	})
	defer cancel()

	ticker := time.NewTicker(time.Duration(cfg.ConsoleLogInterval) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		mu.Lock()
		s := latest
		mu.Unlock()

		fmt.Printf(
			"ACC  x=%6.2f y=%6.2f z=%6.2f  GYRO a=%7.2f b=%7.2f g=%7.2f  dt=%.0fms\n",
			s.AccelerationIncludingGravity.X,
			s.AccelerationIncludingGravity.Y,
			s.AccelerationIncludingGravity.Z,
			s.RotationRate.Alpha,
			s.RotationRate.Beta,
			s.RotationRate.Gamma,
			s.Interval,
		)
	}
	return nil
}
