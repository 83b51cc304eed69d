package motion

// emit rewrites raw into the shared sample and hands it to every listener.
// Emissions are serialized on emitMu so the shared sample is never written
// while a listener is still reading it.
func (s *Session) emit(raw RawSample, avail FieldAvailability, listeners []Listener) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.normalize(raw, avail, &s.sample)
	for _, l := range listeners {
		l.HandleMotion(&s.sample)
	}
}

// normalize writes the corrected version of raw into out. Groups that are
// not available on the platform, or missing from this particular event,
// keep their previous values.
func (s *Session) normalize(raw RawSample, avail FieldAvailability, out *Sample) {
	if avail.AccelerationIncludingGravity && raw.AccelerationIncludingGravity != nil {
		out.AccelerationIncludingGravity = scaleAxes(raw.AccelerationIncludingGravity, s.accelSign)
	}
	if avail.Acceleration && raw.Acceleration != nil {
		out.Acceleration = scaleAxes(raw.Acceleration, s.accelSign)
	}

	// Every tested platform labels the rotation axes differently from the
	// W3C definition: reported gamma is alpha, alpha is beta, beta is gamma.
	// The permutation may be wrong on a platform that gets it right.
	if avail.RotationRate && raw.RotationRate != nil {
		out.RotationRate = Rates{
			Alpha: value(raw.RotationRate.Gamma) * s.rotationScale,
			Beta:  value(raw.RotationRate.Alpha) * s.rotationScale,
			Gamma: value(raw.RotationRate.Beta) * s.rotationScale,
		}
	}

	out.Interval = raw.Interval * s.intervalScale
}

func scaleAxes(v *Vector, k float64) Axes {
	return Axes{
		X: value(v.X) * k,
		Y: value(v.Y) * k,
		Z: value(v.Z) * k,
	}
}

// value treats a missing axis as zero.
func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
