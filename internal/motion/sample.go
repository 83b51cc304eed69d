package motion

// Vector is a raw acceleration triple in m/s². Axes are nil when the
// platform did not report them.
type Vector struct {
	X *float64 `json:"x" yaml:"x"`
	Y *float64 `json:"y" yaml:"y"`
	Z *float64 `json:"z" yaml:"z"`
}

// Rotation is a raw rotation rate triple as labeled by the platform.
type Rotation struct {
	Alpha *float64 `json:"alpha" yaml:"alpha"`
	Beta  *float64 `json:"beta" yaml:"beta"`
	Gamma *float64 `json:"gamma" yaml:"gamma"`
}

// RawSample mirrors a devicemotion event as delivered by the host.
// Interval is in the platform's native unit (seconds on iOS, ms elsewhere).
type RawSample struct {
	AccelerationIncludingGravity *Vector   `json:"accelerationIncludingGravity" yaml:"acceleration_including_gravity"`
	Acceleration                 *Vector   `json:"acceleration" yaml:"acceleration"`
	RotationRate                 *Rotation `json:"rotationRate" yaml:"rotation_rate"`
	Interval                     float64   `json:"interval" yaml:"interval"`
}

func (v *Vector) complete() bool {
	return v != nil && v.X != nil && v.Y != nil && v.Z != nil
}

func (r *Rotation) complete() bool {
	return r != nil && r.Alpha != nil && r.Beta != nil && r.Gamma != nil
}

// Axes is a normalized acceleration in m/s².
type Axes struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Rates is a normalized rotation rate in deg/s.
type Rates struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// Sample is the normalized motion event handed to listeners. The session
// reuses one Sample for every emission, so listeners must copy it if they
// keep it past the callback.
type Sample struct {
	AccelerationIncludingGravity Axes    `json:"accelerationIncludingGravity"`
	Acceleration                 Axes    `json:"acceleration"`
	RotationRate                 Rates   `json:"rotationRate"`
	Interval                     float64 `json:"interval"` // ms
}

// FieldAvailability records which groups of a Sample the platform fills.
type FieldAvailability struct {
	AccelerationIncludingGravity bool `json:"accelerationIncludingGravity"`
	Acceleration                 bool `json:"acceleration"`
	RotationRate                 bool `json:"rotationRate"`
}

func availabilityOf(raw RawSample) FieldAvailability {
	return FieldAvailability{
		AccelerationIncludingGravity: raw.AccelerationIncludingGravity.complete(),
		Acceleration:                 raw.Acceleration.complete(),
		RotationRate:                 raw.RotationRate.complete(),
	}
}

// Float returns a pointer to v, for building raw samples.
func Float(v float64) *float64 {
	return &v
}

// NewVector builds a fully populated raw acceleration.
func NewVector(x, y, z float64) *Vector {
	return &Vector{X: Float(x), Y: Float(y), Z: Float(z)}
}

// NewRotation builds a fully populated raw rotation rate.
func NewRotation(alpha, beta, gamma float64) *Rotation {
	return &Rotation{Alpha: Float(alpha), Beta: Float(beta), Gamma: Float(gamma)}
}
