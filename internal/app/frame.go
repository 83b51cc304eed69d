package app

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/relabs-tech/devicemotion/internal/motion"
)

// FrameSize is the encoded size of a Frame in bytes.
const FrameSize = 8 * 4

// Frame is the compact sensor message consumed by signal loggers:
// client id, accelerationIncludingGravity, rotationRate and the time in
// seconds since the client's session started, all float32 little endian.
type Frame struct {
	ID                 float32
	AccX, AccY, AccZ   float32
	Alpha, Beta, Gamma float32
	Time               float32
}

// NewFrame builds a frame from a normalized sample.
func NewFrame(id uint32, s *motion.Sample, seconds float64) Frame {
	return Frame{
		ID:    float32(id),
		AccX:  float32(s.AccelerationIncludingGravity.X),
		AccY:  float32(s.AccelerationIncludingGravity.Y),
		AccZ:  float32(s.AccelerationIncludingGravity.Z),
		Alpha: float32(s.RotationRate.Alpha),
		Beta:  float32(s.RotationRate.Beta),
		Gamma: float32(s.RotationRate.Gamma),
		Time:  float32(seconds),
	}
}

// MarshalBinary encodes the frame.
func (f Frame) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, FrameSize))
	if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a frame.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) != FrameSize {
		return fmt.Errorf("decode frame: got %d bytes, want %d", len(data), FrameSize)
	}
	return binary.Read(bytes.NewReader(data), binary.LittleEndian, f)
}
