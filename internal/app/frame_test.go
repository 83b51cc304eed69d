package app

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/devicemotion/internal/motion"
)

func TestFrame_RoundTrip(t *testing.T) {
	s := &motion.Sample{
		AccelerationIncludingGravity: motion.Axes{X: -1.5, Y: 9.75, Z: 0.25},
		RotationRate:                 motion.Rates{Alpha: 30, Beta: -10, Gamma: 20},
		Interval:                     16,
	}
	want := NewFrame(3, s, 1.5)

	data, err := want.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, FrameSize)
	// id is the first little endian float32: 3.0 = 0x40400000
	assert.Equal(t, []byte{0x00, 0x00, 0x40, 0x40}, data[:4])

	var got Frame
	require.NoError(t, got.UnmarshalBinary(data))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, float32(1.5), got.Time)
}

func TestFrame_UnmarshalShort(t *testing.T) {
	var f Frame
	err := f.UnmarshalBinary(make([]byte, FrameSize-1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 31 bytes")
}
