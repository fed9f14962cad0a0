package capneg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/machinefabric/capneg-go/constraint"
)

func TestValidateConnectionNarrows(t *testing.T) {
	out := constraint.NewAudio(constraint.AudioConstraints{
		SampleRate: constraint.MustRange[uint32](8000, 48000),
		Channels:   constraint.Exact[uint32](2),
	})
	in := constraint.NewAudio(constraint.AudioConstraints{
		SampleRate: constraint.Exact[uint32](16000),
	})

	narrowed, misses := ValidateConnection(out, in)
	require.Empty(t, misses)

	rate, ok := narrowed.Audio.SampleRate.ExactValue()
	require.True(t, ok)
	assert.Equal(t, uint32(16000), rate)

	channels, ok := narrowed.Audio.Channels.ExactValue()
	require.True(t, ok)
	assert.Equal(t, uint32(2), channels)
}

func TestValidateConnectionAccumulatesAllFields(t *testing.T) {
	out := constraint.NewAudio(constraint.AudioConstraints{
		SampleRate: constraint.Exact[uint32](44100),
		Channels:   constraint.Exact[uint32](2),
	})
	in := constraint.NewAudio(constraint.AudioConstraints{
		SampleRate: constraint.Exact[uint32](16000),
		Channels:   constraint.Exact[uint32](1),
	})

	_, misses := ValidateConnection(out, in)
	require.Len(t, misses, 2)

	assert.Equal(t, constraint.FieldSampleRate, misses[0].FieldPath)
	assert.Equal(t, "=16000", misses[0].Expected)
	assert.Equal(t, "=44100", misses[0].Actual)
	assert.Equal(t, constraint.FieldChannels, misses[1].FieldPath)

	// Attribution is the resolver's job.
	assert.Empty(t, misses[0].AtNode)
	assert.Empty(t, misses[0].Severity)
}
