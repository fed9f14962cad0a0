package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stereo44k() MediaConstraints {
	return NewAudio(AudioConstraints{
		SampleRate: Exact[uint32](44100),
		Channels:   Exact[uint32](2),
		Format:     Exact(SampleF32),
	})
}

func mono16k() MediaConstraints {
	return NewAudio(AudioConstraints{
		SampleRate: Exact[uint32](16000),
		Channels:   Exact[uint32](1),
		Format:     Exact(SampleF32),
	})
}

func TestIntersectCollectsEveryFieldMismatch(t *testing.T) {
	_, misses := Intersect(stereo44k(), mono16k())

	// sample_rate and channels are disjoint, format agrees: exactly two
	// entries, never short-circuited to one.
	require.Len(t, misses, 2)
	assert.Equal(t, FieldSampleRate, misses[0].Path)
	assert.Equal(t, FieldChannels, misses[1].Path)
}

func TestIntersectNarrowsOnSuccess(t *testing.T) {
	producer := NewAudio(AudioConstraints{
		SampleRate: MustRange[uint32](8000, 48000),
		Channels:   MustSet[uint32](1, 2),
	})
	consumer := NewAudio(AudioConstraints{
		SampleRate: Exact[uint32](16000),
		Format:     Exact(SampleS16),
	})

	narrowed, misses := Intersect(producer, consumer)
	require.Empty(t, misses)

	rate, ok := narrowed.Audio.SampleRate.ExactValue()
	require.True(t, ok)
	assert.Equal(t, uint32(16000), rate)

	channels, ok := narrowed.Audio.Channels.Members()
	require.True(t, ok)
	assert.Equal(t, []uint32{1, 2}, channels)

	format, ok := narrowed.Audio.Format.ExactValue()
	require.True(t, ok)
	assert.Equal(t, SampleS16, format)
}

func TestIntersectModalityMismatchIsSingleEntry(t *testing.T) {
	audio := stereo44k()
	video := NewVideo(VideoConstraints{Codec: Exact(CodecH264)})

	_, misses := Intersect(audio, video)
	require.Len(t, misses, 1)
	assert.Equal(t, FieldModality, misses[0].Path)
	assert.Equal(t, "audio", misses[0].Producer)
	assert.Equal(t, "video", misses[0].Consumer)
}

func TestConstrainedFields(t *testing.T) {
	m := NewVideo(VideoConstraints{
		Width: Exact[uint32](1920),
		Codec: Exact(CodecH264),
	})
	assert.Equal(t, []string{FieldWidth, FieldCodec}, m.ConstrainedFields())

	wide := AnyOf(ModalityAudio)
	assert.Empty(t, wide.ConstrainedFields())
}

func TestFieldTarget(t *testing.T) {
	m := NewAudio(AudioConstraints{
		SampleRate: Exact[uint32](16000),
		Channels:   MustRange[uint32](1, 2),
		Format:     MustSet(SampleF32, SampleS16),
	})

	rate, ok := m.FieldTarget(FieldSampleRate)
	require.True(t, ok)
	assert.Equal(t, 16000, rate)

	channels, ok := m.FieldTarget(FieldChannels)
	require.True(t, ok)
	assert.Equal(t, 1, channels)

	format, ok := m.FieldTarget(FieldFormat)
	require.True(t, ok)
	assert.Equal(t, "f32", format)

	_, ok = m.FieldTarget(FieldCodec)
	assert.False(t, ok)

	_, ok = AnyOf(ModalityAudio).FieldTarget(FieldSampleRate)
	assert.False(t, ok, "unconstrained field has no target")
}

func TestShape(t *testing.T) {
	assert.Equal(t, Dims("1x3x224x224"), Shape(1, 3, 224, 224))

	a := NewTensor(TensorConstraints{Shape: Exact(Shape(1, 512)), DType: Exact(TensorF32)})
	b := NewTensor(TensorConstraints{Shape: Exact(Shape(1, 768)), DType: Exact(TensorF32)})
	_, misses := Intersect(a, b)
	require.Len(t, misses, 1)
	assert.Equal(t, FieldShape, misses[0].Path)
}

func TestStringRendering(t *testing.T) {
	m := mono16k()
	assert.Equal(t, "audio{sample_rate=16000 channels=1 format=f32}", m.String())
	assert.Equal(t, "audio{}", AnyOf(ModalityAudio).String())
}
