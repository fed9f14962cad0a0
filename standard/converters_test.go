package standard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/machinefabric/capneg-go/constraint"
	"github.com/machinefabric/capneg-go/convert"
)

func TestRegisterInstallsEveryBuiltin(t *testing.T) {
	r := convert.NewRegistry()
	require.NoError(t, Register(r))

	defs := r.Definitions()
	assert.Len(t, defs, 7)

	for _, name := range []string{
		NodeAudioResample,
		NodeAudioChannelMix,
		NodeAudioSampleFormat,
		NodeVideoPixelFormat,
		NodeVideoScale,
		NodeVideoTranscode,
		NodeTextTranscode,
	} {
		_, ok := r.Definition(name)
		assert.True(t, ok, "missing builtin %s", name)
	}
}

func TestBuiltinsBridgeCommonAudioMismatch(t *testing.T) {
	r := convert.NewRegistry()
	require.NoError(t, Register(r))

	producer := constraint.NewAudio(constraint.AudioConstraints{
		SampleRate: constraint.Exact[uint32](44100),
		Channels:   constraint.Exact[uint32](2),
		Format:     constraint.Exact(constraint.SampleF32),
	})
	consumer := constraint.NewAudio(constraint.AudioConstraints{
		SampleRate: constraint.Exact[uint32](16000),
		Channels:   constraint.Exact[uint32](1),
		Format:     constraint.Exact(constraint.SampleF32),
	})

	path, uncovered := r.FindPath(producer, consumer)
	require.NotNil(t, path)
	assert.Empty(t, uncovered)
	assert.Len(t, path.Steps, 2)
}

func TestResamplerParamsCarryDefaults(t *testing.T) {
	r := convert.NewRegistry()
	require.NoError(t, Register(r))

	producer := constraint.NewAudio(constraint.AudioConstraints{
		SampleRate: constraint.Exact[uint32](44100),
	})
	consumer := constraint.NewAudio(constraint.AudioConstraints{
		SampleRate: constraint.Exact[uint32](16000),
	})

	path, _ := r.FindPath(producer, consumer)
	require.NotNil(t, path)
	require.Len(t, path.Steps, 1)
	assert.Equal(t, NodeAudioResample, path.Steps[0].NodeType)
	assert.Equal(t, 16000, path.Steps[0].Params["sample_rate"])
	assert.Equal(t, "high", path.Steps[0].Params["quality"])
}

func TestBuiltinVideoScaleCoversBothDimensions(t *testing.T) {
	r := convert.NewRegistry()
	require.NoError(t, Register(r))

	producer := constraint.NewVideo(constraint.VideoConstraints{
		Width:  constraint.Exact[uint32](1920),
		Height: constraint.Exact[uint32](1080),
	})
	consumer := constraint.NewVideo(constraint.VideoConstraints{
		Width:  constraint.Exact[uint32](640),
		Height: constraint.Exact[uint32](360),
	})

	path, uncovered := r.FindPath(producer, consumer)
	require.NotNil(t, path)
	assert.Empty(t, uncovered)
	require.Len(t, path.Steps, 1)
	assert.Equal(t, NodeVideoScale, path.Steps[0].NodeType)
	assert.Equal(t, 640, path.Steps[0].Params["width"])
	assert.Equal(t, 360, path.Steps[0].Params["height"])
}
