// Package standard bundles the built-in converter catalog every pipeline
// runtime registers at startup before resolution begins.
package standard

import (
	"github.com/machinefabric/capneg-go/constraint"
	"github.com/machinefabric/capneg-go/convert"
)

// Built-in converter node types.
const (
	NodeAudioResample     = "audio.resample"
	NodeAudioChannelMix   = "audio.channel-mix"
	NodeAudioSampleFormat = "audio.sample-format"
	NodeVideoPixelFormat  = "video.pixel-format"
	NodeVideoScale        = "video.scale"
	NodeVideoTranscode    = "video.transcode"
	NodeTextTranscode     = "text.transcode"
)

// Definitions returns the built-in converter definitions in registration
// order. The slice is freshly allocated on every call.
func Definitions() []convert.Definition {
	return []convert.Definition{
		{
			NodeType:    NodeAudioResample,
			From:        constraint.ModalityAudio,
			To:          constraint.ModalityAudio,
			Fields:      []string{constraint.FieldSampleRate},
			Description: "Converts audio between sample rates.",
			ParamsSchema: map[string]any{
				"type":     "object",
				"required": []any{"sample_rate"},
				"properties": map[string]any{
					"sample_rate": map[string]any{"type": "integer", "minimum": 1},
					"quality":     map[string]any{"type": "string", "enum": []any{"low", "medium", "high"}},
				},
			},
			DefaultParams: map[string]any{"quality": "high"},
		},
		{
			NodeType:    NodeAudioChannelMix,
			From:        constraint.ModalityAudio,
			To:          constraint.ModalityAudio,
			Fields:      []string{constraint.FieldChannels},
			Description: "Up- or down-mixes audio channel layouts.",
			ParamsSchema: map[string]any{
				"type":     "object",
				"required": []any{"channels"},
				"properties": map[string]any{
					"channels": map[string]any{"type": "integer", "minimum": 1},
				},
			},
		},
		{
			NodeType:    NodeAudioSampleFormat,
			From:        constraint.ModalityAudio,
			To:          constraint.ModalityAudio,
			Fields:      []string{constraint.FieldFormat},
			Description: "Converts between audio sample formats.",
		},
		{
			NodeType:    NodeVideoPixelFormat,
			From:        constraint.ModalityVideo,
			To:          constraint.ModalityVideo,
			Fields:      []string{constraint.FieldPixelFormat},
			Description: "Converts between raw pixel layouts.",
		},
		{
			NodeType:    NodeVideoScale,
			From:        constraint.ModalityVideo,
			To:          constraint.ModalityVideo,
			Fields:      []string{constraint.FieldWidth, constraint.FieldHeight},
			Description: "Scales video frames.",
		},
		{
			NodeType:    NodeVideoTranscode,
			From:        constraint.ModalityVideo,
			To:          constraint.ModalityVideo,
			Fields:      []string{constraint.FieldCodec},
			Description: "Transcodes between video codecs.",
		},
		{
			NodeType:    NodeTextTranscode,
			From:        constraint.ModalityText,
			To:          constraint.ModalityText,
			Fields:      []string{constraint.FieldEncoding},
			Description: "Converts between text encodings.",
		},
	}
}

// Register installs every built-in converter into the registry.
func Register(r *convert.Registry) error {
	for _, def := range Definitions() {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}
