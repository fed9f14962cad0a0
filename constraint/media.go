package constraint

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Modality identifies which media family a constraint record describes.
type Modality string

const (
	ModalityAudio  Modality = "audio"
	ModalityVideo  Modality = "video"
	ModalityText   Modality = "text"
	ModalityTensor Modality = "tensor"
	ModalityJSON   Modality = "json"
	ModalityFile   Modality = "file"
)

// SampleFormat is an audio sample encoding.
type SampleFormat string

const (
	SampleS16 SampleFormat = "s16"
	SampleS32 SampleFormat = "s32"
	SampleF32 SampleFormat = "f32"
	SampleF64 SampleFormat = "f64"
)

// PixelFormat is a raw video pixel layout.
type PixelFormat string

const (
	PixelI420  PixelFormat = "i420"
	PixelNV12  PixelFormat = "nv12"
	PixelRGB24 PixelFormat = "rgb24"
	PixelRGBA  PixelFormat = "rgba"
	PixelBGRA  PixelFormat = "bgra"
)

// VideoCodec is a compressed video bitstream format.
type VideoCodec string

const (
	CodecRaw  VideoCodec = "raw"
	CodecH264 VideoCodec = "h264"
	CodecH265 VideoCodec = "h265"
	CodecVP8  VideoCodec = "vp8"
	CodecVP9  VideoCodec = "vp9"
	CodecAV1  VideoCodec = "av1"
)

// TensorDataType is the element type of a tensor.
type TensorDataType string

const (
	TensorF16 TensorDataType = "f16"
	TensorF32 TensorDataType = "f32"
	TensorF64 TensorDataType = "f64"
	TensorI8  TensorDataType = "i8"
	TensorI32 TensorDataType = "i32"
	TensorI64 TensorDataType = "i64"
	TensorU8  TensorDataType = "u8"
)

// TextEncoding is a text byte encoding.
type TextEncoding string

const (
	EncodingUTF8    TextEncoding = "utf-8"
	EncodingUTF16LE TextEncoding = "utf-16le"
	EncodingASCII   TextEncoding = "ascii"
)

// Dims is a tensor shape in canonical "d0xd1x...xdn" form. The canonical
// string keeps shapes inside the same ordered value algebra as every other
// field; Range constraints over Dims are syntactically valid but not
// meaningful, use Exact or Set.
type Dims string

// Shape builds canonical Dims from dimension sizes.
func Shape(dims ...int) Dims {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.Itoa(d)
	}
	return Dims(strings.Join(parts, "x"))
}

// Field path names used in mismatch reports and converter signatures.
const (
	FieldSampleRate  = "sample_rate"
	FieldChannels    = "channels"
	FieldFormat      = "format"
	FieldWidth       = "width"
	FieldHeight      = "height"
	FieldPixelFormat = "pixel_format"
	FieldCodec       = "codec"
	FieldShape       = "shape"
	FieldDType       = "dtype"
	FieldEncoding    = "encoding"
	FieldSchemaID    = "schema_id"
	FieldMIMEType    = "mime_type"

	// FieldModality is the pseudo field path reported when two records
	// disagree on the modality itself; no per-field detail accompanies it.
	FieldModality = "<modality>"
)

// AudioConstraints restricts an audio stream. Zero-value fields are Any.
type AudioConstraints struct {
	SampleRate Value[uint32]
	Channels   Value[uint32]
	Format     Value[SampleFormat]
}

// VideoConstraints restricts a video stream. Zero-value fields are Any.
type VideoConstraints struct {
	Width       Value[uint32]
	Height      Value[uint32]
	PixelFormat Value[PixelFormat]
	Codec       Value[VideoCodec]
}

// TextConstraints restricts a text stream. Zero-value fields are Any.
type TextConstraints struct {
	Encoding Value[TextEncoding]
}

// TensorConstraints restricts a tensor stream. Zero-value fields are Any.
type TensorConstraints struct {
	Shape Value[Dims]
	DType Value[TensorDataType]
}

// JSONConstraints restricts a structured JSON stream. Zero-value fields
// are Any. SchemaID names the schema documents must conform to.
type JSONConstraints struct {
	SchemaID Value[string]
}

// FileConstraints restricts an opaque file stream. Zero-value fields are Any.
type FileConstraints struct {
	MIMEType Value[string]
}

// MediaConstraints is a tagged variant over the six modalities. Exactly the
// record matching Modality is set; the rest are nil.
type MediaConstraints struct {
	Modality Modality

	Audio  *AudioConstraints
	Video  *VideoConstraints
	Text   *TextConstraints
	Tensor *TensorConstraints
	JSON   *JSONConstraints
	File   *FileConstraints
}

// NewAudio wraps an audio record as MediaConstraints.
func NewAudio(a AudioConstraints) MediaConstraints {
	return MediaConstraints{Modality: ModalityAudio, Audio: &a}
}

// NewVideo wraps a video record as MediaConstraints.
func NewVideo(v VideoConstraints) MediaConstraints {
	return MediaConstraints{Modality: ModalityVideo, Video: &v}
}

// NewText wraps a text record as MediaConstraints.
func NewText(t TextConstraints) MediaConstraints {
	return MediaConstraints{Modality: ModalityText, Text: &t}
}

// NewTensor wraps a tensor record as MediaConstraints.
func NewTensor(t TensorConstraints) MediaConstraints {
	return MediaConstraints{Modality: ModalityTensor, Tensor: &t}
}

// NewJSON wraps a JSON record as MediaConstraints.
func NewJSON(j JSONConstraints) MediaConstraints {
	return MediaConstraints{Modality: ModalityJSON, JSON: &j}
}

// NewFile wraps a file record as MediaConstraints.
func NewFile(f FileConstraints) MediaConstraints {
	return MediaConstraints{Modality: ModalityFile, File: &f}
}

// AnyOf returns the widest constraint record for a modality: every field Any.
func AnyOf(m Modality) MediaConstraints {
	switch m {
	case ModalityAudio:
		return NewAudio(AudioConstraints{})
	case ModalityVideo:
		return NewVideo(VideoConstraints{})
	case ModalityText:
		return NewText(TextConstraints{})
	case ModalityTensor:
		return NewTensor(TensorConstraints{})
	case ModalityJSON:
		return NewJSON(JSONConstraints{})
	case ModalityFile:
		return NewFile(FileConstraints{})
	default:
		return MediaConstraints{Modality: m}
	}
}

// MediaCapabilities pairs the input and output constraints a node declares.
// A nil Input marks a source node, a nil Output marks a sink node.
type MediaCapabilities struct {
	Input  *MediaConstraints
	Output *MediaConstraints
}

// FieldMismatch reports one disjoint field between two constraint records.
// Producer and Consumer carry the rendered constraint values.
type FieldMismatch struct {
	Path     string
	Producer string
	Consumer string
}

func (f FieldMismatch) String() string {
	return fmt.Sprintf("%s: producer %s, consumer %s", f.Path, f.Producer, f.Consumer)
}

// Intersect computes the field-wise intersection of two constraint records.
// A modality disagreement yields a single FieldMismatch with Path
// FieldModality and no per-field detail. Otherwise every named field of the
// modality is checked independently and all disjoint fields are reported in
// one pass. The returned record is the narrowed intersection and is only
// meaningful when the mismatch list is empty.
func Intersect(a, b MediaConstraints) (MediaConstraints, []FieldMismatch) {
	if a.Modality != b.Modality {
		return MediaConstraints{}, []FieldMismatch{{
			Path:     FieldModality,
			Producer: string(a.Modality),
			Consumer: string(b.Modality),
		}}
	}

	var misses []FieldMismatch
	out := AnyOf(a.Modality)

	switch a.Modality {
	case ModalityAudio:
		pa, pb := deref(a.Audio), deref(b.Audio)
		intersectField(FieldSampleRate, pa.SampleRate, pb.SampleRate, &out.Audio.SampleRate, &misses)
		intersectField(FieldChannels, pa.Channels, pb.Channels, &out.Audio.Channels, &misses)
		intersectField(FieldFormat, pa.Format, pb.Format, &out.Audio.Format, &misses)
	case ModalityVideo:
		pa, pb := deref(a.Video), deref(b.Video)
		intersectField(FieldWidth, pa.Width, pb.Width, &out.Video.Width, &misses)
		intersectField(FieldHeight, pa.Height, pb.Height, &out.Video.Height, &misses)
		intersectField(FieldPixelFormat, pa.PixelFormat, pb.PixelFormat, &out.Video.PixelFormat, &misses)
		intersectField(FieldCodec, pa.Codec, pb.Codec, &out.Video.Codec, &misses)
	case ModalityText:
		pa, pb := deref(a.Text), deref(b.Text)
		intersectField(FieldEncoding, pa.Encoding, pb.Encoding, &out.Text.Encoding, &misses)
	case ModalityTensor:
		pa, pb := deref(a.Tensor), deref(b.Tensor)
		intersectField(FieldShape, pa.Shape, pb.Shape, &out.Tensor.Shape, &misses)
		intersectField(FieldDType, pa.DType, pb.DType, &out.Tensor.DType, &misses)
	case ModalityJSON:
		pa, pb := deref(a.JSON), deref(b.JSON)
		intersectField(FieldSchemaID, pa.SchemaID, pb.SchemaID, &out.JSON.SchemaID, &misses)
	case ModalityFile:
		pa, pb := deref(a.File), deref(b.File)
		intersectField(FieldMIMEType, pa.MIMEType, pb.MIMEType, &out.File.MIMEType, &misses)
	}

	return out, misses
}

// FieldConstraint returns the rendered constraint for one field path of a
// record, and false for a path the modality does not define.
func (m MediaConstraints) FieldConstraint(path string) (string, bool) {
	for _, f := range m.fieldViews() {
		if f.path == path {
			return f.rendered, true
		}
	}
	return "", false
}

// ConstrainedFields returns the field paths of the record that carry a
// restriction (anything other than Any), in declaration order.
func (m MediaConstraints) ConstrainedFields() []string {
	var paths []string
	for _, f := range m.fieldViews() {
		if !f.any {
			paths = append(paths, f.path)
		}
	}
	return paths
}

// String renders the record for diagnostics, e.g.
// "audio{sample_rate=16000 channels=1 format=f32}".
func (m MediaConstraints) String() string {
	var parts []string
	for _, f := range m.fieldViews() {
		if !f.any {
			parts = append(parts, f.path+f.rendered)
		}
	}
	return fmt.Sprintf("%s{%s}", m.Modality, strings.Join(parts, " "))
}

// FieldTarget returns a concrete value satisfying the named field's
// constraint, for use as a converter parameter: the exact value, the
// smallest set member, or the range minimum. It returns false when the
// field is unconstrained or unknown to the modality.
func (m MediaConstraints) FieldTarget(path string) (any, bool) {
	switch m.Modality {
	case ModalityAudio:
		a := deref(m.Audio)
		switch path {
		case FieldSampleRate:
			return hint(a.SampleRate)
		case FieldChannels:
			return hint(a.Channels)
		case FieldFormat:
			return hint(a.Format)
		}
	case ModalityVideo:
		v := deref(m.Video)
		switch path {
		case FieldWidth:
			return hint(v.Width)
		case FieldHeight:
			return hint(v.Height)
		case FieldPixelFormat:
			return hint(v.PixelFormat)
		case FieldCodec:
			return hint(v.Codec)
		}
	case ModalityText:
		if path == FieldEncoding {
			return hint(deref(m.Text).Encoding)
		}
	case ModalityTensor:
		t := deref(m.Tensor)
		switch path {
		case FieldShape:
			return hint(t.Shape)
		case FieldDType:
			return hint(t.DType)
		}
	case ModalityJSON:
		if path == FieldSchemaID {
			return hint(deref(m.JSON).SchemaID)
		}
	case ModalityFile:
		if path == FieldMIMEType {
			return hint(deref(m.File).MIMEType)
		}
	}
	return nil, false
}

// hint picks the preferred concrete value admitted by a constraint.
func hint[T cmp.Ordered](v Value[T]) (any, bool) {
	switch v.Kind() {
	case KindExact:
		x, _ := v.ExactValue()
		return normalize(x), true
	case KindSet:
		members, _ := v.Members()
		return normalize(members[0]), true
	case KindRange:
		min, _, _ := v.Bounds()
		return normalize(min), true
	default:
		return nil, false
	}
}

// normalize maps named string types and sized integers onto plain JSON
// scalar types so synthesized params survive a JSON round trip unchanged.
func normalize(v any) any {
	switch x := v.(type) {
	case uint32:
		return int(x)
	case SampleFormat:
		return string(x)
	case PixelFormat:
		return string(x)
	case VideoCodec:
		return string(x)
	case TensorDataType:
		return string(x)
	case TextEncoding:
		return string(x)
	case Dims:
		return string(x)
	default:
		return v
	}
}

// fieldView is a type-erased read-only view of one field, used for
// rendering and fingerprinting where the field's T does not matter.
type fieldView struct {
	path     string
	rendered string
	any      bool
}

func (m MediaConstraints) fieldViews() []fieldView {
	mk := func(path string, rendered string, isAny bool) fieldView {
		return fieldView{path: path, rendered: rendered, any: isAny}
	}
	switch m.Modality {
	case ModalityAudio:
		a := deref(m.Audio)
		return []fieldView{
			mk(FieldSampleRate, a.SampleRate.String(), a.SampleRate.IsAny()),
			mk(FieldChannels, a.Channels.String(), a.Channels.IsAny()),
			mk(FieldFormat, a.Format.String(), a.Format.IsAny()),
		}
	case ModalityVideo:
		v := deref(m.Video)
		return []fieldView{
			mk(FieldWidth, v.Width.String(), v.Width.IsAny()),
			mk(FieldHeight, v.Height.String(), v.Height.IsAny()),
			mk(FieldPixelFormat, v.PixelFormat.String(), v.PixelFormat.IsAny()),
			mk(FieldCodec, v.Codec.String(), v.Codec.IsAny()),
		}
	case ModalityText:
		t := deref(m.Text)
		return []fieldView{
			mk(FieldEncoding, t.Encoding.String(), t.Encoding.IsAny()),
		}
	case ModalityTensor:
		t := deref(m.Tensor)
		return []fieldView{
			mk(FieldShape, t.Shape.String(), t.Shape.IsAny()),
			mk(FieldDType, t.DType.String(), t.DType.IsAny()),
		}
	case ModalityJSON:
		j := deref(m.JSON)
		return []fieldView{
			mk(FieldSchemaID, j.SchemaID.String(), j.SchemaID.IsAny()),
		}
	case ModalityFile:
		f := deref(m.File)
		return []fieldView{
			mk(FieldMIMEType, f.MIMEType.String(), f.MIMEType.IsAny()),
		}
	default:
		return nil
	}
}

func intersectField[T cmp.Ordered](path string, a, b Value[T], out *Value[T], misses *[]FieldMismatch) {
	r, ok := Overlaps(a, b)
	if !ok {
		*misses = append(*misses, FieldMismatch{
			Path:     path,
			Producer: a.String(),
			Consumer: b.String(),
		})
		return
	}
	*out = r
}

// deref tolerates a nil modality record by treating it as all-Any.
func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
