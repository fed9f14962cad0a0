package constraint

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// fpMode is the canonical encoder used for fingerprints. Core deterministic
// encoding sorts map keys, so structurally equal records hash identically.
var fpMode cbor.EncMode

func init() {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor deterministic mode: %v", err))
	}
	fpMode = mode
}

// canonicalBytes encodes any canonical structure deterministically.
func canonicalBytes(v any) []byte {
	data, err := fpMode.Marshal(v)
	if err != nil {
		// The canonical forms below are maps of strings and string slices;
		// a marshal failure indicates a bug, not bad input.
		panic(fmt.Sprintf("canonical encode: %v", err))
	}
	return data
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:])
}

// canonical returns the encoding-stable form of a constraint record.
func (m MediaConstraints) canonical() map[string]any {
	fields := map[string]any{}
	for _, f := range m.fieldViews() {
		fields[f.path] = f.rendered
	}
	return map[string]any{
		"modality": string(m.Modality),
		"fields":   fields,
	}
}

// Fingerprint returns a stable SHA-256 hash of the record. Two records
// fingerprint equal exactly when they are structurally equal, which is the
// distinctness test used for passthrough resolution.
func (m MediaConstraints) Fingerprint() string {
	return hashHex(canonicalBytes(m.canonical()))
}

// canonical returns the encoding-stable form of a capability pair. Nil
// sides are omitted entirely, so a source or sink shape never hashes equal
// to an all-Any record.
func (c MediaCapabilities) canonical() map[string]any {
	m := map[string]any{}
	if c.Input != nil {
		m["input"] = c.Input.canonical()
	}
	if c.Output != nil {
		m["output"] = c.Output.canonical()
	}
	return m
}

// Fingerprint returns a stable SHA-256 hash of the capability pair.
func (c MediaCapabilities) Fingerprint() string {
	return hashHex(canonicalBytes(c.canonical()))
}

// CanonicalBytes exposes the deterministic encoding of arbitrary canonical
// structures for callers that aggregate fingerprints (context digests).
func CanonicalBytes(v any) ([]byte, error) {
	return fpMode.Marshal(v)
}
