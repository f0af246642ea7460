// Package ir provides the structured JSON value model used to script request
// payloads.
//
// Scenario scripts never build request bodies by string concatenation. Every
// payload is an ir.Value assembled from typed builders (or converted from
// decoded YAML, CUE or JSON through FromAny) and serialized only at the
// boundary, by Marshal for wire bodies and MarshalCanonical for golden
// snapshots.
//
// This package imports nothing internal. All other internal packages may
// import ir.
//
// Key design constraints:
//   - Values are a sealed set: Null, String, Int, Float, Bool, Array, Object
//   - Object keys are always emitted in RFC 8785 order (UTF-16 code units)
//   - HTML characters are never escaped in serialized output
//   - NaN and infinities are rejected at construction time
package ir
