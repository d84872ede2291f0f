// Package value provides the dynamic state values used by declarative
// scenarios.
//
// Scenario states, payloads and handler results are decoded from YAML or
// computed by CUE, so they have no Go type of their own. Value is a closed
// set of JSON-shaped types that reducers can thread as *Object and that
// serialise to one canonical byte form for golden files and the journal.
//
// Key design constraints:
//   - NO float types: numbers are int64 so traces compare byte for byte
//   - Object keys serialise in RFC 8785 order (UTF-16 code units)
//   - Strings are NFC normalised at the serialisation boundary
package value
