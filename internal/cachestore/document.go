package cachestore

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rohmanhakim/nps-explorer/pkg/hashutil"
)

// DocumentVersion is the only persisted layout this package writes.
const DocumentVersion = 1

const checksumAlgo = hashutil.HashAlgoBLAKE3

// document is the persisted layout:
//
//	{"version":1,"checksum":"blake3:<hex>","entries":{"<key>":<payload>,...}}
//
// The checksum covers the canonical encoding of entries.
type document struct {
	Version  int                        `json:"version"`
	Checksum string                     `json:"checksum"`
	Entries  map[string]json.RawMessage `json:"entries"`
}

// canonicalPayload validates payload and returns its compact form. HTML
// characters are left as-is, so the encoder emits exactly these bytes and a
// save/load cycle returns them unchanged.
func canonicalPayload(payload []byte) ([]byte, error) {
	if !json.Valid(payload) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func canonicalEntries(entries map[string]json.RawMessage) ([]byte, error) {
	if entries == nil {
		entries = map[string]json.RawMessage{}
	}
	return marshalUnescaped(entries)
}

// marshalUnescaped is json.Marshal without HTML escaping.
func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func encodeDocument(entries map[string]json.RawMessage) ([]byte, error) {
	canonical, err := canonicalEntries(entries)
	if err != nil {
		return nil, err
	}
	checksum, err := hashutil.Checksum(canonical, checksumAlgo)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = map[string]json.RawMessage{}
	}
	return marshalUnescaped(document{
		Version:  DocumentVersion,
		Checksum: checksum,
		Entries:  entries,
	})
}

// decodeDocument parses a persisted document. A flat key/payload object without
// a version field is accepted as the legacy layout; legacy is true then. A
// version without entries is a truncated document, not a legacy one.
func decodeDocument(data []byte) (entries map[string]json.RawMessage, legacy bool, err *StoreError) {
	var top map[string]json.RawMessage
	if uerr := json.Unmarshal(data, &top); uerr != nil {
		return nil, false, &StoreError{Message: uerr.Error(), Cause: ErrCauseCorruptDocument, Err: uerr}
	}
	if top == nil {
		return nil, false, &StoreError{Message: "document is null", Cause: ErrCauseCorruptDocument}
	}

	rawVersion, hasVersion := top["version"]
	rawEntries, hasEntries := top["entries"]
	if !hasVersion {
		return canonicalizeAll(top), true, nil
	}
	if !hasEntries {
		return nil, false, &StoreError{Message: "document has a version but no entries", Cause: ErrCauseCorruptDocument}
	}

	var version int
	if uerr := json.Unmarshal(rawVersion, &version); uerr != nil {
		return nil, false, &StoreError{Message: "version is not a number", Cause: ErrCauseCorruptDocument, Err: uerr}
	}
	if version != DocumentVersion {
		return nil, false, &StoreError{
			Message: fmt.Sprintf("got version %d, want %d", version, DocumentVersion),
			Cause:   ErrCauseUnsupportedVersion,
		}
	}

	var checksum string
	if rawChecksum, ok := top["checksum"]; ok {
		if uerr := json.Unmarshal(rawChecksum, &checksum); uerr != nil {
			return nil, false, &StoreError{Message: "checksum is not a string", Cause: ErrCauseCorruptDocument, Err: uerr}
		}
	}

	var parsed map[string]json.RawMessage
	if uerr := json.Unmarshal(rawEntries, &parsed); uerr != nil {
		return nil, false, &StoreError{Message: "entries is not an object", Cause: ErrCauseCorruptDocument, Err: uerr}
	}
	parsed = canonicalizeAll(parsed)

	canonical, cerr := canonicalEntries(parsed)
	if cerr != nil {
		return nil, false, &StoreError{Message: cerr.Error(), Cause: ErrCauseCorruptDocument, Err: cerr}
	}
	if !hashutil.VerifyChecksum(canonical, checksum) {
		return nil, false, &StoreError{Message: fmt.Sprintf("checksum %q does not match entries", checksum), Cause: ErrCauseChecksumMismatch}
	}
	return parsed, false, nil
}

// canonicalizeAll rewrites every payload into its canonical encoding.
// Values come from json.Unmarshal, so they are already valid JSON.
func canonicalizeAll(in map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(in))
	for key, payload := range in {
		canonical, err := canonicalPayload(payload)
		if err != nil {
			canonical = bytes.Clone(payload)
		}
		out[key] = canonical
	}
	return out
}
