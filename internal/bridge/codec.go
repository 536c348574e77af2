package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// emptyHistoryText is what an absent history slot is read as.
const emptyHistoryText = "[]"

var (
	errNotJSON  = errors.New("not valid JSON")
	errNotArray = errors.New("not a JSON array")
)

// decodeHistory parses stored history text. The text must be a JSON array;
// any other JSON value is rejected rather than coerced. Entries are compacted.
func decodeHistory(text string) (HistoryLog, error) {
	trimmed := bytes.TrimSpace([]byte(text))
	if !json.Valid(trimmed) {
		return nil, errNotJSON
	}
	if trimmed[0] != '[' {
		return nil, errNotArray
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	log := make(HistoryLog, 0, len(raw))
	for i, entry := range raw {
		compacted, err := compactJSON(entry)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		log = append(log, compacted)
	}
	return log, nil
}

// encodeHistory serializes the full log as a compact JSON array.
// HTML escaping is disabled so entries are stored as the core produced them.
func encodeHistory(log HistoryLog) (string, error) {
	entries := []json.RawMessage(log)
	if entries == nil {
		entries = []json.RawMessage{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entries); err != nil {
		return "", fmt.Errorf("encode history: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// decodeConfig parses stored config text. Any valid JSON value is accepted,
// including null.
func decodeConfig(text string) (ConfigState, error) {
	return compactJSON([]byte(text))
}

// encodeConfig serializes a config value. The value was validated when it
// entered the bridge, so this only converts it to text.
func encodeConfig(cfg ConfigState) string {
	return string(cfg)
}

// compactJSON validates raw and returns a compacted copy.
func compactJSON(raw []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) {
		return nil, errNotJSON
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("compact: %w", err)
	}
	return json.RawMessage(buf.Bytes()), nil
}
