package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var errNotObject = errors.New("document is not a JSON object")

// DecodeDocument reads a {"key": value, ...} document and returns the keys in
// the order they appear together with the decoded values. Duplicate keys keep
// their first position and last value, like a JSON object parsed into a map.
func DecodeDocument[T any](r io.Reader) ([]string, map[string]T, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("read document: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errNotObject
	}

	keys := make([]string, 0)
	values := make(map[string]T)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("read key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}
		var v T
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("decode %q: %w", key, err)
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("read document end: %w", err)
	}
	return keys, values, nil
}

// EncodeDocument writes values as a JSON object in keys order, indented with
// two spaces and terminated by a newline.
func EncodeDocument[T any](w io.Writer, keys []string, values map[string]T) error {
	bw := bufio.NewWriter(w)
	if len(keys) == 0 {
		if _, err := bw.WriteString("{}\n"); err != nil {
			return err
		}
		return bw.Flush()
	}
	bw.WriteString("{\n")
	for i, key := range keys {
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(values[key])
		if err != nil {
			return fmt.Errorf("encode %q: %w", key, err)
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "  ", "  "); err != nil {
			return fmt.Errorf("indent %q: %w", key, err)
		}
		bw.WriteString("  ")
		bw.Write(k)
		bw.WriteString(": ")
		bw.Write(buf.Bytes())
		if i < len(keys)-1 {
			bw.WriteByte(',')
		}
		bw.WriteByte('\n')
	}
	bw.WriteString("}\n")
	return bw.Flush()
}
