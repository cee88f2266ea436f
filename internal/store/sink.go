package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/example/trading-services/internal/models"
)

// Sink durably writes the full record set.
type Sink interface {
	Save(ctx context.Context, stocks []models.Stock) error
}

// Source loads the record set at startup.
type Source interface {
	Load(ctx context.Context) ([]models.Stock, error)
}

// FileSink keeps the record set in a single JSON document keyed by record id.
// Records read by Load are written back as the objects they were read from,
// with only owned replaced, so attributes without a typed field survive.
type FileSink struct {
	Path string

	mu      sync.Mutex
	sources map[string]json.RawMessage
}

func NewFileSink(path string) *FileSink { return &FileSink{Path: path} }

func (f *FileSink) Load(_ context.Context) ([]models.Stock, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer file.Close()

	keys, raws, err := DecodeDocument[json.RawMessage](file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	out := make([]models.Stock, 0, len(keys))
	sources := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		var st models.Stock
		if err := json.Unmarshal(raws[k], &st); err != nil {
			return nil, fmt.Errorf("parse %s: record %q: %w", f.Path, k, err)
		}
		if st.ID == "" {
			st.ID = k
		}
		if _, dup := sources[st.ID]; !dup {
			sources[st.ID] = raws[k]
		}
		out = append(out, st)
	}

	f.mu.Lock()
	f.sources = sources
	f.mu.Unlock()
	return out, nil
}

// Save overwrites the whole document. The new content is written to a
// temporary file in the same directory and renamed over the old one, so a
// reader sees either the previous or the new document.
func (f *FileSink) Save(_ context.Context, stocks []models.Stock) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make([]string, 0, len(stocks))
	values := make(map[string]json.RawMessage, len(stocks))
	for _, st := range stocks {
		raw, err := f.encodeRecord(st)
		if err != nil {
			return fmt.Errorf("encode %q: %w", st.ID, err)
		}
		if _, dup := values[st.ID]; !dup {
			keys = append(keys, st.ID)
		}
		values[st.ID] = raw
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.Path), filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp document: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := EncodeDocument(tmp, keys, values); err != nil {
		tmp.Close()
		return fmt.Errorf("writing document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing document: %w", err)
	}
	if err := os.Rename(tmpPath, f.Path); err != nil {
		return fmt.Errorf("replacing %s: %w", f.Path, err)
	}
	success = true
	return nil
}

func (f *FileSink) encodeRecord(st models.Stock) (json.RawMessage, error) {
	src, ok := f.sources[st.ID]
	if !ok {
		return json.Marshal(st)
	}
	return withOwner(src, st.Owned)
}

// withOwner returns the object src with its owned field set to owner. Field
// order is kept; owned is appended when src has none.
func withOwner(src json.RawMessage, owner string) (json.RawMessage, error) {
	keys, fields, err := DecodeDocument[json.RawMessage](bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	if cur, ok := fields["owned"]; ok {
		var was string
		if json.Unmarshal(cur, &was) == nil && was == owner {
			return src, nil
		}
	} else {
		keys = append(keys, "owned")
	}
	if fields["owned"], err = json.Marshal(owner); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(fields[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// LoadUsers reads the user document. Users are passed through untouched.
func LoadUsers(path string) ([]string, map[string]models.User, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	keys, values, err := DecodeDocument[models.User](file)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return keys, values, nil
}
