// Package batchio reads event batches and writes ranking results.
package batchio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/ltvrank/internal/domain/model"
)

// StdStream is the path that selects stdin for a Source and stdout for a Sink.
const StdStream = "-"

// Output encodings.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const outputFilePermission = 0o644

// Source yields the raw bytes of one batch.
type Source interface {
	Read(ctx context.Context) ([]byte, error)
	Name() string
}

// Sink receives the encoded result. Write either stores all of data or nothing.
type Sink interface {
	Write(ctx context.Context, data []byte) error
	Name() string
}

// FileSource reads a file, or stdin for "-".
type FileSource struct {
	path  string
	stdin io.Reader
}

// NewFileSource creates a Source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path, stdin: os.Stdin}
}

// Name implements Source.
func (s *FileSource) Name() string { return s.path }

// Read implements Source.
func (s *FileSource) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.path == StdStream {
		b, err := io.ReadAll(s.stdin)
		if err != nil {
			return nil, fmt.Errorf("%w: stdin: %w", ErrRead, err)
		}
		return b, nil
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return b, nil
}

// FileSink writes a file atomically via a temp file and rename, or stdout for "-".
type FileSink struct {
	path   string
	stdout io.Writer
}

// NewFileSink creates a Sink for path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path, stdout: os.Stdout}
}

// Name implements Sink.
func (s *FileSink) Name() string { return s.path }

// Write implements Sink.
func (s *FileSink) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.path == StdStream {
		if _, err := s.stdout.Write(data); err != nil {
			return fmt.Errorf("%w: stdout: %w", ErrWrite, err)
		}
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %s: %w", ErrWrite, s.path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: %s: %w", ErrWrite, s.path, err)
	}
	if err := os.Chmod(tmpName, outputFilePermission); err != nil {
		cleanup()
		return fmt.Errorf("%w: %s: %w", ErrWrite, s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("%w: %s: %w", ErrWrite, s.path, err)
	}
	return nil
}

// DecodeEvents parses a JSON array of event objects. Numbers are kept as
// json.Number.
func DecodeEvents(data []byte) ([]model.Event, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after event array", ErrDecode)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: root must be an array of event objects", ErrDecode)
	}
	events := make([]model.Event, len(raw))
	for i, obj := range raw {
		if obj == nil {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrDecode, i)
		}
		events[i] = model.Event(obj)
	}
	return events, nil
}

// Encode renders v in the given format. JSON is compact and newline free;
// YAML uses two-space indentation.
func Encode(v any, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return b, nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// EncodeEntries renders the ranking. An empty ranking encodes as [] rather than null.
func EncodeEntries(entries []model.LTVEntry, format string) ([]byte, error) {
	if entries == nil {
		entries = []model.LTVEntry{}
	}
	return Encode(entries, format)
}
