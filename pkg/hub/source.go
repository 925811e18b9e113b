package hub

import (
	"fmt"
	"path"
	"strings"
)

// SourcePrefix is the scheme every source reference must carry.
const SourcePrefix = "hf://"

// Source is a parsed source reference of the form
// hf://org/model-name[/path/to/file.gguf].
type Source struct {
	Org  string
	Name string
	// Path is the optional explicit file path within the repository.
	Path string
}

// ParseSource parses a source reference. It fails with
// ErrInvalidSourceFormat when the scheme is missing or the reference has
// fewer than two path segments.
func ParseSource(source string) (*Source, error) {
	if !strings.HasPrefix(strings.ToLower(source), SourcePrefix) {
		return nil, fmt.Errorf("source must be in format hf://org/model-name or hf://org/model-name/file.gguf: %w", ErrInvalidSourceFormat)
	}

	trimmed := source[len(SourcePrefix):]
	parts := make([]string, 0, 3)
	for _, p := range strings.Split(trimmed, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return nil, fmt.Errorf("source %q needs at least org and model name: %w", source, ErrInvalidSourceFormat)
	}

	src := &Source{Org: parts[0], Name: parts[1]}
	if len(parts) > 2 {
		src.Path = strings.Join(parts[2:], "/")
	}
	return src, nil
}

// BareFilename returns the last segment of the explicit path, or "" when no
// explicit path was given.
func (s *Source) BareFilename() string {
	if s.Path == "" {
		return ""
	}
	return path.Base(s.Path)
}
