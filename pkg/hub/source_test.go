package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected *Source
		wantErr  bool
	}{
		{
			name:     "org and model",
			source:   "hf://TheBloke/Llama-2-7B-GGUF",
			expected: &Source{Org: "TheBloke", Name: "Llama-2-7B-GGUF"},
		},
		{
			name:     "explicit file path",
			source:   "hf://TheBloke/Llama-2-7B-GGUF/llama-2-7b.Q4_K_M.gguf",
			expected: &Source{Org: "TheBloke", Name: "Llama-2-7B-GGUF", Path: "llama-2-7b.Q4_K_M.gguf"},
		},
		{
			name:     "nested file path",
			source:   "hf://org/model/sub/dir/file.gguf",
			expected: &Source{Org: "org", Name: "model", Path: "sub/dir/file.gguf"},
		},
		{
			name:     "uppercase scheme accepted",
			source:   "HF://org/model",
			expected: &Source{Org: "org", Name: "model"},
		},
		{
			name:    "missing scheme",
			source:  "org/model",
			wantErr: true,
		},
		{
			name:    "single segment",
			source:  "hf://org",
			wantErr: true,
		},
		{
			name:    "empty segments only",
			source:  "hf:///",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := ParseSource(tt.source)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidSourceFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, src)
		})
	}
}

func TestSourceBareFilename(t *testing.T) {
	src := &Source{Org: "org", Name: "model", Path: "sub/dir/file.gguf"}
	assert.Equal(t, "file.gguf", src.BareFilename())

	src = &Source{Org: "org", Name: "model"}
	assert.Equal(t, "", src.BareFilename())
}
