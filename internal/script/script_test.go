package script

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestParseYAML(t *testing.T) {
	s, err := Parse("fifo.yaml", readFixture(t, "fifo.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []PageSpec{{Name: "tab", Visible: true}}, s.Pages)
	require.Len(t, s.Steps, 5)
	assert.Equal(t, Step{
		Op:         OpEnqueue,
		Message:    "a",
		Page:       "tab",
		Identifier: "save_password",
		Title:      "Save password?",
		Button:     "Save",
	}, s.Steps[0])
	assert.Equal(t, OpFinishAnimations, s.Steps[4].Op)
}

func TestParseJSON(t *testing.T) {
	s, err := Parse("navigation.JSON", readFixture(t, "navigation.json"))
	require.NoError(t, err)

	require.Len(t, s.Steps, 8)
	assert.Equal(t, "navigation", s.Steps[0].Scope)
	assert.Equal(t, "link|client_redirect", s.Steps[3].Transition)
	assert.True(t, s.Steps[4].SameDocument)
	assert.True(t, s.Steps[5].Subframe)
	assert.Equal(t, []PageSpec{{Name: "tab", Visible: true}}, s.Pages)
}

func TestParseJSON_MatchesYAML(t *testing.T) {
	yamlScript, err := ParseYAML([]byte(`
mode: coordinated
steps:
  - op: suspend
    token: lock
  - op: enqueue
    message: m
    page: p
    keep_on_primary: true
`))
	require.NoError(t, err)

	jsonScript, err := ParseJSON([]byte(`{
  "mode": "coordinated",
  "steps": [
    {"op": "suspend", "token": "lock"},
    {"op": "enqueue", "message": "m", "page": "p", "keep_on_primary": true}
  ]
}`))
	require.NoError(t, err)

	assert.Equal(t, yamlScript, jsonScript)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    string
		wantErr error
	}{
		{
			name:    "unknown extension",
			file:    "script.txt",
			data:    "steps: []",
			wantErr: ErrUnknownFormat,
		},
		{
			name:    "invalid json",
			file:    "script.json",
			data:    `{"steps": [`,
			wantErr: ErrInvalidJSON,
		},
		{
			name:    "unknown op",
			file:    "script.yaml",
			data:    "steps:\n  - op: explode\n",
			wantErr: ErrUnknownOp,
		},
		{
			name:    "enqueue without page",
			file:    "script.yaml",
			data:    "steps:\n  - op: enqueue\n    message: a\n",
			wantErr: ErrMissingField,
		},
		{
			name:    "resume without token",
			file:    "script.json",
			data:    `{"steps": [{"op": "resume"}]}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "page without name",
			file:    "script.yaml",
			data:    "pages:\n  - visible: true\n",
			wantErr: ErrMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.file, []byte(tt.data))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParse_StepErrorIndex(t *testing.T) {
	_, err := ParseYAML([]byte("steps:\n  - op: finish_animations\n  - op: dismiss\n"))
	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 1, serr.Index)
	assert.Equal(t, OpDismiss, serr.Op)
	assert.Contains(t, serr.Error(), "step 2 (dismiss)")
}

func TestScript_MarshalReplays(t *testing.T) {
	s := &Script{
		Mode: "coordinated",
		Steps: []Step{
			{Op: OpEnqueue, Message: "a", Page: "tab", AutoDismiss: "5s"},
			{Op: OpNavigate, Page: "tab", Transition: "reload"},
		},
	}
	data, err := s.Marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "keep_on_primary", "zero fields are omitted")

	parsed, err := ParseYAML(data)
	require.NoError(t, err)
	assert.Equal(t, s, parsed)
}

func TestParseAutoDismiss(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"never", -1, false},
		{"1500ms", 1500 * time.Millisecond, false},
		{"0s", 0, true},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAutoDismiss(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, FormatAutoDismiss(got))
		})
	}
}

func TestParse_InvalidAutoDismiss(t *testing.T) {
	_, err := ParseYAML([]byte("steps:\n  - op: enqueue\n    message: a\n    page: p\n    auto_dismiss: soon\n"))
	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Error(), "auto_dismiss")
}
