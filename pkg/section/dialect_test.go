package section

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.1", "1.1"},
		{"1.1.", "1.1"},
		{" 2.10.3. ", "2.10.3"},
		{".1.2", "1.2"},
		{"1.", "1"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeID(tt.in))
		})
	}
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{in: "", want: DialectAuto},
		{in: "auto", want: DialectAuto},
		{in: "Comment", want: DialectComment},
		{in: " inline ", want: DialectInline},
		{in: "markdown", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDialect(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommentSplitter_Split(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Block
	}{
		{
			name: "two sections",
			text: "--1.1.\nSELECT 1;\n--1.2.\nSELECT 2;",
			want: []Block{
				{ID: "1.1", Body: "SELECT 1;"},
				{ID: "1.2", Body: "SELECT 2;"},
			},
		},
		{
			name: "preamble is dropped",
			text: "USE db;\nGO\n--1.1\nSELECT 1;",
			want: []Block{{ID: "1.1", Body: "SELECT 1;"}},
		},
		{
			name: "three dashes and indentation",
			text: "  ---2.10.3. Totals by branch\nSELECT 3;",
			want: []Block{{ID: "2.10.3", Body: "SELECT 3;"}},
		},
		{
			name: "four dashes is not a marker",
			text: "--1.1\nA\n----1.2\nB",
			want: []Block{{ID: "1.1", Body: "A\n----1.2\nB"}},
		},
		{
			name: "number without dot is an ordinary comment",
			text: "--1.1\nA\n--2 rows expected\nB",
			want: []Block{{ID: "1.1", Body: "A\n--2 rows expected\nB"}},
		},
		{
			name: "empty body between markers",
			text: "--1.1\n--1.2\nB",
			want: []Block{{ID: "1.1", Body: ""}, {ID: "1.2", Body: "B"}},
		},
		{
			name: "trailing newline stays in the last body",
			text: "--1.1\nA\n",
			want: []Block{{ID: "1.1", Body: "A\n"}},
		},
		{
			name: "no markers",
			text: "SELECT 1;\n-- a comment",
			want: nil,
		},
	}

	s, err := NewSplitter(DialectComment, "-")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Split(tt.text))
		})
	}
}

func TestCommentSplitter_CustomLead(t *testing.T) {
	s, err := NewSplitter(DialectComment, "#")
	require.NoError(t, err)

	blocks := s.Split("##1.1\nSELECT 1;\n--1.2\nSELECT 2;")
	require.Len(t, blocks, 1)
	assert.Equal(t, "1.1", blocks[0].ID)
	assert.Equal(t, "SELECT 1;\n--1.2\nSELECT 2;", blocks[0].Body)

	_, err = NewSplitter(DialectComment, "--")
	assert.Error(t, err, "multi-character lead should be rejected")
}

func TestInlineSplitter_Split(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Block
	}{
		{
			name: "split on print statements",
			text: "SET NOCOUNT ON;\nPRINT '1.1';\nSELECT 1;\nprint '1.2'\nSELECT 2;\n",
			want: []Block{
				{ID: "1.1", Body: "SELECT 1;\n"},
				{ID: "1.2", Body: "SELECT 2;\n"},
			},
		},
		{
			name: "trailing separator in identifier",
			text: "PRINT '3.4.';\nSELECT 4;",
			want: []Block{{ID: "3.4", Body: "SELECT 4;"}},
		},
		{
			name: "non numeric print is content",
			text: "PRINT '1.1';\nPRINT 'starting';\nSELECT 1;",
			want: []Block{{ID: "1.1", Body: "PRINT 'starting';\nSELECT 1;"}},
		},
		{
			name: "no delimiters",
			text: "SELECT 1;",
			want: nil,
		},
	}

	s, err := NewSplitter(DialectInline, "-")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Split(tt.text))
		})
	}
}

func TestNewSplitter_Auto(t *testing.T) {
	_, err := NewSplitter(DialectAuto, "-")
	assert.Error(t, err, "auto is resolved by the extractor, not a splitter")
}
