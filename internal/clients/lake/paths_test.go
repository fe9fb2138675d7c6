package lake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAbsolutePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "/"},
		{"root", "/", "/"},
		{"missing leading slash", "a/b", "/a/b"},
		{"duplicate separators", "//a///b//", "/a/b"},
		{"trailing slash stripped", "/a/b/", "/a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAbsolutePath(tt.in))
		})
	}
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		child string
		want  string
	}{
		{"simple join", "/a", "b", "/a/b"},
		{"root base", "/", "b", "/b"},
		{"child with slashes", "/a", "/b/", "/a/b"},
		{"empty child", "/a", "", "/a"},
		{"unnormalized base", "a//b", "c", "/a/b/c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JoinPath(tt.base, tt.child))
		})
	}
}

func TestEncodePathSegments(t *testing.T) {
	assert.Equal(t, "a/b%20c", encodePathSegments("/a/b c"))
	assert.Equal(t, "plain", encodePathSegments("plain"))
	assert.Equal(t, "", encodePathSegments("/"))
}

func TestEscapeHxql(t *testing.T) {
	assert.Equal(t, "o''brien", EscapeHxql("o'brien"))
	assert.Equal(t, "plain", EscapeHxql("plain"))
}

func TestSplitSegments(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitSegments("/a/b"))
	assert.Nil(t, splitSegments("/"))
}
