package chunking

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/lacuna/internal/models"
)

func TestNewFixedChunker(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
		wantErr   bool
	}{
		{"valid", 100, 20, false},
		{"zero overlap", 100, 0, false},
		{"zero chunk size", 0, 0, true},
		{"negative overlap", 100, -1, true},
		{"overlap equals chunk size", 100, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFixedChunker(tt.chunkSize, tt.overlap)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFixedChunker_Chunk(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		c, err := NewFixedChunker(100, 10)
		require.NoError(t, err)
		assert.Empty(t, c.Chunk("   ", "n1"))
	})

	t.Run("text smaller than window", func(t *testing.T) {
		c, err := NewFixedChunker(100, 10)
		require.NoError(t, err)
		chunks := c.Chunk("small text", "n1")
		require.Len(t, chunks, 1)
		assert.Equal(t, "small text", chunks[0].Text)
		assert.Equal(t, "n1_chunk_0", chunks[0].ID)
	})

	t.Run("windows overlap", func(t *testing.T) {
		words := strings.Repeat("word ", 60) // 300 chars
		c, err := NewFixedChunker(100, 20)
		require.NoError(t, err)
		chunks := c.Chunk(words, "n2")
		require.Greater(t, len(chunks), 1)
		for i := 1; i < len(chunks); i++ {
			assert.Less(t, chunks[i].StartOffset, chunks[i-1].EndOffset,
				"chunk %d should overlap its predecessor", i)
		}
	})

	t.Run("snaps to word boundary", func(t *testing.T) {
		words := strings.Repeat("alpha beta ", 30)
		c, err := NewFixedChunker(50, 10)
		require.NoError(t, err)
		for _, chunk := range c.Chunk(words, "n3") {
			assert.False(t, strings.HasPrefix(chunk.Text, "lpha"), "word cut at chunk start")
			assert.False(t, strings.HasSuffix(chunk.Text, "alph"), "word cut at chunk end")
		}
	})

	t.Run("terminates with maximal overlap over space runs", func(t *testing.T) {
		c, err := NewFixedChunker(10, 9)
		require.NoError(t, err)

		done := make(chan []models.Chunk, 1)
		go func() { done <- c.Chunk("a"+strings.Repeat(" ", 20)+"b", "n5") }()

		select {
		case chunks := <-done:
			require.NotEmpty(t, chunks)
			assert.Equal(t, "a", chunks[0].Text)
			assert.Equal(t, "b", chunks[len(chunks)-1].Text)
		case <-time.After(2 * time.Second):
			t.Fatal("chunker did not terminate")
		}
	})

	t.Run("always advances on unbroken text", func(t *testing.T) {
		text := strings.Repeat("x", 500)
		c, err := NewFixedChunker(100, 50)
		require.NoError(t, err)
		chunks := c.Chunk(text, "n4")
		require.NotEmpty(t, chunks)
		for i := 1; i < len(chunks); i++ {
			assert.Greater(t, chunks[i].StartOffset, chunks[i-1].StartOffset)
		}
	})
}
