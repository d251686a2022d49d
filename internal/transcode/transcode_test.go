package transcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeSinkCounts(t *testing.T) {
	s := &SizeSink{}
	n, err := s.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	n, err = s.Write([]byte(" world"))
	assert.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, int64(11), s.N)
}

func TestRangeSinkWithinSingleChunk(t *testing.T) {
	s := NewRangeSink(2, 3)
	_, err := s.Write([]byte("0123456789"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("234"), s.Bytes())
}

func TestRangeSinkAcrossMultipleChunks(t *testing.T) {
	s := NewRangeSink(5, 10)
	chunks := [][]byte{
		[]byte("0123"),
		[]byte("4567"),
		[]byte("89"),
		[]byte("ABCDEF"),
	}
	for _, c := range chunks {
		_, err := s.Write(c)
		assert.NoError(t, err)
	}
	assert.Equal(t, []byte("56789ABCDE"), s.Bytes())
}

func TestRangeSinkBeyondStreamLength(t *testing.T) {
	s := NewRangeSink(0, 100)
	_, err := s.Write([]byte("short"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("short"), s.Bytes())
}

func TestRangeSinkEntirelyBeforeWindow(t *testing.T) {
	s := NewRangeSink(100, 10)
	_, err := s.Write([]byte("irrelevant prefix bytes"))
	assert.NoError(t, err)
	assert.Empty(t, s.Bytes())
}
