package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendConcatenatesContent(t *testing.T) {
	buf := NewAccumulated([]byte("hello"))
	next := buf.Append([]byte(" world"))
	assert.Equal(t, "hello world", string(next.Content()))
}

func TestAppendDoesNotModifyReceiver(t *testing.T) {
	buf := NewAccumulated([]byte("hello"))
	buf.Append([]byte(" world"))
	assert.Equal(t, "hello", string(buf.Content()))
}

func TestTrimKeepsOnlyRemainder(t *testing.T) {
	buf := NewAccumulated([]byte("hello world"))
	next := buf.Trim([]byte("world"))
	assert.Equal(t, "world", string(next.Content()))
}

func TestEmptyBufferAppends(t *testing.T) {
	buf := NewAccumulated(nil)
	next := buf.Append([]byte("data"))
	assert.Equal(t, "data", string(next.Content()))
}

func TestAppendEmptyChunkKeepsContent(t *testing.T) {
	buf := NewAccumulated([]byte("data"))
	next := buf.Append(nil)
	assert.Equal(t, "data", string(next.Content()))
}

func TestLenReportsBufferedBytes(t *testing.T) {
	buf := NewAccumulated([]byte("abc"))
	assert.Equal(t, 3, buf.Len())
}

func TestAppendCopiesChunk(t *testing.T) {
	chunk := []byte("abc")
	buf := NewAccumulated(nil).Append(chunk)
	chunk[0] = 'z'
	assert.Equal(t, "abc", string(buf.Content()))
}
