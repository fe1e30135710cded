// Package frame recovers discrete message boundaries from a continuous
// byte stream. Bytes arrive in arbitrary chunks; an Accumulated buffer
// carries the not-yet-framed bytes between reads, and a Delimiter turns
// the buffer into complete, structurally valid messages plus a
// remainder.
package frame

// Accumulated is an immutable buffer of received bytes awaiting
// framing. Every operation returns a new value; the caller holds a
// single reference to the current buffer.
type Accumulated struct {
	content []byte
}

// NewAccumulated creates an Accumulated buffer with the given initial
// content. The content is copied.
func NewAccumulated(content []byte) Accumulated {
	return Accumulated{content: clone(content)}
}

// Append returns a new buffer with chunk concatenated to the current
// content. The receiver is unchanged.
func (a Accumulated) Append(chunk []byte) Accumulated {
	joined := make([]byte, 0, len(a.content)+len(chunk))
	joined = append(joined, a.content...)
	joined = append(joined, chunk...)
	return Accumulated{content: joined}
}

// Content returns the accumulated bytes. The returned slice must not
// be modified.
func (a Accumulated) Content() []byte {
	return a.content
}

// Trim returns a new buffer holding only remainder, discarding the
// current content wholesale.
func (a Accumulated) Trim(remainder []byte) Accumulated {
	return Accumulated{content: clone(remainder)}
}

// Len returns the number of buffered bytes.
func (a Accumulated) Len() int {
	return len(a.content)
}

func clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
