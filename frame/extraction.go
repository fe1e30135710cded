package frame

// Extraction is the outcome of one delimiter pass: the complete
// messages found, in stream order, and the remainder that does not yet
// form a complete message.
type Extraction struct {
	messages  [][]byte
	remainder []byte
}

// NewExtraction creates an Extraction from messages and remainder.
func NewExtraction(messages [][]byte, remainder []byte) Extraction {
	return Extraction{messages: messages, remainder: remainder}
}

// Messages returns the complete messages ready for decoding, in the
// order their end markers appeared in the stream.
func (e Extraction) Messages() [][]byte {
	return e.messages
}

// Remainder returns the bytes left over after extraction, preserved
// verbatim for the next pass.
func (e Extraction) Remainder() []byte {
	return e.remainder
}

// Empty reports whether no complete messages were found.
func (e Extraction) Empty() bool {
	return len(e.messages) == 0
}
