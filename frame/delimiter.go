package frame

import "bytes"

// Delimiter finds complete message boundaries in accumulated bytes.
type Delimiter interface {
	// Extract returns the complete, structurally valid messages in
	// content plus the remainder. Garbage before a start marker and
	// structurally invalid candidates are dropped silently; lossy
	// tolerance for noisy serial lines is intentional.
	Extract(content []byte) Extraction
}

const (
	startMarker = '!'
	endMarker   = '\r'
	fieldSep    = ';'
)

// ChecksumDelimiter frames the line-oriented checksum protocol. A
// message runs from a '!' start marker to the next carriage return and
// must split into exactly three semicolon-separated fields
// (position;value;checksum) with an all-digit checksum field.
type ChecksumDelimiter struct{}

// NewChecksumDelimiter creates a ChecksumDelimiter.
func NewChecksumDelimiter() ChecksumDelimiter {
	return ChecksumDelimiter{}
}

// Extract scans left to right for marker-terminated candidates. Valid
// candidates are emitted in order; invalid ones are skipped and the
// scan resumes after their end marker. Everything after the last
// consumed end marker is the remainder, kept verbatim.
func (d ChecksumDelimiter) Extract(content []byte) Extraction {
	var messages [][]byte
	consumed := 0
	pos := 0
	for {
		start := indexFrom(content, startMarker, pos)
		if start < 0 {
			break
		}
		end := indexFrom(content, endMarker, start)
		if end < 0 {
			break
		}
		candidate := content[start:end]
		if structurallyValid(candidate) {
			messages = append(messages, clone(candidate))
		}
		pos = end + 1
		consumed = end + 1
	}
	return NewExtraction(messages, clone(content[consumed:]))
}

// structurallyValid checks the message shape only: exactly three
// fields and an all-digit checksum. The value field is not inspected;
// value decoding is the protocol decoder's concern.
func structurallyValid(candidate []byte) bool {
	fields := bytes.Split(candidate, []byte{fieldSep})
	if len(fields) != 3 {
		return false
	}
	return allDigits(fields[2])
}

func allDigits(field []byte) bool {
	if len(field) == 0 {
		return false
	}
	for _, b := range field {
		if b < '0' || b > '9' {
			return false
		}
	}
	return true
}

func indexFrom(content []byte, marker byte, from int) int {
	if from >= len(content) {
		return -1
	}
	i := bytes.IndexByte(content[from:], marker)
	if i < 0 {
		return -1
	}
	return from + i
}
