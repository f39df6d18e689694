package lyrics

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the character threshold at which the chunker closes a
// chunk.
const DefaultChunkSize = 60

// Chunk groups consecutive lines into comparison units. Lines are appended
// to an accumulator one at a time; as soon as the accumulator joined with
// single spaces is longer than size characters it is emitted as a chunk and
// reset. A non-empty remainder is emitted as the final chunk.
//
// Chunks partition lines in order: joining all chunks with spaces equals
// joining all lines with spaces. Lengths are counted in runes. A size of
// zero or less closes a chunk after every non-empty line. The result is
// never nil.
func Chunk(lines []string, size int) []string {
	chunks := make([]string, 0, len(lines)/2+1)
	var acc []string
	accLen := 0
	for _, line := range lines {
		if len(acc) > 0 {
			accLen++ // joining space
		}
		acc = append(acc, line)
		accLen += utf8.RuneCountInString(line)
		if accLen > size {
			chunks = append(chunks, strings.Join(acc, " "))
			acc = acc[:0]
			accLen = 0
		}
	}
	if len(acc) > 0 {
		chunks = append(chunks, strings.Join(acc, " "))
	}
	return chunks
}
