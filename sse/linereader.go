// Package sse provides incremental framing for Server-Sent Events streams.
package sse

import (
	"bytes"
	"strings"
)

// DoneMarker is the payload that ends an OpenAI-style event stream.
const DoneMarker = "[DONE]"

const dataPrefix = "data: "

// LineReader splits a byte stream into lines. Read boundaries need not align
// with line boundaries: the trailing partial line is kept until more bytes
// arrive or Flush is called.
type LineReader struct {
	carry []byte
}

// Feed appends chunk and returns every line it completes, without the
// terminating "\n" or "\r\n".
func (r *LineReader) Feed(chunk []byte) []string {
	r.carry = append(r.carry, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(r.carry, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(bytes.TrimSuffix(r.carry[:i], []byte("\r"))))
		r.carry = r.carry[i+1:]
	}

	// Reclaim the consumed prefix once nothing is pending.
	if len(r.carry) == 0 {
		r.carry = nil
	}
	return lines
}

// Flush returns the pending partial line, if any, and resets the reader.
func (r *LineReader) Flush() (string, bool) {
	if len(r.carry) == 0 {
		return "", false
	}
	line := string(bytes.TrimSuffix(r.carry, []byte("\r")))
	r.carry = nil
	return line, true
}

// Pending returns the number of buffered bytes not yet forming a line.
func (r *LineReader) Pending() int {
	return len(r.carry)
}

// Data extracts the payload of a "data: " line. Other lines (comments,
// event names, blank separators) report ok == false.
func Data(line string) (payload string, ok bool) {
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false
	}
	return strings.TrimPrefix(line, dataPrefix), true
}
