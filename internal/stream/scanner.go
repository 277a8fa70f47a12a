// Package stream consumes the MAGPIE platform's streaming response transport.
//
// The platform delivers each exchange as a server-sent event stream: a
// sequence of records separated by blank lines, where "data:" lines carry a
// JSON payload and a designated sentinel record marks explicit, successful
// completion. The Scanner turns the raw byte stream into an ordered, lazy
// sequence of payloads; the Client opens the stream over HTTP.
package stream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Sentinel is the record payload that marks explicit stream completion.
// Receiving it is distinct from the transport simply closing: the sentinel
// means the upstream service finished the exchange successfully.
const Sentinel = "[DONE]"

// ErrTransport wraps connection-level failures. It is fatal to the exchange;
// all other stream conditions are recovered locally.
var ErrTransport = errors.New("transport error")

// readChunkSize is the unit of reads against the underlying transport.
const readChunkSize = 4096

// recordSeparator terminates one SSE record.
var recordSeparator = []byte("\n\n")

// dataPrefix marks a payload line within a record.
var dataPrefix = []byte("data:")

// Scanner reads delimited records from a byte-oriented transport. It is lazy,
// non-restartable, and tolerates records split across arbitrary read
// boundaries: an unterminated trailing fragment is buffered and prepended to
// the next read.
//
// Usage follows bufio.Scanner:
//
//	sc := stream.NewScanner(body)
//	for sc.Scan() {
//	    payload := sc.Bytes()
//	    ...
//	}
//	if err := sc.Err(); err != nil { ... }
//
// Scanner is not safe for concurrent use.
type Scanner struct {
	r   io.Reader
	buf []byte // unconsumed bytes carried across reads
	rec []byte // payload of the current record

	err       error
	eof       bool
	completed bool // sentinel seen
}

// NewScanner creates a Scanner over r. The Scanner does not close r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: r}
}

// Scan advances to the next data record. It returns false when the sentinel
// arrives, the transport closes, or a transport error occurs; Err and
// Completed distinguish the three.
func (s *Scanner) Scan() bool {
	if s.err != nil || s.completed {
		return false
	}

	for {
		// Consume complete records already buffered.
		for {
			idx := bytes.Index(s.buf, recordSeparator)
			if idx < 0 {
				break
			}
			record := s.buf[:idx]
			s.buf = s.buf[idx+len(recordSeparator):]

			payload, ok := extractData(record)
			if !ok {
				continue // comment or non-data record
			}
			if bytes.Equal(payload, []byte(Sentinel)) {
				s.completed = true
				s.buf = nil
				return false
			}
			s.rec = payload
			return true
		}

		if s.eof {
			// Transport closed with a buffered unterminated record: surface
			// it so close-with-buffered-content still yields its payload.
			payload, ok := extractData(s.buf)
			s.buf = nil
			if !ok {
				return false
			}
			if bytes.Equal(payload, []byte(Sentinel)) {
				s.completed = true
				return false
			}
			s.rec = payload
			return true
		}

		chunk := make([]byte, readChunkSize)
		n, err := s.r.Read(chunk)
		if n > 0 {
			s.buf = append(s.buf, chunk[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.eof = true
				continue
			}
			// Connection failure: discard buffered state, surface the error.
			s.buf = nil
			s.err = fmt.Errorf("%w: reading stream: %w", ErrTransport, err)
			return false
		}
	}
}

// Bytes returns the payload of the current record. The returned slice is
// valid until the next call to Scan.
func (s *Scanner) Bytes() []byte {
	return s.rec
}

// Err returns the transport error that stopped the scan, or nil if the
// stream ended cleanly (sentinel or EOF).
func (s *Scanner) Err() error {
	return s.err
}

// Completed reports whether the sentinel was received. A stream that ends
// without the sentinel was cut off by the transport, not finished upstream.
func (s *Scanner) Completed() bool {
	return s.completed
}

// extractData pulls the payload out of one record's lines. Multi-line data
// fields are joined with newlines per the SSE convention; records without any
// data line (comments, bare event/id fields) report ok=false.
func extractData(record []byte) (payload []byte, ok bool) {
	var out []byte
	found := false
	for line := range bytes.Lines(record) {
		line = bytes.TrimSuffix(line, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))
		if !bytes.HasPrefix(line, dataPrefix) {
			continue
		}
		value := bytes.TrimPrefix(line, dataPrefix)
		value = bytes.TrimPrefix(value, []byte(" "))
		if found {
			out = append(out, '\n')
		}
		out = append(out, value...)
		found = true
	}
	return out, found
}
