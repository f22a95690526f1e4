package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrMalformedStreamRecord = errors.New("malformed stream record")
	ErrStreamError           = errors.New("stream error")
	ErrCancelled             = errors.New("generation cancelled")
)

// Record is one newline-delimited JSON object emitted by the model endpoint.
type Record struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Decoder reassembles records split across arbitrary chunk boundaries.
// It holds the unterminated tail of the input until the next Feed.
type Decoder struct {
	buf    []byte
	answer strings.Builder
	done   bool
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed consumes a chunk and reports whether a terminal record has been seen.
// Input after the terminal record is ignored.
func (d *Decoder) Feed(chunk []byte) (bool, error) {
	if d.done {
		return true, nil
	}
	d.buf = append(d.buf, chunk...)

	for {
		nl := bytes.IndexByte(d.buf, '\n')
		if nl < 0 {
			return false, nil
		}
		line := bytes.TrimSpace(d.buf[:nl])
		d.buf = d.buf[nl+1:]

		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return false, fmt.Errorf("%w: %q: %v", ErrMalformedStreamRecord, truncate(line, 120), err)
		}
		if rec.Error != "" {
			return false, fmt.Errorf("%w: %s", ErrStreamError, rec.Error)
		}

		d.answer.WriteString(rec.Response)

		if rec.Done {
			d.done = true
			d.buf = nil
			return true, nil
		}
	}
}

func (d *Decoder) Answer() string {
	return d.answer.String()
}

func (d *Decoder) Done() bool {
	return d.done
}

// Pending is the unterminated tail still waiting for a newline.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

// Decode reads r until a terminal record or EOF and returns the accumulated answer.
// End of input without a terminal record counts as completion; an unterminated
// trailing fragment is dropped. Every failure discards the partial answer.
func Decode(ctx context.Context, r io.Reader) (string, error) {
	d := NewDecoder()
	buf := make([]byte, 4096)

	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %w", ErrCancelled, err)
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			done, err := d.Feed(buf[:n])
			if err != nil {
				return "", err
			}
			if done {
				return d.Answer(), nil
			}
		}

		if readErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
			}
			if errors.Is(readErr, io.EOF) {
				return d.Answer(), nil
			}
			return "", fmt.Errorf("%w: %w", ErrStreamError, readErr)
		}
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
