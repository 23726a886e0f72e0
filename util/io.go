package util

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"unicode/utf8"
)

// Pump reads r until EOF or ctx is cancelled and hands every chunk to
// send.  Chunks are line-sized when the input is line-oriented.  A
// send error is reported through onErr and does not stop the pump: the
// link may come back before the next line.
func Pump(ctx context.Context, r io.Reader, send func([]byte) error, onErr func(error)) error {
	br := bufio.NewReaderSize(r, DefaultBufSize)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line, err := br.ReadSlice('\n')
		if len(line) > 0 {
			chunk := make([]byte, len(line))
			copy(chunk, line)
			if serr := send(chunk); serr != nil && onErr != nil {
				onErr(serr)
			}
		}
		switch {
		case err == nil, err == bufio.ErrBufferFull:
			continue
		case err == io.EOF:
			return nil
		default:
			return err
		}
	}
}

// OutputMode selects how received bytes are rendered.
type OutputMode string

const (
	OutputRaw  OutputMode = "raw"
	OutputHex  OutputMode = "hex"
	OutputAuto OutputMode = "auto"
)

// ParseOutputMode validates an --output flag value.
func ParseOutputMode(s string) (OutputMode, error) {
	switch m := OutputMode(s); m {
	case OutputRaw, OutputHex, OutputAuto:
		return m, nil
	}
	return "", fmt.Errorf("invalid output mode %q (want raw, hex, or auto)", s)
}

// WritePayload renders data to w.  In auto mode, text goes out raw and
// binary is hex-dumped; auto should only be used for terminals.
func WritePayload(w io.Writer, mode OutputMode, data []byte) error {
	if mode == OutputHex || (mode == OutputAuto && !utf8.Valid(data)) {
		_, err := io.WriteString(w, hex.Dump(data))
		return err
	}
	_, err := w.Write(data)
	return err
}

// PayloadWriter renders a stream of received chunks.  In auto mode a
// multibyte rune split across two chunks is held back until the rest
// arrives, so valid text is never hex-dumped because of where a read
// happened to end.
type PayloadWriter struct {
	w       io.Writer
	mode    OutputMode
	pending []byte
}

// NewPayloadWriter returns a PayloadWriter rendering to w.
func NewPayloadWriter(w io.Writer, mode OutputMode) *PayloadWriter {
	return &PayloadWriter{w: w, mode: mode}
}

// Write renders data, possibly keeping up to three trailing bytes for
// the next call.  It always reports len(data) on success.
func (p *PayloadWriter) Write(data []byte) (int, error) {
	if p.mode != OutputAuto {
		return len(data), WritePayload(p.w, p.mode, data)
	}

	buf := data
	if len(p.pending) > 0 {
		buf = append(p.pending, data...)
		p.pending = nil
	}
	if cut := partialTail(buf); cut < len(buf) {
		p.pending = append([]byte(nil), buf[cut:]...)
		buf = buf[:cut]
	}
	if len(buf) == 0 {
		return len(data), nil
	}
	return len(data), WritePayload(p.w, p.mode, buf)
}

// Flush renders any held-back bytes as they are.
func (p *PayloadWriter) Flush() error {
	if len(p.pending) == 0 {
		return nil
	}
	buf := p.pending
	p.pending = nil
	return WritePayload(p.w, p.mode, buf)
}

// partialTail returns the index where an incomplete trailing rune
// starts, or len(b) when b ends on a rune boundary.
func partialTail(b []byte) int {
	for i := len(b) - 1; i >= 0 && i > len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return len(b)
			}
			return i
		}
	}
	return len(b)
}
