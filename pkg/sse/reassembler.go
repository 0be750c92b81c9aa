package sse

import "bytes"

// Reassembler turns arbitrarily chunked stream bytes into ordered deltas.
//
// It owns the pending buffer for a single stream. A data frame whose JSON
// fails to parse is held for exactly one retry: if the next physical line is
// an unrecognized continuation, the two are joined and parsed again. Any
// other next line, a failed retry, or the end of the stream drops the held
// frame. Delivered deltas depend only on the byte sequence, not on where
// chunk boundaries fall.
type Reassembler struct {
	extract DeltaExtractor
	onDelta func(string)

	pending []byte
	held    []byte

	done    bool
	flushed bool
}

func NewReassembler(onDelta func(string), extract DeltaExtractor) *Reassembler {
	if extract == nil {
		extract = ChatCompletionDelta
	}
	return &Reassembler{extract: extract, onDelta: onDelta}
}

// Finished reports whether the termination sentinel has been observed.
func (r *Reassembler) Finished() bool { return r.done }

// Pending returns the number of buffered bytes not yet resolved into lines.
func (r *Reassembler) Pending() int { return len(r.pending) }

// Holding reports whether a frame is waiting for its one retry.
func (r *Reassembler) Holding() bool { return r.held != nil }

// Feed appends one chunk and processes every complete line in it.
func (r *Reassembler) Feed(chunk []byte) {
	if r.done || r.flushed {
		return
	}
	r.pending = append(r.pending, chunk...)

	consumed := 0
	for !r.done {
		i := bytes.IndexByte(r.pending[consumed:], '\n')
		if i < 0 {
			break
		}
		line := r.pending[consumed : consumed+i]
		consumed += i + 1
		r.handleLine(line)
	}
	if r.done {
		r.pending = nil
		return
	}
	if consumed > 0 {
		r.pending = append(r.pending[:0], r.pending[consumed:]...)
	}
}

// Flush resolves whatever remains after the stream ended. The trailing
// partial line is processed like any other line, but nothing is held for a
// retry afterwards: an unparseable leftover is dropped.
func (r *Reassembler) Flush() {
	if r.done || r.flushed {
		return
	}
	r.flushed = true
	if len(r.pending) > 0 {
		rest := r.pending
		r.pending = nil
		r.handleLine(rest)
	}
	r.held = nil
}

func (r *Reassembler) handleLine(line []byte) {
	kind, content := ClassifyLine(line)

	if r.held != nil {
		held := r.held
		r.held = nil
		if kind == FrameUnrecognized {
			joined := make([]byte, 0, len(held)+1+len(content))
			joined = append(joined, held...)
			joined = append(joined, '\n')
			joined = append(joined, content...)
			if text, err := r.extract(bytes.TrimSpace(joined)); err == nil {
				r.emit(text)
			}
			return
		}
	}

	if kind != FrameData {
		return
	}
	if string(content) == DoneSentinel {
		r.done = true
		return
	}
	text, err := r.extract(content)
	if err != nil {
		if !r.flushed {
			r.held = append([]byte(nil), content...)
		}
		return
	}
	r.emit(text)
}

func (r *Reassembler) emit(text string) {
	if text == "" || r.onDelta == nil {
		return
	}
	r.onDelta(text)
}
