package tuitest

import (
	"bytes"
	"io"
)

// Terminal queries bubbletea issues on startup, paired with answers that
// keep it from blocking inside a headless PTY.
var queryAnswers = []struct {
	query  []byte
	answer []byte
}{
	{[]byte("\x1b[6n"), []byte("\x1b[1;1R")},
	{[]byte("\x1b]10;?\x07"), []byte("\x1b]10;rgb:cccc/cccc/cccc\x07")},
	{[]byte("\x1b]10;?\x1b\\"), []byte("\x1b]10;rgb:cccc/cccc/cccc\x1b\\")},
	{[]byte("\x1b]11;?\x07"), []byte("\x1b]11;rgb:0000/0000/0000\x07")},
	{[]byte("\x1b]11;?\x1b\\"), []byte("\x1b]11;rgb:0000/0000/0000\x1b\\")},
}

type queryResponder struct {
	w   io.Writer
	buf []byte
}

func newQueryResponder(w io.Writer) *queryResponder {
	return &queryResponder{w: w, buf: make([]byte, 0, 128)}
}

// Feed scans program output for terminal queries and answers each one.
func (q *queryResponder) Feed(chunk []byte) {
	q.buf = append(q.buf, chunk...)
	for {
		answered := false
		for _, qa := range queryAnswers {
			if idx := bytes.Index(q.buf, qa.query); idx >= 0 {
				q.buf = q.buf[idx+len(qa.query):]
				_, _ = q.w.Write(qa.answer)
				answered = true
			}
		}
		if !answered {
			break
		}
	}
	// Keep a short tail so sequences split across reads still match.
	if len(q.buf) > 256 {
		q.buf = q.buf[len(q.buf)-64:]
	}
}
