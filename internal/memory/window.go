package memory

import "strings"

// Exchange is one completed turn: the responder utterance and the patient's reply to it.
type Exchange struct {
	Responder string
	Patient   string
}

// Window retains the most recent exchanges up to a fixed capacity, evicting
// the oldest first. It is owned by a single session and is not safe for
// concurrent use.
type Window struct {
	buf   []Exchange
	start int
	size  int
}

// NewWindow returns an empty window holding at most k exchanges. k < 1 is treated as 1.
func NewWindow(k int) *Window {
	if k < 1 {
		k = 1
	}
	return &Window{buf: make([]Exchange, k)}
}

// Append adds e, overwriting the oldest exchange when full.
func (w *Window) Append(e Exchange) {
	if w.size < len(w.buf) {
		w.buf[(w.start+w.size)%len(w.buf)] = e
		w.size++
		return
	}
	w.buf[w.start] = e
	w.start = (w.start + 1) % len(w.buf)
}

// Exchanges returns the retained exchanges oldest first.
func (w *Window) Exchanges() []Exchange {
	out := make([]Exchange, 0, w.size)
	for i := 0; i < w.size; i++ {
		out = append(out, w.buf[(w.start+i)%len(w.buf)])
	}
	return out
}

// History renders the retained exchanges oldest first, one speaker per line.
func (w *Window) History() string {
	var b strings.Builder
	for i, e := range w.Exchanges() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("Responder: ")
		b.WriteString(e.Responder)
		b.WriteString("\nPatient: ")
		b.WriteString(e.Patient)
	}
	return b.String()
}

func (w *Window) Len() int      { return w.size }
func (w *Window) Cap() int      { return len(w.buf) }
func (w *Window) IsEmpty() bool { return w.size == 0 }
