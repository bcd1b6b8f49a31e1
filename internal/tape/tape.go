package tape

import (
	"time"

	"github.com/erilali/marketrelay/internal/message"
)

// Print is one trade as shown on the tape.
type Print struct {
	Subject string
	Trade   message.Trade
	At      time.Time
}

// Tape is a fixed-size ring of the most recent prints.
type Tape struct {
	buf   []Print
	size  int
	start int
	count int
}

// NewTape creates a tape holding at most capacity prints.
func NewTape(capacity int) *Tape {
	if capacity <= 0 {
		capacity = 1
	}
	return &Tape{
		buf:  make([]Print, capacity),
		size: capacity,
	}
}

func (t *Tape) Append(p Print) {
	if t.count < t.size {
		t.buf[(t.start+t.count)%t.size] = p
		t.count++
		return
	}
	// overwrite oldest
	t.buf[t.start] = p
	t.start = (t.start + 1) % t.size
}

func (t *Tape) Len() int { return t.count }

// Last returns up to n prints, oldest first.
func (t *Tape) Last(n int) []Print {
	if n <= 0 || t.count == 0 {
		return nil
	}
	if n > t.count {
		n = t.count
	}
	out := make([]Print, n)
	first := (t.start + (t.count - n)) % t.size
	for i := 0; i < n; i++ {
		out[i] = t.buf[(first+i)%t.size]
	}
	return out
}

func (t *Tape) Reset() {
	t.start = 0
	t.count = 0
}
