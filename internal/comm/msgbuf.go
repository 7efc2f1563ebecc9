package comm

import (
	"fmt"

	"github.com/san-kum/mdforce/internal/dynamo"
)

// MsgBuf is a flat float64 message. Its capacity only grows.
type MsgBuf struct {
	data []float64
	n    int
	pos  int
}

func NewMsgBuf(capacity int) *MsgBuf {
	return &MsgBuf{data: make([]float64, capacity)}
}

func (b *MsgBuf) Len() int { return b.n }

func (b *MsgBuf) Cap() int { return len(b.data) }

// Grow raises the capacity to at least n and reports whether it
// reallocated. Contents are discarded.
func (b *MsgBuf) Grow(n int) bool {
	if n <= len(b.data) {
		return false
	}
	b.data = make([]float64, n)
	b.Reset()
	return true
}

// Reset empties the buffer for packing.
func (b *MsgBuf) Reset() {
	b.n = 0
	b.pos = 0
}

// Put appends vals, failing when the buffer would overflow.
func (b *MsgBuf) Put(vals ...float64) error {
	if b.n+len(vals) > len(b.data) {
		return fmt.Errorf("%w: packing %d values into %d/%d", dynamo.ErrBufferOverflow, len(vals), b.n, len(b.data))
	}
	copy(b.data[b.n:], vals)
	b.n += len(vals)
	return nil
}

func (b *MsgBuf) PutVec(v dynamo.Vec) error { return b.Put(v[0], v[1], v[2]) }

// Next reads the next unread value. Reading past Len is a protocol bug.
func (b *MsgBuf) Next() float64 {
	if b.pos >= b.n {
		panic(fmt.Errorf("%w: read %d of %d values", dynamo.ErrBufferOverflow, b.pos+1, b.n))
	}
	v := b.data[b.pos]
	b.pos++
	return v
}

func (b *MsgBuf) NextVec() dynamo.Vec {
	return dynamo.Vec{b.Next(), b.Next(), b.Next()}
}

// Remaining reports how many values are left to read.
func (b *MsgBuf) Remaining() int { return b.n - b.pos }

// Data returns the packed values.
func (b *MsgBuf) Data() []float64 { return b.data[:b.n] }

func (b *MsgBuf) fill(src []float64) error {
	if len(src) > len(b.data) {
		return fmt.Errorf("%w: received %d values into capacity %d", dynamo.ErrBufferOverflow, len(src), len(b.data))
	}
	copy(b.data, src)
	b.n = len(src)
	b.pos = 0
	return nil
}
