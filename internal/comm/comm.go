package comm

import (
	"context"
	"errors"
)

// ErrTagMismatch indicates a message arrived out of protocol order.
var ErrTagMismatch = errors.New("comm: message tag mismatch")

type Op int

const (
	Sum Op = iota
	Max
)

func (o Op) apply(acc, v []float64) {
	for i := range acc {
		switch o {
		case Sum:
			acc[i] += v[i]
		case Max:
			if v[i] > acc[i] {
				acc[i] = v[i]
			}
		}
	}
}

// Comm connects one rank to the rest of the world. All operations block
// until the peer side completes or ctx is done.
type Comm interface {
	Rank() int
	Size() int
	// SendRecv sends send to rank to while receiving from rank from into
	// recv. The send completes only once the receiver holds the data.
	SendRecv(ctx context.Context, send *MsgBuf, to int, recv *MsgBuf, from int, tag int) error
	// AllReduce combines vals element-wise over all ranks in rank order
	// and leaves the result in vals on every rank.
	AllReduce(ctx context.Context, op Op, vals []float64) error
	Barrier(ctx context.Context) error
}
