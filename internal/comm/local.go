package comm

import (
	"context"
	"fmt"
)

const reduceTag = -1

type message struct {
	tag  int
	data []float64
	done chan error
}

type world struct {
	size  int
	chans [][]chan message // chans[from][to]
}

type localComm struct {
	w    *world
	rank int
}

// NewLocalWorld connects n in-process ranks by unbuffered channels, one
// per ordered pair of ranks.
func NewLocalWorld(n int) []Comm {
	w := &world{size: n, chans: make([][]chan message, n)}
	for i := range w.chans {
		w.chans[i] = make([]chan message, n)
		for j := range w.chans[i] {
			w.chans[i][j] = make(chan message)
		}
	}
	comms := make([]Comm, n)
	for r := range comms {
		comms[r] = &localComm{w: w, rank: r}
	}
	return comms
}

func (c *localComm) Rank() int { return c.rank }

func (c *localComm) Size() int { return c.w.size }

func (c *localComm) send(ctx context.Context, to, tag int, data []float64) error {
	msg := message{tag: tag, data: data, done: make(chan error, 1)}
	select {
	case c.w.chans[c.rank][to] <- msg:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-msg.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *localComm) recv(ctx context.Context, from, tag int, into func([]float64) error) error {
	var msg message
	select {
	case msg = <-c.w.chans[from][c.rank]:
	case <-ctx.Done():
		return ctx.Err()
	}
	err := into(msg.data)
	if msg.tag != tag {
		err = fmt.Errorf("%w: rank %d expected tag %d from %d, got %d", ErrTagMismatch, c.rank, tag, from, msg.tag)
	}
	msg.done <- err
	return err
}

func (c *localComm) SendRecv(ctx context.Context, send *MsgBuf, to int, recv *MsgBuf, from int, tag int) error {
	if to == c.rank && from == c.rank {
		return recv.fill(send.Data())
	}
	errc := make(chan error, 1)
	go func() {
		errc <- c.send(ctx, to, tag, send.Data())
	}()
	if err := c.recv(ctx, from, tag, recv.fill); err != nil {
		// the pending send finishes once the world context is canceled
		return err
	}
	return <-errc
}

func (c *localComm) AllReduce(ctx context.Context, op Op, vals []float64) error {
	if c.w.size == 1 {
		return nil
	}
	if c.rank != 0 {
		if err := c.send(ctx, 0, reduceTag, vals); err != nil {
			return err
		}
		return c.recv(ctx, 0, reduceTag, func(data []float64) error {
			copy(vals, data)
			return nil
		})
	}

	part := make([]float64, len(vals))
	for r := 1; r < c.w.size; r++ {
		err := c.recv(ctx, r, reduceTag, func(data []float64) error {
			if len(data) != len(vals) {
				return fmt.Errorf("comm: reduce of %d values got %d from rank %d", len(vals), len(data), r)
			}
			copy(part, data)
			return nil
		})
		if err != nil {
			return err
		}
		op.apply(vals, part)
	}
	for r := 1; r < c.w.size; r++ {
		if err := c.send(ctx, r, reduceTag, vals); err != nil {
			return err
		}
	}
	return nil
}

func (c *localComm) Barrier(ctx context.Context) error {
	return c.AllReduce(ctx, Sum, nil)
}
