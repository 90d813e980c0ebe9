// Package capture models the hardware capture callback as a single-shot
// completion: the camera layer delivers either a raw image buffer or a
// failure reason, exactly once, and the transfer pipeline awaits it.
package capture

import (
	"context"
	"errors"
	"sync"
)

var ErrCaptureFailed = errors.New("capture: device reported failure")

// Result is one capture outcome: a raw image buffer or a failure reason,
// never both.
type Result struct {
	Data []byte
	Err  error
}

// Pending is a single-shot completion handle. Deliver and Fail race safely;
// only the first call wins and later calls are no-ops.
type Pending struct {
	once sync.Once
	done chan Result
}

func NewPending() *Pending {
	return &Pending{done: make(chan Result, 1)}
}

// Deliver completes the capture with an image buffer.
func (p *Pending) Deliver(data []byte) {
	p.once.Do(func() {
		p.done <- Result{Data: data}
	})
}

// Fail completes the capture with a failure reason.
func (p *Pending) Fail(err error) {
	if err == nil {
		err = ErrCaptureFailed
	}
	p.once.Do(func() {
		p.done <- Result{Err: err}
	})
}

// Await blocks until the capture completes or ctx expires.
func (p *Pending) Await(ctx context.Context) ([]byte, error) {
	select {
	case res := <-p.done:
		return res.Data, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
