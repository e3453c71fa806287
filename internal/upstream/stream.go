package upstream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"
	"time"
)

const (
	initialLineBuffer = 64 * 1024
	maxLineBuffer     = 10 * 1024 * 1024
)

// Stream is an open upstream SSE response body.
type Stream struct {
	body io.ReadCloser

	ctx         context.Context
	cancel      context.CancelCauseFunc
	idle        *time.Timer
	idleTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func newStream(ctx context.Context, cancel context.CancelCauseFunc, body io.ReadCloser, idle *time.Timer, idleTimeout time.Duration) *Stream {
	return &Stream{
		body:        body,
		ctx:         ctx,
		cancel:      cancel,
		idle:        idle,
		idleTimeout: idleTimeout,
	}
}

// Lines returns the body as a lazy sequence of lines without their line
// terminators. Each pull blocks until a line arrives, and every line
// restarts the idle timer. A read failure, including an idle timeout, is
// yielded as the final element. The sequence should be ranged over once.
func (s *Stream) Lines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		scanner := bufio.NewScanner(s.body)
		scanner.Buffer(make([]byte, 0, initialLineBuffer), maxLineBuffer)
		for scanner.Scan() {
			s.resetIdle()
			if !yield(scanner.Text(), nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			if s.ctx != nil && errors.Is(context.Cause(s.ctx), ErrIdleTimeout) {
				err = fmt.Errorf("%w: %v", ErrIdleTimeout, err)
			}
			yield("", fmt.Errorf("failed to read upstream stream: %w", err))
		}
	}
}

func (s *Stream) resetIdle() {
	if s.idle != nil {
		s.idle.Reset(s.idleTimeout)
	}
}

// Close releases the connection. It is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		if s.idle != nil {
			s.idle.Stop()
		}
		s.closeErr = s.body.Close()
		if s.cancel != nil {
			s.cancel(nil)
		}
	})
	return s.closeErr
}
