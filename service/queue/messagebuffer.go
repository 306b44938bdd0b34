package queue

import (
	"fmt"

	"github.com/viant/mkernel/service/scheduler"
)

// MessageBuffer is a byte-stream ring for a single producer and a single
// consumer. One slot is kept empty so head == tail always means empty,
// never full.
type MessageBuffer struct {
	kernel   *scheduler.Kernel
	buf      []byte
	head     int
	tail     int
	notEmpty scheduler.WaitQueue
	notFull  scheduler.WaitQueue
}

// NewMessageBuffer creates a buffer that can hold up to capacity bytes.
func NewMessageBuffer(kernel *scheduler.Kernel, capacity int) (*MessageBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("queue: buffer capacity must be positive, got %d", capacity)
	}
	return &MessageBuffer{kernel: kernel, buf: make([]byte, capacity+1)}, nil
}

func (b *MessageBuffer) usedLocked() int {
	n := b.tail - b.head
	if n < 0 {
		n += len(b.buf)
	}
	return n
}

func (b *MessageBuffer) freeLocked() int {
	return len(b.buf) - 1 - b.usedLocked()
}

// Send writes as much of p as fits, blocking up to timeout ticks whenever
// the buffer is full and bytes remain. It returns the number of bytes
// written. When the deadline passes with bytes still pending the partial
// count is returned without an error unless nothing was written at all.
func (b *MessageBuffer) Send(p []byte, timeout scheduler.Ticks) (int, error) {
	b.kernel.Lock()
	defer b.kernel.Unlock()

	var deadline scheduler.Ticks
	if timeout != 0 && timeout != scheduler.Forever {
		deadline = b.kernel.TickCountLocked() + timeout
	}
	written := 0
	for written < len(p) {
		for b.freeLocked() == 0 {
			if written > 0 {
				// Hand partial data to a blocked reader before parking.
				b.kernel.WakeOneLocked(&b.notEmpty)
			}
			if timeout == 0 {
				if written == 0 {
					return 0, ErrTimeout
				}
				return written, nil
			}
			remaining := scheduler.Forever
			if timeout != scheduler.Forever {
				now := b.kernel.TickCountLocked()
				if now >= deadline {
					if written == 0 {
						return 0, ErrTimeout
					}
					return written, nil
				}
				remaining = deadline - now
			}
			if !b.kernel.BlockCurrentLocked(&b.notFull, remaining) {
				if written == 0 {
					return 0, ErrTimeout
				}
				return written, nil
			}
		}
		b.buf[b.tail] = p[written]
		b.tail = (b.tail + 1) % len(b.buf)
		written++
	}
	if written > 0 {
		b.kernel.WakeOneLocked(&b.notEmpty)
	}
	return written, nil
}

// Receive reads up to len(p) bytes, blocking up to timeout ticks until at
// least one byte is available, then draining whatever is buffered. It
// returns the number of bytes read.
func (b *MessageBuffer) Receive(p []byte, timeout scheduler.Ticks) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b.kernel.Lock()
	defer b.kernel.Unlock()

	var deadline scheduler.Ticks
	if timeout != 0 && timeout != scheduler.Forever {
		deadline = b.kernel.TickCountLocked() + timeout
	}
	for b.usedLocked() == 0 {
		if timeout == 0 {
			return 0, ErrTimeout
		}
		remaining := scheduler.Forever
		if timeout != scheduler.Forever {
			now := b.kernel.TickCountLocked()
			if now >= deadline {
				return 0, ErrTimeout
			}
			remaining = deadline - now
		}
		if !b.kernel.BlockCurrentLocked(&b.notEmpty, remaining) {
			return 0, ErrTimeout
		}
	}
	read := 0
	for read < len(p) && b.usedLocked() > 0 {
		p[read] = b.buf[b.head]
		b.head = (b.head + 1) % len(b.buf)
		read++
	}
	if read > 0 {
		b.kernel.WakeOneLocked(&b.notFull)
	}
	return read, nil
}

// Len returns the number of buffered bytes.
func (b *MessageBuffer) Len() int {
	b.kernel.Lock()
	defer b.kernel.Unlock()
	return b.usedLocked()
}

// Cap returns the buffer capacity in bytes.
func (b *MessageBuffer) Cap() int { return len(b.buf) - 1 }
