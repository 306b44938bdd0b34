package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/mkernel/service/scheduler"
)

func TestMessageBuffer_Validation(t *testing.T) {
	k := scheduler.New()
	_, err := NewMessageBuffer(k, 0)
	assert.Error(t, err)
}

func TestMessageBuffer_PartialWriteThenDrain(t *testing.T) {
	k := scheduler.New()
	b, err := NewMessageBuffer(k, 4)
	assert.NoError(t, err)

	written, err := b.Send([]byte("0123456789"), 0)
	assert.NoError(t, err)
	assert.Equal(t, 4, written)
	assert.Equal(t, 4, b.Len())

	out := make([]byte, 10)
	read, err := b.Receive(out, 0)
	assert.NoError(t, err)
	assert.Equal(t, 4, read)
	assert.Equal(t, "0123", string(out[:read]))
	assert.Zero(t, b.Len())
}

func TestMessageBuffer_EmptyOperations(t *testing.T) {
	k := scheduler.New()
	b, err := NewMessageBuffer(k, 4)
	assert.NoError(t, err)

	_, err = b.Receive(make([]byte, 4), 0)
	assert.ErrorIs(t, err, ErrTimeout)

	n, err := b.Receive(nil, 0)
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 4, b.Cap())
}

func TestMessageBuffer_WrapAround(t *testing.T) {
	k := scheduler.New()
	b, err := NewMessageBuffer(k, 4)
	assert.NoError(t, err)
	out := make([]byte, 4)

	for _, chunk := range []string{"ab", "cde", "fg", "hij"} {
		written, sErr := b.Send([]byte(chunk), 0)
		assert.NoError(t, sErr)
		assert.Equal(t, len(chunk), written)
		read, rErr := b.Receive(out, 0)
		assert.NoError(t, rErr)
		assert.Equal(t, chunk, string(out[:read]))
	}
}

func TestMessageBuffer_ReceiveWakesOnSend(t *testing.T) {
	k := scheduler.New()
	b, err := NewMessageBuffer(k, 8)
	assert.NoError(t, err)
	var got string

	_, err = k.CreateTask("READER", func(interface{}) {
		buf := make([]byte, 8)
		n, rErr := b.Receive(buf, scheduler.Forever)
		assert.NoError(t, rErr)
		got = string(buf[:n])
		k.Delay(1000)
	}, 1024, nil, scheduler.PriorityHigh)
	assert.NoError(t, err)

	_, err = k.CreateTask("WRITER", func(interface{}) {
		k.Delay(2)
		n, sErr := b.Send([]byte("ping"), scheduler.Forever)
		assert.NoError(t, sErr)
		assert.Equal(t, 4, n)
		k.Delay(1000)
	}, 1024, nil, scheduler.PriorityNormal)
	assert.NoError(t, err)

	assert.NoError(t, k.Start())
	step(k, 8)
	assert.Equal(t, "ping", got)
}

func TestMessageBuffer_BlockedSendCompletesAsReaderDrains(t *testing.T) {
	k := scheduler.New()
	b, err := NewMessageBuffer(k, 4)
	assert.NoError(t, err)
	var sent int
	var chunks []string

	_, err = k.CreateTask("WRITER", func(interface{}) {
		n, sErr := b.Send([]byte("abcdefgh"), scheduler.Forever)
		assert.NoError(t, sErr)
		sent = n
		k.Delay(1000)
	}, 1024, nil, scheduler.PriorityNormal)
	assert.NoError(t, err)

	_, err = k.CreateTask("READER", func(interface{}) {
		buf := make([]byte, 4)
		for len(chunks) < 2 {
			n, rErr := b.Receive(buf, scheduler.Forever)
			assert.NoError(t, rErr)
			chunks = append(chunks, string(buf[:n]))
		}
		k.Delay(1000)
	}, 1024, nil, scheduler.PriorityLow)
	assert.NoError(t, err)

	assert.NoError(t, k.Start())
	step(k, 8)
	assert.Equal(t, 8, sent)
	assert.Equal(t, []string{"abcd", "efgh"}, chunks)
}

func TestMessageBuffer_ReceiveTimesOut(t *testing.T) {
	k := scheduler.New()
	b, err := NewMessageBuffer(k, 4)
	assert.NoError(t, err)
	var recvErr error

	_, err = k.CreateTask("READER", func(interface{}) {
		_, recvErr = b.Receive(make([]byte, 4), 2)
		k.Delay(1000)
	}, 1024, nil, scheduler.PriorityNormal)
	assert.NoError(t, err)

	assert.NoError(t, k.Start())
	step(k, 4)
	assert.ErrorIs(t, recvErr, ErrTimeout)
}
