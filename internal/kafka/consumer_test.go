package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/trading-services/internal/models"
	"github.com/example/trading-services/internal/transfer"
)

// fakeReader hands out queued messages and then blocks until ctx ends, or
// returns failWith once the queue is drained.
type fakeReader struct {
	mu       sync.Mutex
	msgs     []kafka.Message
	failWith error
	closed   bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	if r.failWith != nil {
		return kafka.Message{}, r.failWith
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type fakeTransferer struct {
	mu   sync.Mutex
	reqs []models.TransferRequest
	err  map[string]error
	done chan struct{}
	want int
}

func (f *fakeTransferer) Transfer(_ context.Context, req models.TransferRequest) (transfer.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if len(f.reqs) == f.want && f.done != nil {
		close(f.done)
	}
	return transfer.Result{}, f.err[req.RecordID]
}

func message(t *testing.T, offset int64, req models.TransferRequest) kafka.Message {
	t.Helper()
	b, err := json.Marshal(req)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Key: []byte(req.RecordID), Value: b}
}

func TestConsumerAppliesRequestsUntilCancelled(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		message(t, 1, models.TransferRequest{RecordID: "AAPL", FromOwner: "user1", ToOwner: "user2"}),
		{Offset: 2, Value: []byte("not json")},
		message(t, 3, models.TransferRequest{RecordID: "NOPE", FromOwner: "user1", ToOwner: "user2"}),
		message(t, 4, models.TransferRequest{RecordID: "MSFT", FromOwner: "user2", ToOwner: "user3"}),
	}}
	eng := &fakeTransferer{
		err:  map[string]error{"NOPE": transfer.ErrNotFound},
		done: make(chan struct{}),
		want: 3,
	}
	core, logs := observer.New(zap.DebugLevel)
	c := &Consumer{Reader: reader, Engine: eng, Logger: zap.New(core)}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()

	select {
	case <-eng.done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not apply all requests")
	}
	cancel()
	require.NoError(t, <-errc)

	ids := make([]string, 0, len(eng.reqs))
	for _, r := range eng.reqs {
		ids = append(ids, r.RecordID)
	}
	assert.Equal(t, []string{"AAPL", "NOPE", "MSFT"}, ids)
	assert.True(t, reader.closed)

	assert.Equal(t, 1, logs.FilterMessage("bad message").Len())
	rejected := logs.FilterMessage("transfer request rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, "not_found", rejected[0].ContextMap()["outcome"])
	assert.Equal(t, 2, logs.FilterMessage("transfer request applied").Len())
}

func TestConsumerReturnsReaderError(t *testing.T) {
	boom := errors.New("group coordinator not available")
	reader := &fakeReader{failWith: boom}
	c := &Consumer{Reader: reader, Engine: &fakeTransferer{}, Logger: zap.NewNop()}

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, reader.closed)
}
