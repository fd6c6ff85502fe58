package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"rental/internal/services"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ackRecorder struct {
	mu      sync.Mutex
	acks    int
	nacks   int
	rejects int
	requeue bool
}

func (a *ackRecorder) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *ackRecorder) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks++
	a.requeue = requeue
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejects++
	a.requeue = requeue
	return nil
}

type stubExpirer struct {
	mu      sync.Mutex
	seen    []string
	outcome services.ExpiryOutcome
	err     error
}

func (s *stubExpirer) ExpireIfPending(_ context.Context, id string) (services.ExpiryOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, id)
	return s.outcome, s.err
}

func delivery(t *testing.T, acker amqp.Acknowledger, body any) amqp.Delivery {
	t.Helper()
	raw, ok := body.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, MessageId: "msg-1", Body: raw}
}

func TestExpiryWorkerAcksHandledMessages(t *testing.T) {
	for _, outcome := range []services.ExpiryOutcome{services.ExpiryCancelled, services.ExpiryNotPending, services.ExpiryNotFound} {
		acker := &ackRecorder{}
		exp := &stubExpirer{outcome: outcome}
		w := ExpiryWorker{Expiry: exp}

		w.Handle(context.Background(), delivery(t, acker, ExpiryMessage{BookingID: "b-1", DueAt: time.Now()}))

		assert.Equal(t, 1, acker.acks, "outcome %s", outcome)
		assert.Equal(t, []string{"b-1"}, exp.seen)
	}
}

func TestExpiryWorkerRequeuesOnError(t *testing.T) {
	acker := &ackRecorder{}
	w := ExpiryWorker{Expiry: &stubExpirer{err: errors.New("db down")}}

	w.Handle(context.Background(), delivery(t, acker, ExpiryMessage{BookingID: "b-1"}))

	assert.Equal(t, 0, acker.acks)
	assert.Equal(t, 1, acker.nacks)
	assert.True(t, acker.requeue)
}

func TestExpiryWorkerDropsRedeliveredFailure(t *testing.T) {
	acker := &ackRecorder{}
	exp := &stubExpirer{err: errors.New("db down")}
	w := ExpiryWorker{Expiry: exp}

	d := delivery(t, acker, ExpiryMessage{BookingID: "b-1"})
	d.Redelivered = true
	w.Handle(context.Background(), d)

	assert.Equal(t, 0, acker.nacks)
	assert.Equal(t, 1, acker.rejects)
	assert.False(t, acker.requeue)
	assert.Equal(t, []string{"b-1"}, exp.seen)
}

func TestExpiryWorkerRejectsMalformed(t *testing.T) {
	for _, body := range [][]byte{[]byte("not json"), []byte(`{"bookingId":"  "}`)} {
		acker := &ackRecorder{}
		exp := &stubExpirer{}
		w := ExpiryWorker{Expiry: exp}

		w.Handle(context.Background(), delivery(t, acker, body))

		assert.Equal(t, 1, acker.rejects)
		assert.False(t, acker.requeue)
		assert.Empty(t, exp.seen)
	}
}

func TestExpiryWorkerRunStopsWhenChannelCloses(t *testing.T) {
	acker := &ackRecorder{}
	exp := &stubExpirer{outcome: services.ExpiryCancelled}
	ch := make(chan amqp.Delivery, 2)
	ch <- delivery(t, acker, ExpiryMessage{BookingID: "b-1"})
	ch <- delivery(t, acker, ExpiryMessage{BookingID: "b-2"})
	close(ch)

	err := ExpiryWorker{Expiry: exp}.Run(context.Background(), ch)

	require.NoError(t, err)
	assert.Equal(t, []string{"b-1", "b-2"}, exp.seen)
	assert.Equal(t, 2, acker.acks)
}
