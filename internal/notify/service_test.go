package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	sent []Message
	err  error
}

func (s *stubSender) Send(msg Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func TestQueue(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush("notifications", `.*`).SetVal(1)

	svc := NewWithClient(db, &stubSender{})

	err := svc.Queue(ctx, Message{
		Phone: "+549115555",
		Name:  "Ana",
		Kind:  KindBookingConfirmed,
		Params: map[string]string{
			"session_id": "3",
		},
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueue_RedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush("notifications", `.*`).SetErr(assert.AnError)

	svc := NewWithClient(db, &stubSender{})

	err := svc.Queue(ctx, Message{
		Phone: "+549115555",
		Kind:  KindWaitlistPromoted,
	})

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNext_Delivers(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	msg := Message{Phone: "+549115555", Name: "Ana", Kind: KindWaitlistPromoted}
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	mock.ExpectBRPop(2*time.Second, "notifications").SetVal([]string{"notifications", string(data)})

	sender := &stubSender{}
	svc := NewWithClient(db, sender)

	svc.processNext(ctx)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, KindWaitlistPromoted, sender.sent[0].Kind)
	assert.Equal(t, 1, sender.sent[0].Tries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNext_RetriesFailedDelivery(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	msg := Message{Phone: "+549115555", Kind: KindPaymentRetry}
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	mock.ExpectBRPop(2*time.Second, "notifications").SetVal([]string{"notifications", string(data)})
	mock.Regexp().ExpectLPush("notifications", `.*`).SetVal(1)

	svc := NewWithClient(db, &stubSender{err: assert.AnError})

	svc.processNext(ctx)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNext_ExhaustedDeliveryGoesToFailedQueue(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	msg := Message{Phone: "+549115555", Kind: KindPaymentFailed, Tries: 2}
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	mock.ExpectBRPop(2*time.Second, "notifications").SetVal([]string{"notifications", string(data)})
	mock.Regexp().ExpectLPush("notifications:failed", `.*`).SetVal(1)

	svc := NewWithClient(db, &stubSender{err: assert.AnError})

	svc.processNext(ctx)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueLength(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.ExpectLLen("notifications").SetVal(4)

	svc := NewWithClient(db, &stubSender{})

	assert.Equal(t, int64(4), svc.QueueLength(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueLengthZero(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.ExpectLLen("notifications").SetVal(0)

	svc := NewWithClient(db, &stubSender{})

	assert.Equal(t, int64(0), svc.QueueLength(ctx))
}
