package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"gymflow/internal/logger"
	"gymflow/internal/metrics"
)

const (
	queueKey  = "notifications"
	failedKey = "notifications:failed"

	maxDeliveryTries = 3
)

type Kind string

const (
	KindBookingConfirmed    Kind = "booking_confirmed"
	KindBookingCancelled    Kind = "booking_cancelled"
	KindWaitlistPromoted    Kind = "waitlist_promoted"
	KindMembershipActivated Kind = "membership_activated"
	KindPaymentReceived     Kind = "payment_received"
	KindPaymentRetry        Kind = "payment_retry"
	KindPaymentFailed       Kind = "payment_failed"
)

type Message struct {
	Phone   string            `json:"phone"`
	Name    string            `json:"name"`
	Kind    Kind              `json:"kind"`
	Params  map[string]string `json:"params"`
	Tries   int               `json:"tries"`
	Created time.Time         `json:"created"`
}

// Notifier is the fire-and-forget dispatch the core services use. Queueing
// either succeeds or fails immediately; delivery happens on the worker and
// its failures never reach the caller.
type Notifier interface {
	Queue(ctx context.Context, msg Message) error
}

// Sender delivers a single message (SMS gateway, push, etc).
type Sender interface {
	Send(msg Message) error
}

type Service struct {
	redis  *redis.Client
	sender Sender
}

func New(redisAddr string, sender Sender) *Service {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: redisAddr}), sender)
}

func NewWithClient(client *redis.Client, sender Sender) *Service {
	return &Service{
		redis:  client,
		sender: sender,
	}
}

func (s *Service) Queue(ctx context.Context, msg Message) error {
	msg.Tries = 0
	if msg.Created.IsZero() {
		msg.Created = time.Now()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		logger.Errorf("Failed to marshal notification: %v", err)
		metrics.RecordNotification(string(msg.Kind), "marshal_error")
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue %s notification to %s: %v", msg.Kind, msg.Phone, err)
		metrics.RecordNotification(string(msg.Kind), "queue_error")
		return err
	}

	metrics.RecordNotification(string(msg.Kind), "queued")
	logger.Infof("Notification queued: %s to %s", msg.Kind, msg.Phone)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var msg Message
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		logger.Errorf("Bad notification data: %v", err)
		return
	}

	msg.Tries++
	if err := s.sender.Send(msg); err != nil {
		logger.Errorf("Failed to send %s notification to %s (attempt %d): %v", msg.Kind, msg.Phone, msg.Tries, err)

		if msg.Tries < maxDeliveryTries {
			data, _ := json.Marshal(msg)
			s.redis.LPush(context.Background(), queueKey, data)
		} else {
			s.saveFailed(msg, err)
		}
		return
	}

	logger.Infof("Notification sent: %s to %s", msg.Kind, msg.Phone)
}

func (s *Service) saveFailed(msg Message, sendErr error) {
	failed := map[string]interface{}{
		"message": msg,
		"error":   sendErr.Error(),
		"time":    time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedKey, data)
	logger.Errorf("Notification to %s moved to failed queue after %d attempts", msg.Phone, msg.Tries)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	metrics.NotificationQueueLength.Set(float64(length))
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}
