package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	reminderdomain "miinplanner-backend/internal/reminder/domain"
	"miinplanner-backend/pkg/fcm"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Pusher sends a push notification to device tokens and reports the
// tokens that failed permanently.
type Pusher interface {
	SendToDevices(ctx context.Context, tokens []string, n fcm.NotificationData) ([]string, error)
}

// DeviceStore resolves and prunes a user's registered devices
type DeviceStore interface {
	DeviceTokens(ctx context.Context, uid string) ([]string, error)
	RemoveDeviceTokens(ctx context.Context, tokens []string)
}

// Dispatcher turns reminder events into push notifications
type Dispatcher struct {
	pusher  Pusher
	devices DeviceStore
	log     *zap.Logger
}

func NewDispatcher(pusher Pusher, devices DeviceStore, log *zap.Logger) *Dispatcher {
	return &Dispatcher{pusher: pusher, devices: devices, log: log.Named("dispatcher")}
}

// Dispatch pushes the event to every device of its user and removes tokens
// FCM rejected.
func (d *Dispatcher) Dispatch(ctx context.Context, e reminderdomain.TriggeredEvent) error {
	if d.pusher == nil {
		d.log.Debug("push disabled, dropping reminder", zap.String("reminder", e.ReminderID))
		return nil
	}

	tokens, err := d.devices.DeviceTokens(ctx, e.UserID)
	if err != nil {
		return fmt.Errorf("failed to load device tokens: %w", err)
	}
	if len(tokens) == 0 {
		d.log.Debug("no devices for user", zap.String("uid", e.UserID))
		return nil
	}

	n := buildNotification(e)
	failed, err := d.pusher.SendToDevices(ctx, tokens, n)
	if err != nil {
		return fmt.Errorf("failed to send reminder %s: %w", e.ReminderID, err)
	}
	if len(failed) > 0 {
		d.log.Info("removing failed tokens", zap.Int("count", len(failed)))
		d.devices.RemoveDeviceTokens(ctx, failed)
	}
	d.log.Info("reminder pushed", zap.String("reminder", e.ReminderID), zap.Int("devices", len(tokens)-len(failed)))
	return nil
}

func buildNotification(e reminderdomain.TriggeredEvent) fcm.NotificationData {
	link := "/reminders"
	if e.TaskID != "" {
		link = "/tasks?task=" + e.TaskID
	}
	return fcm.NotificationData{
		Title: "Reminder: " + e.Title,
		Body:  "Scheduled for " + e.RemindAt.UTC().Format("Jan 2, 15:04 MST"),
		Data: map[string]string{
			"type":        e.Type,
			"reminder_id": e.ReminderID,
			"task_id":     e.TaskID,
		},
		ClickAction: link,
	}
}

// DirectPublisher hands events straight to the dispatcher when no Pub/Sub
// topic is configured.
type DirectPublisher struct {
	dispatcher *Dispatcher
}

func NewDirectPublisher(d *Dispatcher) *DirectPublisher {
	return &DirectPublisher{dispatcher: d}
}

func (p *DirectPublisher) Publish(ctx context.Context, e reminderdomain.TriggeredEvent) error {
	return p.dispatcher.Dispatch(ctx, e)
}

// Service publishes reminder events to a Pub/Sub topic and consumes them
// from a subscription.
type Service struct {
	client     *pubsub.Client
	topic      *pubsub.Topic
	subName    string
	dispatcher *Dispatcher
	log        *zap.Logger
}

func NewService(ctx context.Context, projectID, topicName, subName, credentialsFile string, dispatcher *Dispatcher, log *zap.Logger) (*Service, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &Service{
		client:     client,
		topic:      client.Topic(topicName),
		subName:    subName,
		dispatcher: dispatcher,
		log:        log.Named("pubsub"),
	}, nil
}

// Publish implements the scheduler's publisher and waits for the server ack
func (s *Service) Publish(ctx context.Context, e reminderdomain.TriggeredEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	result := s.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"type": e.Type, "userId": e.UserID},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to publish reminder %s: %w", e.ReminderID, err)
	}
	s.log.Debug("published", zap.String("reminder", e.ReminderID), zap.String("message", id))
	return nil
}

// Start receives reminder events until ctx is cancelled, creating the
// subscription on first run.
func (s *Service) Start(ctx context.Context) error {
	sub := s.client.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check subscription: %w", err)
	}
	if !exists {
		sub, err = s.client.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       s.topic,
			AckDeadline: 20 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}
		s.log.Info("created subscription", zap.String("subscription", s.subName))
	}

	s.log.Info("listening", zap.String("subscription", s.subName))
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := s.handleMessage(ctx, msg.Data); err != nil {
			s.log.Warn("message failed", zap.String("id", msg.ID), zap.Error(err))
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// handleMessage dispatches one event. Malformed or foreign events are
// dropped without error so they are acked and not redelivered.
func (s *Service) handleMessage(ctx context.Context, data []byte) error {
	var e reminderdomain.TriggeredEvent
	if err := json.Unmarshal(data, &e); err != nil {
		s.log.Warn("dropping malformed message", zap.Error(err))
		return nil
	}
	if e.Type != reminderdomain.EventTriggered || e.UserID == "" {
		s.log.Debug("ignoring event", zap.String("type", e.Type))
		return nil
	}
	return s.dispatcher.Dispatch(ctx, e)
}

func (s *Service) Close() error {
	s.topic.Stop()
	return s.client.Close()
}
