package service

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dcc-ufba/monitoria-api/internal/models"
	"github.com/dcc-ufba/monitoria-api/pkg/jobs"
)

// Dispatcher hands notifications to a delivery channel. Dispatch is
// fire-and-forget from the caller's perspective: lifecycle transitions never
// depend on delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, notification models.Notification) error
}

// Sender performs the actual delivery of one notification.
type Sender interface {
	Send(ctx context.Context, notification models.Notification) error
}

// SMTPSender delivers notifications as plain-text email.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Send submits the message to the configured SMTP relay.
func (s *SMTPSender) Send(_ context.Context, notification models.Notification) error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + notification.Recipient,
		"Subject: " + notification.Subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		notification.Body,
	}, "\r\n")
	if err := smtp.SendMail(addr, auth, s.From, []string{notification.Recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", notification.Recipient, err)
	}
	return nil
}

// NopSender drops notifications. Used when delivery is disabled.
type NopSender struct{}

// Send discards the notification.
func (NopSender) Send(context.Context, models.Notification) error { return nil }

type notificationLogWriter interface {
	Create(ctx context.Context, log *models.NotificationLog) error
}

// NotifierService dispatches notifications through a background worker
// queue and records every delivery outcome.
type NotifierService struct {
	queue  *jobs.Queue
	sender Sender
	logs   notificationLogWriter
	logger *zap.Logger
}

// NewNotifierService constructs the notifier and its backing queue.
func NewNotifierService(sender Sender, logs notificationLogWriter, cfg jobs.QueueConfig, logger *zap.Logger) *NotifierService {
	if sender == nil {
		sender = NopSender{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotifierService{sender: sender, logs: logs, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.handle, cfg)
	return s
}

// Start begins background delivery workers.
func (s *NotifierService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotifierService) Stop() {
	s.queue.Stop()
}

// Dispatch enqueues a notification for asynchronous delivery.
func (s *NotifierService) Dispatch(_ context.Context, notification models.Notification) error {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(notification.Kind),
		Payload: notification,
	}
	if err := s.queue.Enqueue(job); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

func (s *NotifierService) handle(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}

	sendErr := s.sender.Send(ctx, notification)

	log := &models.NotificationLog{
		Kind:      notification.Kind,
		Recipient: notification.Recipient,
		Subject:   notification.Subject,
		Status:    models.NotificationStatusSent,
		UserID:    notification.UserID,
		EntityID:  notification.EntityID,
	}
	if sendErr != nil {
		log.Status = models.NotificationStatusFailed
		msg := sendErr.Error()
		log.Error = &msg
	}
	if s.logs != nil {
		if err := s.logs.Create(ctx, log); err != nil {
			s.logger.Error("failed to persist notification log", zap.Error(err))
		}
	}

	if sendErr != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("kind", string(notification.Kind)),
			zap.String("recipient", notification.Recipient),
			zap.Error(sendErr))
		return sendErr
	}
	return nil
}
