package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/petcare-identity/internal/config"
	"github.com/spec-kit/petcare-identity/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRegistrationSubmitted, n.handleRegistrationSubmitted)
	n.dispatcher.Subscribe(events.EventRegistrationUnderReview, n.handleRegistrationDecision)
	n.dispatcher.Subscribe(events.EventRegistrationApproved, n.handleRegistrationDecision)
	n.dispatcher.Subscribe(events.EventRegistrationRejected, n.handleRegistrationDecision)
	n.dispatcher.Subscribe(events.EventIdentityStatusChanged, n.handleIdentityStatusChanged)
	n.dispatcher.Subscribe(events.EventIdentityDeleted, n.handleIdentityStatusChanged)
	n.dispatcher.Subscribe(events.EventAdminOverrideLogin, n.handleOverrideLogin)
}

func (n *NotificationService) handleRegistrationSubmitted(ctx context.Context, event events.Event) error {
	n.logger.Info("RegistrationSubmitted", zap.String("application_id", event.SubjectID))
	n.sendEmailNotificationStub(ctx, event, recipient(event))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleRegistrationDecision(ctx context.Context, event events.Event) error {
	n.logger.Info("RegistrationDecision",
		zap.String("application_id", event.SubjectID),
		zap.String("event_type", string(event.Type)),
		zap.String("reviewer_id", event.Actor.IdentityID),
		zap.Bool("system", event.Actor.System))
	n.sendEmailNotificationStub(ctx, event, recipient(event))
	return nil
}

func (n *NotificationService) handleIdentityStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("IdentityStatusChanged",
		zap.String("event_type", string(event.Type)),
		zap.String("admin_id", event.Actor.IdentityID),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleOverrideLogin(ctx context.Context, event events.Event) error {
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func recipient(event events.Event) string {
	if p, ok := event.Payload.(events.RegistrationPayload); ok {
		return p.Email
	}
	return ""
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event, to string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || to == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("subject_id", event.SubjectID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("subject_id", event.SubjectID),
		zap.String("event_type", string(event.Type)))
}
