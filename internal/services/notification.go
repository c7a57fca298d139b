package services

import (
	"context"
	"errors"
	"strings"

	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/pkg/apperr"
	"fleet-manager/pkg/metrics"
	"fleet-manager/pkg/notify"
	"fleet-manager/pkg/whatsapp"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WhatsAppSender is the gateway client used by the test endpoint.
type WhatsAppSender interface {
	Send(ctx context.Context, msg whatsapp.Message) (map[string]interface{}, error)
}

// NotificationService sends owner notices, keeps the notification log and
// serves the WhatsApp test message.
type NotificationService struct {
	sink     notify.Sink
	composer *notify.Composer
	users    UserStore
	vehicles VehicleStore
	history  NotificationStore
	whatsapp WhatsAppSender
}

func NewNotificationService(sink notify.Sink, users UserStore, vehicles VehicleStore, history NotificationStore) *NotificationService {
	return &NotificationService{
		sink:     sink,
		composer: notify.NewComposer(),
		users:    users,
		vehicles: vehicles,
		history:  history,
	}
}

// SetWhatsAppSender enables the WhatsApp test endpoint.
func (s *NotificationService) SetWhatsAppSender(sender WhatsAppSender) {
	s.whatsapp = sender
}

// RecipientFor builds the notification recipient of a user.
func RecipientFor(user *models.User) notify.Recipient {
	return notify.Recipient{
		Name:  user.Name,
		Email: user.Email,
		Phone: user.MessagingNumber(),
	}
}

// NotifyVehicleOwner sends notice to the user responsible for a vehicle. It
// is best effort: failures are logged and recorded, never returned.
func (s *NotificationService) NotifyVehicleOwner(ctx context.Context, vehicleID primitive.ObjectID, kind string, notice notify.Notice) {
	if s == nil || s.sink == nil {
		return
	}
	entry := log.WithFields(log.Fields{"vehicle_id": vehicleID.Hex(), "kind": kind})

	vehicle, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		entry.WithError(err).Warn("Cannot notify owner, vehicle lookup failed")
		return
	}
	if vehicle.UserID == nil {
		entry.Debug("Vehicle has no responsible user, skipping notification")
		return
	}
	user, err := s.users.FindByID(ctx, *vehicle.UserID)
	if err != nil {
		entry.WithError(err).Warn("Cannot notify owner, user lookup failed")
		return
	}

	notice.RecipientName = user.Name
	content, err := s.composer.Notice(notice)
	if err != nil {
		entry.WithError(err).Error("Failed to render notification")
		return
	}

	to := RecipientFor(user)
	receipt, sendErr := s.sink.Send(ctx, to, content)
	metrics.ObserveNotification(kind, sendErr == nil)
	if sendErr != nil {
		entry.WithError(sendErr).Warn("Owner notification failed")
	}

	s.Record(ctx, &models.NotificationLog{
		Kind:      kind,
		VehicleID: &vehicle.ID,
		Plate:     vehicle.Plate,
		Recipient: to.String(),
		Channels:  receiptChannels(receipt),
		Delivered: sendErr == nil,
		Error:     errorText(sendErr),
	})
}

// Record stores a log entry, logging instead of failing.
func (s *NotificationService) Record(ctx context.Context, entry *models.NotificationLog) {
	if s.history == nil {
		return
	}
	if err := s.history.Insert(ctx, entry); err != nil {
		log.WithError(err).WithField("kind", entry.Kind).Warn("Failed to record notification")
	}
}

// ListNotifications returns a page of the notification log.
func (s *NotificationService) ListNotifications(ctx context.Context, vehicleID, kind string, page, limit int) ([]*models.NotificationLog, int64, error) {
	filter := repository.NotificationFilter{Kind: kind}
	if vehicleID != "" {
		id, err := repository.ParseID(vehicleID, "vehicle")
		if err != nil {
			return nil, 0, err
		}
		filter.VehicleID = &id
	}
	if limit > 0 {
		filter.Limit = int64(limit)
		if page > 1 {
			filter.Skip = int64((page - 1) * limit)
		}
	}
	return s.history.List(ctx, filter)
}

type WhatsAppTestRequest struct {
	Recipient     string `json:"recipient" validate:"required,ptphone"`
	Message       string `json:"message" validate:"required,max=1000"`
	ScheduledDate string `json:"scheduledDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ScheduledTime string `json:"scheduledTime,omitempty" validate:"omitempty,datetime=15:04"`
}

// SendWhatsAppTest sends a single message straight through the gateway.
func (s *NotificationService) SendWhatsAppTest(ctx context.Context, req *WhatsAppTestRequest) (map[string]interface{}, error) {
	if s.whatsapp == nil {
		return nil, apperr.Validation("WhatsApp is not configured")
	}

	msg := whatsapp.Message{
		Recipient:     whatsapp.NormalizeRecipient(req.Recipient),
		Text:          strings.TrimSpace(req.Message),
		ScheduledDate: req.ScheduledDate,
		ScheduledTime: req.ScheduledTime,
	}

	reply, err := s.whatsapp.Send(ctx, msg)
	if errors.Is(err, whatsapp.ErrMissingFields) {
		return nil, apperr.Validation("%v", err)
	}
	if err != nil {
		return nil, apperr.Delivery(err, "failed to send WhatsApp message")
	}

	log.WithField("recipient", msg.Recipient).Info("WhatsApp test message sent")
	return reply, nil
}

func receiptChannels(r notify.Receipt) []string {
	channels := append([]string{}, r.Delivered...)
	for name := range r.Failed {
		channels = append(channels, name)
	}
	return channels
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
