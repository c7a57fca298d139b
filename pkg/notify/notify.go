// Package notify delivers notifications over every configured channel.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fleet-manager/pkg/apperr"
	"fleet-manager/pkg/email"
	"fleet-manager/pkg/whatsapp"

	log "github.com/sirupsen/logrus"
)

// Recipient is whoever a notification is addressed to. Either contact may be
// empty.
type Recipient struct {
	Name  string
	Email string
	Phone string
}

func (r Recipient) String() string {
	switch {
	case r.Email != "" && r.Phone != "":
		return r.Email + " / " + r.Phone
	case r.Email != "":
		return r.Email
	case r.Phone != "":
		return r.Phone
	}
	return r.Name
}

// Content is a message rendered for every channel. HTML is used by e-mail,
// Text by messaging channels.
type Content struct {
	Subject string
	Text    string
	HTML    string
}

// Receipt lists the channels that accepted a message and the ones that failed.
type Receipt struct {
	Delivered []string
	Failed    map[string]string
}

// Sink sends a notification. A nil error means at least one channel delivered.
// Failures are *apperr.Error of kind delivery.
type Sink interface {
	Send(ctx context.Context, to Recipient, msg Content) (Receipt, error)
}

// Channel is one delivery mechanism.
type Channel interface {
	Name() string
	Reaches(to Recipient) bool
	Deliver(ctx context.Context, to Recipient, msg Content) error
}

// MultiChannelSink tries every channel that can reach the recipient.
type MultiChannelSink struct {
	channels []Channel
}

func NewMultiChannelSink(channels ...Channel) *MultiChannelSink {
	return &MultiChannelSink{channels: channels}
}

// Channels returns the names of the configured channels.
func (s *MultiChannelSink) Channels() []string {
	names := make([]string, 0, len(s.channels))
	for _, ch := range s.channels {
		names = append(names, ch.Name())
	}
	return names
}

func (s *MultiChannelSink) Send(ctx context.Context, to Recipient, msg Content) (Receipt, error) {
	receipt := Receipt{Failed: map[string]string{}}
	var errs []error
	attempted := 0

	for _, ch := range s.channels {
		if !ch.Reaches(to) {
			continue
		}
		attempted++

		if err := ch.Deliver(ctx, to, msg); err != nil {
			receipt.Failed[ch.Name()] = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			log.WithError(err).WithFields(log.Fields{"channel": ch.Name(), "recipient": to.String()}).Warn("Notification channel failed")
			continue
		}
		receipt.Delivered = append(receipt.Delivered, ch.Name())
	}

	if len(receipt.Delivered) > 0 {
		return receipt, nil
	}
	if attempted == 0 {
		return receipt, apperr.Delivery(nil, "no configured channel can reach %s", describe(to))
	}
	return receipt, apperr.Delivery(errors.Join(errs...), "notification to %s failed", describe(to))
}

func describe(to Recipient) string {
	if s := to.String(); s != "" {
		return s
	}
	return "recipient without contact details"
}

// EmailChannel adapts the SMTP service.
type EmailChannel struct {
	service *email.EmailService
}

func NewEmailChannel(service *email.EmailService) *EmailChannel {
	return &EmailChannel{service: service}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Reaches(to Recipient) bool {
	return strings.Contains(to.Email, "@")
}

func (c *EmailChannel) Deliver(ctx context.Context, to Recipient, msg Content) error {
	body := msg.HTML
	if body == "" {
		body = "<p>" + strings.ReplaceAll(msg.Text, "\n", "<br>") + "</p>"
	}
	return c.service.Send(ctx, to.Email, msg.Subject, body)
}

// WhatsAppChannel adapts the WhatsApp gateway client.
type WhatsAppChannel struct {
	client *whatsapp.Client
}

func NewWhatsAppChannel(client *whatsapp.Client) *WhatsAppChannel {
	return &WhatsAppChannel{client: client}
}

func (c *WhatsAppChannel) Name() string { return "whatsapp" }

func (c *WhatsAppChannel) Reaches(to Recipient) bool {
	return strings.TrimSpace(to.Phone) != ""
}

func (c *WhatsAppChannel) Deliver(ctx context.Context, to Recipient, msg Content) error {
	_, err := c.client.Send(ctx, whatsapp.Message{Recipient: to.Phone, Text: msg.Text})
	return err
}
