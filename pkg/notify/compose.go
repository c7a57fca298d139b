package notify

import (
	"fmt"
	"strings"
	"time"

	"fleet-manager/pkg/email"
)

// DateLayout is the pt-PT calendar date format used in every message.
const DateLayout = "02/01/2006"

// Reminder describes an upcoming inspection.
type Reminder struct {
	RecipientName string
	Plate         string
	Brand         string
	Model         string
	Company       string
	DueDate       time.Time
	ConfirmLink   string
}

// SummaryLine is one vehicle in a manager summary.
type SummaryLine struct {
	Plate     string
	DueDate   time.Time
	Delivered bool
}

// Summary is the fleet wide digest sent to primary managers after a dispatch run.
type Summary struct {
	Date      time.Time
	Reminders []SummaryLine
	Escalated int64
}

// Notice is a short free form message, e.g. a new task or maintenance entry.
type Notice struct {
	Title         string
	RecipientName string
	Lines         []string
}

// Composer renders domain events into channel ready Content.
type Composer struct{}

func NewComposer() *Composer {
	return &Composer{}
}

func (c *Composer) InspectionReminder(r Reminder) (Content, error) {
	vehicle := strings.TrimSpace(r.Brand + " " + r.Model)
	due := r.DueDate.Format(DateLayout)

	html, err := email.RenderInspectionReminder(email.InspectionReminderData{
		RecipientName: r.RecipientName,
		Plate:         r.Plate,
		Vehicle:       vehicle,
		Company:       r.Company,
		DueDate:       due,
		ConfirmLink:   r.ConfirmLink,
	})
	if err != nil {
		return Content{}, err
	}

	var text strings.Builder
	if r.RecipientName != "" {
		fmt.Fprintf(&text, "Olá %s,\n", r.RecipientName)
	}
	fmt.Fprintf(&text, "Lembrete: o veículo %s", r.Plate)
	if vehicle != "" {
		fmt.Fprintf(&text, " (%s)", vehicle)
	}
	fmt.Fprintf(&text, " tem inspeção periódica agendada para %s.", due)
	if r.ConfirmLink != "" {
		fmt.Fprintf(&text, "\nConfirme a inspeção em: %s", r.ConfirmLink)
	}

	return Content{
		Subject: fmt.Sprintf("Lembrete: Inspeção do veículo %s", r.Plate),
		Text:    text.String(),
		HTML:    html,
	}, nil
}

func (c *Composer) ManagerSummary(s Summary) (Content, error) {
	lines := []string{
		fmt.Sprintf("Lembretes enviados: %d", countDelivered(s.Reminders)),
		fmt.Sprintf("Inspeções marcadas como atrasadas: %d", s.Escalated),
	}
	for _, r := range s.Reminders {
		state := "enviado"
		if !r.Delivered {
			state = "falhou"
		}
		lines = append(lines, fmt.Sprintf("%s - %s (%s)", r.Plate, r.DueDate.Format(DateLayout), state))
	}

	return c.Notice(Notice{
		Title: fmt.Sprintf("Resumo de inspeções %s", s.Date.Format(DateLayout)),
		Lines: lines,
	})
}

func (c *Composer) Notice(n Notice) (Content, error) {
	html, err := email.RenderNotification(email.NotificationData{
		Title:         n.Title,
		RecipientName: n.RecipientName,
		Lines:         n.Lines,
	})
	if err != nil {
		return Content{}, err
	}

	text := append([]string{n.Title}, n.Lines...)
	return Content{
		Subject: n.Title,
		Text:    strings.Join(text, "\n"),
		HTML:    html,
	}, nil
}

func countDelivered(lines []SummaryLine) int {
	n := 0
	for _, l := range lines {
		if l.Delivered {
			n++
		}
	}
	return n
}
