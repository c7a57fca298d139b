package jobs

import (
	"context"
	"net/url"
	"strings"
	"time"

	"fleet-manager/internal/inspection"
	"fleet-manager/internal/models"
	"fleet-manager/pkg/apperr"
	"fleet-manager/pkg/batch"
	"fleet-manager/pkg/cache"
	"fleet-manager/pkg/metrics"
	"fleet-manager/pkg/notify"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const confirmPath = "/api/v1/inspections/confirm"

// ReminderSource selects and escalates vehicles for the dispatch job.
type ReminderSource interface {
	FindDueForReminder(ctx context.Context, from, to time.Time) ([]*models.Vehicle, error)
	EscalateOverdue(ctx context.Context, today time.Time) (int64, error)
}

// UserDirectory resolves reminder recipients.
type UserDirectory interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindPrimaryManagers(ctx context.Context) ([]*models.User, error)
}

// FlagWriter persists the reminder sent flag of the vehicles that were
// notified. *batch.Processor implements it.
type FlagWriter interface {
	Process(ctx context.Context, updates map[string]models.VehiclePatch) batch.Result
}

// NotificationRecorder stores the notification log.
type NotificationRecorder interface {
	Insert(ctx context.Context, entry *models.NotificationLog) error
}

// LinkSigner issues confirmation link tokens.
type LinkSigner interface {
	GenerateConfirmToken(vehicleID, dueDate string) (string, error)
}

type DispatchOptions struct {
	WindowDays int
	// Timeout bounds the reminder pass. Flag writes and escalation run on
	// the caller's context so sent reminders are always recorded.
	Timeout        time.Duration
	LockTTL        time.Duration
	Location       *time.Location
	NotifyManagers bool
	AppURL         string
}

// DeliveryResult is the outcome of one reminder.
type DeliveryResult struct {
	VehicleID string    `json:"vehicleId"`
	Plate     string    `json:"plate"`
	DueDate   time.Time `json:"dueDate"`
	Recipient string    `json:"recipient,omitempty"`
	Channels  []string  `json:"channels"`
	Delivered bool      `json:"delivered"`
	Error     string    `json:"error,omitempty"`
}

type DispatchReport struct {
	RunID               string           `json:"runId"`
	StartedAt           time.Time        `json:"startedAt"`
	FinishedAt          time.Time        `json:"finishedAt"`
	WindowDays          int              `json:"windowDays"`
	NotificationsSent   int              `json:"notificationsSent"`
	NotificationsFailed int              `json:"notificationsFailed"`
	VehiclesUpdated     int64            `json:"vehiclesUpdated"`
	Results             []DeliveryResult `json:"results"`
	ManagerSummarySent  bool             `json:"managerSummarySent"`
	Incomplete          bool             `json:"incomplete"`
	Errors              []string         `json:"errors,omitempty"`
}

// Dispatcher sends inspection reminders for vehicles due inside the window
// and escalates pending vehicles whose due date has passed.
type Dispatcher struct {
	vehicles ReminderSource
	users    UserDirectory
	sink     notify.Sink
	flags    FlagWriter
	composer *notify.Composer
	history  NotificationRecorder
	signer   LinkSigner
	locker   Locker
	cache    CacheInvalidator
	opts     DispatchOptions
	now      func() time.Time
}

func NewDispatcher(vehicles ReminderSource, users UserDirectory, sink notify.Sink, flags FlagWriter, opts DispatchOptions) *Dispatcher {
	if opts.WindowDays <= 0 {
		opts.WindowDays = 30
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	opts.AppURL = strings.TrimRight(opts.AppURL, "/")

	return &Dispatcher{
		vehicles: vehicles,
		users:    users,
		sink:     sink,
		flags:    flags,
		composer: notify.NewComposer(),
		opts:     opts,
		now:      time.Now,
	}
}

func (d *Dispatcher) SetHistory(history NotificationRecorder) {
	d.history = history
}

// SetLinkSigner adds a confirmation link to reminders.
func (d *Dispatcher) SetLinkSigner(signer LinkSigner) {
	d.signer = signer
}

func (d *Dispatcher) SetLocker(locker Locker) {
	d.locker = locker
}

func (d *Dispatcher) SetCache(c CacheInvalidator) {
	d.cache = c
}

// Run performs one dispatch. Delivery failures are reported per vehicle;
// the error is returned only when the job could not start.
func (d *Dispatcher) Run(ctx context.Context) (*DispatchReport, error) {
	started := d.now()
	report := &DispatchReport{
		RunID:      uuid.NewString(),
		StartedAt:  started.UTC(),
		WindowDays: d.opts.WindowDays,
		Results:    []DeliveryResult{},
	}
	entry := log.WithFields(log.Fields{"job": DispatchJob, "run_id": report.RunID})

	release, err := acquireLock(ctx, d.locker, DispatchJob, d.opts.LockTTL, entry)
	if err != nil {
		metrics.ObserveJob(DispatchJob, metrics.OutcomeSkipped, started)
		return nil, err
	}
	defer release()

	today := inspection.DateOf(d.now(), d.opts.Location)
	entry.WithField("today", today.Format(time.DateOnly)).Info("Dispatch started")

	notified := d.remind(ctx, today, report, entry)
	d.flagNotified(ctx, notified, report, entry)
	d.escalate(ctx, today, report, entry)

	if len(notified) > 0 || report.VehiclesUpdated > 0 {
		invalidate(ctx, d.cache, cache.TagAllVehicles, entry)
	}
	if d.opts.NotifyManagers && (len(report.Results) > 0 || report.VehiclesUpdated > 0) {
		report.ManagerSummarySent = d.summarize(ctx, today, report, entry)
	}

	report.FinishedAt = d.now().UTC()

	outcome := metrics.OutcomeSuccess
	if report.Incomplete {
		outcome = metrics.OutcomeIncomplete
	}
	metrics.ObserveJob(DispatchJob, outcome, started)

	entry.WithFields(log.Fields{
		"sent":       report.NotificationsSent,
		"failed":     report.NotificationsFailed,
		"escalated":  report.VehiclesUpdated,
		"incomplete": report.Incomplete,
	}).Info("Dispatch finished")

	return report, nil
}

// remind is the reminder pass. It returns the vehicles that were reached.
func (d *Dispatcher) remind(ctx context.Context, today time.Time, report *DispatchReport, entry *log.Entry) map[string]models.VehiclePatch {
	notified := map[string]models.VehiclePatch{}

	passCtx, cancel := withJobTimeout(ctx, d.opts.Timeout)
	defer cancel()

	windowEnd := today.AddDate(0, 0, d.opts.WindowDays)
	due, err := d.vehicles.FindDueForReminder(passCtx, today, windowEnd)
	if err != nil {
		entry.WithError(err).Error("Reminder pass could not load vehicles")
		report.Errors = append(report.Errors, "reminders: "+err.Error())
		report.Incomplete = true
		return notified
	}

	sent := true
	for _, vehicle := range due {
		if passCtx.Err() != nil {
			report.Incomplete = true
			break
		}

		result := d.remindVehicle(passCtx, vehicle, report.RunID)
		report.Results = append(report.Results, result)
		if result.Delivered {
			report.NotificationsSent++
			notified[vehicle.ID.Hex()] = models.VehiclePatch{EmailSent: &sent}
		} else {
			report.NotificationsFailed++
		}
	}
	return notified
}

func (d *Dispatcher) remindVehicle(ctx context.Context, vehicle *models.Vehicle, runID string) DeliveryResult {
	result := DeliveryResult{
		VehicleID: vehicle.ID.Hex(),
		Plate:     vehicle.Plate,
		Channels:  []string{},
	}
	if vehicle.NextInspection != nil {
		result.DueDate = *vehicle.NextInspection
	}
	fields := log.Fields{"job": DispatchJob, "vehicle_id": result.VehicleID, "plate": vehicle.Plate}

	receipt, to, err := d.sendReminder(ctx, vehicle, result.DueDate)
	result.Recipient = to.String()
	result.Channels = append(result.Channels, receipt.Delivered...)
	for name := range receipt.Failed {
		result.Channels = append(result.Channels, name)
	}

	if err != nil {
		result.Error = err.Error()
		log.WithFields(fields).WithError(err).Warn("Inspection reminder failed")
	} else {
		result.Delivered = true
		log.WithFields(fields).WithField("channels", receipt.Delivered).Info("Inspection reminder sent")
	}
	metrics.ObserveNotification(models.NotificationInspectionReminder, result.Delivered)

	d.record(ctx, &models.NotificationLog{
		RunID:     runID,
		Kind:      models.NotificationInspectionReminder,
		VehicleID: &vehicle.ID,
		Plate:     vehicle.Plate,
		Recipient: result.Recipient,
		Channels:  result.Channels,
		Delivered: result.Delivered,
		Error:     result.Error,
	})
	return result
}

func (d *Dispatcher) sendReminder(ctx context.Context, vehicle *models.Vehicle, due time.Time) (notify.Receipt, notify.Recipient, error) {
	var to notify.Recipient
	if vehicle.UserID == nil {
		return notify.Receipt{}, to, apperr.Delivery(nil, "vehicle has no responsible user")
	}
	user, err := d.users.FindByID(ctx, *vehicle.UserID)
	if err != nil {
		return notify.Receipt{}, to, apperr.Delivery(err, "responsible user not found")
	}
	to = notify.Recipient{Name: user.Name, Email: user.Email, Phone: user.MessagingNumber()}

	content, err := d.composer.InspectionReminder(notify.Reminder{
		RecipientName: user.Name,
		Plate:         vehicle.Plate,
		Brand:         vehicle.Brand,
		Model:         vehicle.Model,
		Company:       vehicle.Company,
		DueDate:       due,
		ConfirmLink:   d.confirmLink(vehicle, due),
	})
	if err != nil {
		return notify.Receipt{}, to, apperr.Delivery(err, "failed to render reminder")
	}

	receipt, err := d.sink.Send(ctx, to, content)
	return receipt, to, err
}

func (d *Dispatcher) confirmLink(vehicle *models.Vehicle, due time.Time) string {
	if d.signer == nil || d.opts.AppURL == "" {
		return ""
	}
	token, err := d.signer.GenerateConfirmToken(vehicle.ID.Hex(), due.Format(time.DateOnly))
	if err != nil {
		log.WithError(err).WithField("vehicle_id", vehicle.ID.Hex()).Warn("Failed to sign confirmation link")
		return ""
	}
	return d.opts.AppURL + confirmPath + "?token=" + url.QueryEscape(token)
}

// flagNotified marks the reached vehicles so the next run skips them.
func (d *Dispatcher) flagNotified(ctx context.Context, notified map[string]models.VehiclePatch, report *DispatchReport, entry *log.Entry) {
	if len(notified) == 0 {
		return
	}

	result := d.flags.Process(ctx, notified)
	for id, err := range result.Failed {
		entry.WithError(err).WithField("vehicle_id", id).Error("Failed to record reminder as sent")
		report.Errors = append(report.Errors, "flag "+id+": "+err.Error())
	}
	if len(result.Missing) > 0 {
		entry.WithField("vehicle_ids", result.Missing).Info("Notified vehicles removed before flagging")
	}
}

// escalate is the escalation pass. It runs whatever the reminders did.
func (d *Dispatcher) escalate(ctx context.Context, today time.Time, report *DispatchReport, entry *log.Entry) {
	n, err := d.vehicles.EscalateOverdue(ctx, today)
	if err != nil {
		entry.WithError(err).Error("Escalation pass failed")
		report.Errors = append(report.Errors, "escalation: "+err.Error())
		report.Incomplete = true
		return
	}
	report.VehiclesUpdated = n
	metrics.VehiclesEscalated.Add(float64(n))
	if n > 0 {
		entry.WithField("escalated", n).Info("Pending inspections marked overdue")
	}
}

// summarize sends the run digest to the primary managers. It reports
// whether any manager was reached.
func (d *Dispatcher) summarize(ctx context.Context, today time.Time, report *DispatchReport, entry *log.Entry) bool {
	managers, err := d.users.FindPrimaryManagers(ctx)
	if err != nil {
		entry.WithError(err).Warn("Cannot load primary managers for the summary")
		return false
	}
	if len(managers) == 0 {
		return false
	}

	lines := make([]notify.SummaryLine, 0, len(report.Results))
	for _, r := range report.Results {
		lines = append(lines, notify.SummaryLine{Plate: r.Plate, DueDate: r.DueDate, Delivered: r.Delivered})
	}
	content, err := d.composer.ManagerSummary(notify.Summary{Date: today, Reminders: lines, Escalated: report.VehiclesUpdated})
	if err != nil {
		entry.WithError(err).Error("Failed to render manager summary")
		return false
	}

	reached := false
	for _, manager := range managers {
		to := notify.Recipient{Name: manager.Name, Email: manager.Email, Phone: manager.MessagingNumber()}
		receipt, err := d.sink.Send(ctx, to, content)
		metrics.ObserveNotification(models.NotificationManagerSummary, err == nil)
		if err != nil {
			entry.WithError(err).WithField("recipient", to.String()).Warn("Manager summary failed")
		}
		reached = reached || err == nil

		channels := append([]string{}, receipt.Delivered...)
		for name := range receipt.Failed {
			channels = append(channels, name)
		}
		d.record(ctx, &models.NotificationLog{
			RunID:     report.RunID,
			Kind:      models.NotificationManagerSummary,
			Recipient: to.String(),
			Channels:  channels,
			Delivered: err == nil,
			Error:     errText(err),
		})
	}
	return reached
}

func (d *Dispatcher) record(ctx context.Context, entry *models.NotificationLog) {
	if d.history == nil {
		return
	}
	if err := d.history.Insert(context.WithoutCancel(ctx), entry); err != nil {
		log.WithError(err).WithField("kind", entry.Kind).Warn("Failed to record notification")
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
