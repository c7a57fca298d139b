package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"fleet-manager/internal/inspection"
	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/pkg/apperr"
	"fleet-manager/pkg/cache"
	"fleet-manager/pkg/metrics"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// VehicleSource is what the reconciliation job reads and writes.
type VehicleSource interface {
	FindAll(ctx context.Context, filter repository.VehicleFilter) ([]*models.Vehicle, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.VehiclePatch) error
}

type ReconcileOptions struct {
	Workers  int
	Timeout  time.Duration
	LockTTL  time.Duration
	Location *time.Location
}

// ChangeEntry describes one vehicle whose schedule was rewritten.
type ChangeEntry struct {
	VehicleID         string            `json:"vehicleId"`
	Plate             string            `json:"plate"`
	OldNextInspection *time.Time        `json:"oldNextInspection,omitempty"`
	NewNextInspection time.Time         `json:"newNextInspection"`
	OldStatus         inspection.Status `json:"oldStatus"`
	NewStatus         inspection.Status `json:"newStatus"`
}

// Failure is a vehicle the job could not write.
type Failure struct {
	VehicleID string `json:"vehicleId"`
	Plate     string `json:"plate"`
	Error     string `json:"error"`
}

type ReconcileReport struct {
	RunID             string        `json:"runId"`
	StartedAt         time.Time     `json:"startedAt"`
	FinishedAt        time.Time     `json:"finishedAt"`
	TotalVehicles     int           `json:"totalVehicles"`
	UpdatedVehicles   int           `json:"updatedVehicles"`
	UnchangedVehicles int           `json:"unchangedVehicles"`
	SkippedVehicles   int           `json:"skippedVehicles"`
	FailedVehicles    int           `json:"failedVehicles"`
	ChangeLog         []ChangeEntry `json:"changeLog"`
	Failures          []Failure     `json:"failures"`
	// Incomplete is set when the run stopped (timeout, cancellation) before
	// every vehicle was looked at.
	Incomplete bool `json:"incomplete"`
}

type vehicleOutcome int

const (
	outcomeUnchanged vehicleOutcome = iota
	outcomeUpdated
	outcomeSkipped
	outcomeFailed
	outcomeNotReached
)

var outcomeLabels = map[vehicleOutcome]string{
	outcomeUnchanged: "unchanged",
	outcomeUpdated:   "updated",
	outcomeSkipped:   "skipped",
	outcomeFailed:    "failed",
}

type reconcileResult struct {
	outcome vehicleOutcome
	change  ChangeEntry
	failure Failure
}

// Reconciler recomputes the next inspection and status of every vehicle and
// writes back the ones that changed.
type Reconciler struct {
	vehicles VehicleSource
	locker   Locker
	cache    CacheInvalidator
	opts     ReconcileOptions
	now      func() time.Time
}

func NewReconciler(vehicles VehicleSource, opts ReconcileOptions) *Reconciler {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Reconciler{vehicles: vehicles, opts: opts, now: time.Now}
}

func (r *Reconciler) SetLocker(locker Locker) {
	r.locker = locker
}

func (r *Reconciler) SetCache(c CacheInvalidator) {
	r.cache = c
}

// Run reconciles the whole fleet. A failed vehicle does not stop the run;
// the error is returned only when the job could not start or the fleet
// could not be read.
func (r *Reconciler) Run(ctx context.Context) (*ReconcileReport, error) {
	started := r.now()
	report := &ReconcileReport{
		RunID:     uuid.NewString(),
		StartedAt: started.UTC(),
		ChangeLog: []ChangeEntry{},
		Failures:  []Failure{},
	}
	entry := log.WithFields(log.Fields{"job": ReconcileJob, "run_id": report.RunID})

	release, err := acquireLock(ctx, r.locker, ReconcileJob, r.opts.LockTTL, entry)
	if err != nil {
		metrics.ObserveJob(ReconcileJob, metrics.OutcomeSkipped, started)
		return nil, err
	}
	defer release()

	jobCtx, cancel := withJobTimeout(ctx, r.opts.Timeout)
	defer cancel()

	vehicles, err := r.vehicles.FindAll(jobCtx, repository.VehicleFilter{})
	if err != nil {
		metrics.ObserveJob(ReconcileJob, metrics.OutcomeFailed, started)
		entry.WithError(err).Error("Reconciliation could not load vehicles")
		return nil, err
	}
	report.TotalVehicles = len(vehicles)
	today := inspection.DateOf(r.now(), r.opts.Location)

	entry.WithFields(log.Fields{"vehicles": len(vehicles), "today": today.Format(time.DateOnly)}).Info("Reconciliation started")

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(r.opts.Workers)

	for _, vehicle := range vehicles {
		if jobCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			result := r.reconcileVehicle(jobCtx, vehicle, today)

			mu.Lock()
			report.add(result)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	processed := report.UpdatedVehicles + report.UnchangedVehicles + report.SkippedVehicles + report.FailedVehicles
	report.Incomplete = processed < report.TotalVehicles
	report.FinishedAt = r.now().UTC()
	report.sort()

	if report.UpdatedVehicles > 0 {
		invalidate(ctx, r.cache, cache.TagAllVehicles, entry)
	}

	outcome := metrics.OutcomeSuccess
	if report.Incomplete {
		outcome = metrics.OutcomeIncomplete
	}
	metrics.ObserveJob(ReconcileJob, outcome, started)

	entry.WithFields(log.Fields{
		"total":      report.TotalVehicles,
		"updated":    report.UpdatedVehicles,
		"unchanged":  report.UnchangedVehicles,
		"skipped":    report.SkippedVehicles,
		"failed":     report.FailedVehicles,
		"incomplete": report.Incomplete,
	}).Info("Reconciliation finished")

	return report, nil
}

func (r *Reconciler) reconcileVehicle(ctx context.Context, vehicle *models.Vehicle, today time.Time) reconcileResult {
	if ctx.Err() != nil {
		return reconcileResult{outcome: outcomeNotReached}
	}

	out := inspection.Reconcile(vehicle.Snapshot(), today)
	if !out.Changed {
		return reconcileResult{outcome: outcomeUnchanged}
	}

	patch := models.VehiclePatch{
		NextInspection:   &out.NextInspection,
		InspectionStatus: &out.Status,
	}
	err := r.vehicles.Update(ctx, vehicle.ID, patch)

	fields := log.Fields{"job": ReconcileJob, "vehicle_id": vehicle.ID.Hex(), "plate": vehicle.Plate}
	switch {
	case apperr.IsNotFound(err):
		log.WithFields(fields).Info("Vehicle removed during reconciliation, skipped")
		return reconcileResult{outcome: outcomeSkipped}
	case err != nil && ctx.Err() != nil:
		return reconcileResult{outcome: outcomeNotReached}
	case err != nil:
		log.WithFields(fields).WithError(err).Error("Failed to update vehicle schedule")
		return reconcileResult{
			outcome: outcomeFailed,
			failure: Failure{VehicleID: vehicle.ID.Hex(), Plate: vehicle.Plate, Error: err.Error()},
		}
	}

	log.WithFields(fields).WithFields(log.Fields{
		"old_status": vehicle.InspectionStatus,
		"new_status": out.Status,
		"next":       out.NextInspection.Format(time.DateOnly),
	}).Debug("Vehicle schedule updated")

	return reconcileResult{
		outcome: outcomeUpdated,
		change: ChangeEntry{
			VehicleID:         vehicle.ID.Hex(),
			Plate:             vehicle.Plate,
			OldNextInspection: vehicle.NextInspection,
			NewNextInspection: out.NextInspection,
			OldStatus:         vehicle.InspectionStatus,
			NewStatus:         out.Status,
		},
	}
}

func (rep *ReconcileReport) add(res reconcileResult) {
	switch res.outcome {
	case outcomeUpdated:
		rep.UpdatedVehicles++
		rep.ChangeLog = append(rep.ChangeLog, res.change)
	case outcomeUnchanged:
		rep.UnchangedVehicles++
	case outcomeSkipped:
		rep.SkippedVehicles++
	case outcomeFailed:
		rep.FailedVehicles++
		rep.Failures = append(rep.Failures, res.failure)
	case outcomeNotReached:
		return
	}
	metrics.VehiclesReconciled.WithLabelValues(outcomeLabels[res.outcome]).Inc()
}

// sort orders the logs by plate; workers finish in any order.
func (rep *ReconcileReport) sort() {
	sort.Slice(rep.ChangeLog, func(i, j int) bool { return rep.ChangeLog[i].Plate < rep.ChangeLog[j].Plate })
	sort.Slice(rep.Failures, func(i, j int) bool { return rep.Failures[i].Plate < rep.Failures[j].Plate })
}
