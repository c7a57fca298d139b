package inspection

import "time"

// Snapshot is the part of a vehicle the status rules look at.
type Snapshot struct {
	FirstRegistrationDate time.Time
	LastInspection        *time.Time
	NextInspection        *time.Time
	Status                Status
}

// Outcome is the recomputed schedule state of a vehicle. Changed is true when
// either field differs from the snapshot it was computed from.
type Outcome struct {
	NextInspection time.Time
	Status         Status
	Changed        bool
}

// IsExempt reports whether the vehicle is still inside its exemption window.
func IsExempt(firstRegistration, today time.Time) bool {
	return ExactYearsBetween(firstRegistration, today) < ExemptionYears
}

// DeriveStatus applies the status rules to a vehicle whose next inspection is
// next. current is the status stored before the write.
func DeriveStatus(firstRegistration time.Time, lastInspection *time.Time, next time.Time, current Status, today time.Time) Status {
	current = Normalize(current)
	switch {
	case IsExempt(firstRegistration, today):
		return StatusConfirmed
	case lastInspection != nil:
		return StatusConfirmed
	case current == StatusConfirmed:
		return StatusConfirmed
	case civil(next).Before(civil(today)):
		return StatusOverdue
	default:
		return StatusPending
	}
}

// Reconcile recomputes the next inspection date and status of s as of today.
// Applying the outcome and reconciling again on the same day yields
// Changed == false.
func Reconcile(s Snapshot, today time.Time) Outcome {
	next := NextInspectionDue(s.FirstRegistrationDate, s.LastInspection, today)
	status := DeriveStatus(s.FirstRegistrationDate, s.LastInspection, next, s.Status, today)

	changed := status != s.Status
	if s.NextInspection == nil || !civil(*s.NextInspection).Equal(next) {
		changed = true
	}

	return Outcome{
		NextInspection: next,
		Status:         status,
		Changed:        changed,
	}
}

// InitialStatus classifies a vehicle being created. requested is the status
// supplied by the caller, empty meaning pending.
func InitialStatus(firstRegistration time.Time, lastInspection *time.Time, next time.Time, requested Status, today time.Time) Status {
	if requested == "" {
		requested = StatusPending
	}
	return DeriveStatus(firstRegistration, lastInspection, next, requested, today)
}
