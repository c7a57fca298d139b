package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"fleet-manager/internal/inspection"
	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/pkg/apperr"
	"fleet-manager/pkg/notify"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testNow = time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(y int, m time.Month, d int) *time.Time {
	t := day(y, m, d)
	return &t
}

// fleet is an in-memory vehicle collection with the query semantics of the
// Mongo repository. Vehicles in vanish are deleted right after FindAll
// returned them; failUpdate makes Update fail.
type fleet struct {
	mu         sync.Mutex
	vehicles   map[primitive.ObjectID]*models.Vehicle
	failUpdate map[primitive.ObjectID]error
	vanish     map[primitive.ObjectID]bool
	updates    int
	findErr    error
	escalErr   error
}

func newFleet(vehicles ...*models.Vehicle) *fleet {
	f := &fleet{
		vehicles:   map[primitive.ObjectID]*models.Vehicle{},
		failUpdate: map[primitive.ObjectID]error{},
		vanish:     map[primitive.ObjectID]bool{},
	}
	for _, v := range vehicles {
		if v.ID.IsZero() {
			v.ID = primitive.NewObjectID()
		}
		f.vehicles[v.ID] = v
	}
	return f
}

func (f *fleet) get(id primitive.ObjectID) *models.Vehicle {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[id]
	if !ok {
		return nil
	}
	copied := *v
	return &copied
}

func (f *fleet) sorted(keep func(*models.Vehicle) bool) []*models.Vehicle {
	out := []*models.Vehicle{}
	for _, v := range f.vehicles {
		if keep(v) {
			copied := *v
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Plate < out[j].Plate })
	return out
}

func (f *fleet) FindAll(_ context.Context, _ repository.VehicleFilter) ([]*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	out := f.sorted(func(*models.Vehicle) bool { return true })
	for id := range f.vanish {
		delete(f.vehicles, id)
	}
	return out, nil
}

func (f *fleet) Update(_ context.Context, id primitive.ObjectID, patch models.VehiclePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failUpdate[id]; err != nil {
		return err
	}
	v, ok := f.vehicles[id]
	if !ok {
		return apperr.NotFound("vehicle %s not found", id.Hex())
	}
	patch.Apply(v)
	f.updates++
	return nil
}

func (f *fleet) FindDueForReminder(_ context.Context, from, to time.Time) ([]*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.sorted(func(v *models.Vehicle) bool {
		return v.NextInspection != nil &&
			!v.NextInspection.Before(from) && !v.NextInspection.After(to) &&
			inspection.Normalize(v.InspectionStatus) == inspection.StatusPending &&
			!v.EmailSent
	}), nil
}

func (f *fleet) EscalateOverdue(_ context.Context, today time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.escalErr != nil {
		return 0, f.escalErr
	}
	var n int64
	for _, v := range f.vehicles {
		if v.NextInspection != nil && v.NextInspection.Before(today) && inspection.Normalize(v.InspectionStatus) == inspection.StatusPending {
			v.InspectionStatus = inspection.StatusOverdue
			n++
		}
	}
	return n, nil
}

// UpdateVehicle and UpdateVehiclesBatch let the fleet back a batch.Processor.
func (f *fleet) UpdateVehicle(ctx context.Context, vehicleID string, patch models.VehiclePatch) error {
	id, err := primitive.ObjectIDFromHex(vehicleID)
	if err != nil {
		return apperr.Validation("invalid vehicle ID")
	}
	return f.Update(ctx, id, patch)
}

func (f *fleet) UpdateVehiclesBatch(ctx context.Context, updates map[string]models.VehiclePatch) (int64, error) {
	var matched int64
	for id, patch := range updates {
		err := f.UpdateVehicle(ctx, id, patch)
		switch {
		case err == nil:
			matched++
		case !apperr.IsNotFound(err):
			return 0, err
		}
	}
	return matched, nil
}

type directory struct {
	users map[primitive.ObjectID]*models.User
}

func newDirectory(users ...*models.User) *directory {
	d := &directory{users: map[primitive.ObjectID]*models.User{}}
	for _, u := range users {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		d.users[u.ID] = u
	}
	return d
}

func (d *directory) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}

func (d *directory) FindPrimaryManagers(context.Context) ([]*models.User, error) {
	managers := []*models.User{}
	for _, u := range d.users {
		if u.IsPrimaryManager {
			managers = append(managers, u)
		}
	}
	return managers, nil
}

type delivery struct {
	to  notify.Recipient
	msg notify.Content
}

// outbox accepts every message except those addressed to failing e-mails.
type outbox struct {
	mu      sync.Mutex
	sent    []delivery
	failFor map[string]bool
}

func newOutbox(failing ...string) *outbox {
	o := &outbox{failFor: map[string]bool{}}
	for _, email := range failing {
		o.failFor[email] = true
	}
	return o
}

func (o *outbox) Send(_ context.Context, to notify.Recipient, msg notify.Content) (notify.Receipt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, delivery{to: to, msg: msg})
	if o.failFor[to.Email] {
		return notify.Receipt{Failed: map[string]string{"email": "mailbox unavailable"}},
			apperr.Delivery(errors.New("mailbox unavailable"), "notification to %s failed", to.Email)
	}
	return notify.Receipt{Delivered: []string{"email"}, Failed: map[string]string{}}, nil
}

func (o *outbox) to(email string) []delivery {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []delivery
	for _, d := range o.sent {
		if d.to.Email == email {
			out = append(out, d)
		}
	}
	return out
}

type logbook struct {
	mu      sync.Mutex
	entries []*models.NotificationLog
}

func (l *logbook) Insert(_ context.Context, entry *models.NotificationLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *logbook) kinds() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	counts := map[string]int{}
	for _, e := range l.entries {
		counts[e.Kind]++
	}
	return counts
}

type tagRecorder struct {
	mu   sync.Mutex
	tags []string
}

func (r *tagRecorder) InvalidateByTag(_ context.Context, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags = append(r.tags, tag)
	return nil
}
