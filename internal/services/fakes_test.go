package services

import (
	"context"
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

var testToday = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return time.Date(2024, time.June, 1, 10, 30, 0, 0, time.UTC)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(n int) *int              { return &n }
func strPtr(s string) *string        { return &s }
func boolPtr(b bool) *bool           { return &b }
func timePtr(t time.Time) *time.Time { return &t }

type memVehicles struct {
	mu        sync.Mutex
	items     map[primitive.ObjectID]*models.Vehicle
	findCalls int
}

func newMemVehicles(vehicles ...*models.Vehicle) *memVehicles {
	m := &memVehicles{items: map[primitive.ObjectID]*models.Vehicle{}}
	for _, v := range vehicles {
		if v.ID.IsZero() {
			v.ID = primitive.NewObjectID()
		}
		m.items[v.ID] = v
	}
	return m
}

func (m *memVehicles) get(id primitive.ObjectID) *models.Vehicle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id]
}

func (m *memVehicles) Create(_ context.Context, vehicle *models.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.items {
		if v.Plate == vehicle.Plate {
			return apperr.Conflict("a vehicle with plate %s already exists", vehicle.Plate)
		}
	}
	copied := *vehicle
	m.items[vehicle.ID] = &copied
	return nil
}

func (m *memVehicles) FindByID(_ context.Context, id primitive.ObjectID) (*models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	v, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("vehicle not found")
	}
	copied := *v
	return &copied, nil
}

func (m *memVehicles) FindAll(_ context.Context, filter repository.VehicleFilter) ([]*models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	vehicles := []*models.Vehicle{}
	for _, v := range m.items {
		if filter.UserID != nil && (v.UserID == nil || *v.UserID != *filter.UserID) {
			continue
		}
		if filter.Status != "" && v.InspectionStatus != filter.Status {
			continue
		}
		copied := *v
		vehicles = append(vehicles, &copied)
	}
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].Plate < vehicles[j].Plate })
	return vehicles, nil
}

func (m *memVehicles) Update(_ context.Context, id primitive.ObjectID, patch models.VehiclePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[id]
	if !ok {
		return apperr.NotFound("vehicle %s not found", id.Hex())
	}
	patch.Apply(v)
	return nil
}

func (m *memVehicles) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("vehicle not found")
	}
	delete(m.items, id)
	return nil
}

func (m *memVehicles) CountByUser(_ context.Context, userID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, v := range m.items {
		if v.UserID != nil && *v.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memVehicles) CountByStatus(_ context.Context) (map[inspection.Status]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[inspection.Status]int64{}
	for _, v := range m.items {
		counts[inspection.Normalize(v.InspectionStatus)]++
	}
	return counts, nil
}

type memUsers struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.User
}

func newMemUsers(users ...*models.User) *memUsers {
	m := &memUsers{items: map[primitive.ObjectID]*models.User{}}
	for _, u := range users {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		m.items[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.items {
		if u.Email == user.Email {
			return apperr.Conflict("email %s is already in use", user.Email)
		}
	}
	copied := *user
	m.items[user.ID] = &copied
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	copied := *u
	return &copied, nil
}

func (m *memUsers) FindAll(ctx context.Context) ([]*models.User, error) {
	return m.filter(func(*models.User) bool { return true }), nil
}

func (m *memUsers) FindPrimaryManagers(ctx context.Context) ([]*models.User, error) {
	return m.filter(func(u *models.User) bool { return u.IsPrimaryManager }), nil
}

func (m *memUsers) filter(keep func(*models.User) bool) []*models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := []*models.User{}
	for _, u := range m.items {
		if keep(u) {
			copied := *u
			users = append(users, &copied)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users
}

func (m *memUsers) Update(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[user.ID]; !ok {
		return apperr.NotFound("user not found")
	}
	copied := *user
	m.items[user.ID] = &copied
	return nil
}

func (m *memUsers) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("user not found")
	}
	delete(m.items, id)
	return nil
}

type memMaintenance struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.MaintenanceRecord
}

func newMemMaintenance(records ...*models.MaintenanceRecord) *memMaintenance {
	m := &memMaintenance{items: map[primitive.ObjectID]*models.MaintenanceRecord{}}
	for _, r := range records {
		if r.ID.IsZero() {
			r.ID = primitive.NewObjectID()
		}
		m.items[r.ID] = r
	}
	return m
}

func (m *memMaintenance) Create(_ context.Context, record *models.MaintenanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *record
	m.items[record.ID] = &copied
	return nil
}

func (m *memMaintenance) FindByID(_ context.Context, id primitive.ObjectID) (*models.MaintenanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("maintenance record not found")
	}
	copied := *r
	return &copied, nil
}

func (m *memMaintenance) FindAll(context.Context) ([]*models.MaintenanceRecord, error) {
	return m.filter(func(*models.MaintenanceRecord) bool { return true }), nil
}

func (m *memMaintenance) FindByVehicleID(_ context.Context, vehicleID primitive.ObjectID) ([]*models.MaintenanceRecord, error) {
	return m.filter(func(r *models.MaintenanceRecord) bool { return r.VehicleID == vehicleID }), nil
}

func (m *memMaintenance) filter(keep func(*models.MaintenanceRecord) bool) []*models.MaintenanceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := []*models.MaintenanceRecord{}
	for _, r := range m.items {
		if keep(r) {
			copied := *r
			records = append(records, &copied)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.After(records[j].Date) })
	return records
}

func (m *memMaintenance) Update(_ context.Context, record *models.MaintenanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[record.ID]; !ok {
		return apperr.NotFound("maintenance record not found")
	}
	copied := *record
	m.items[record.ID] = &copied
	return nil
}

func (m *memMaintenance) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("maintenance record not found")
	}
	delete(m.items, id)
	return nil
}

func (m *memMaintenance) DeleteByVehicleID(_ context.Context, vehicleID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.items {
		if r.VehicleID == vehicleID {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

type memTasks struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.Task
}

func newMemTasks(tasks ...*models.Task) *memTasks {
	m := &memTasks{items: map[primitive.ObjectID]*models.Task{}}
	for _, t := range tasks {
		if t.ID.IsZero() {
			t.ID = primitive.NewObjectID()
		}
		m.items[t.ID] = t
	}
	return m
}

func (m *memTasks) Create(_ context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *task
	m.items[task.ID] = &copied
	return nil
}

func (m *memTasks) FindByID(_ context.Context, id primitive.ObjectID) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("task not found")
	}
	copied := *t
	return &copied, nil
}

func (m *memTasks) Find(_ context.Context, filter repository.TaskFilter) ([]*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := []*models.Task{}
	for _, t := range m.items {
		if filter.VehicleID != nil && t.VehicleID != *filter.VehicleID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		copied := *t
		tasks = append(tasks, &copied)
	}
	return tasks, nil
}

func (m *memTasks) Update(_ context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[task.ID]; !ok {
		return apperr.NotFound("task not found")
	}
	copied := *task
	m.items[task.ID] = &copied
	return nil
}

func (m *memTasks) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("task not found")
	}
	delete(m.items, id)
	return nil
}

func (m *memTasks) DeleteByVehicleID(_ context.Context, vehicleID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.items {
		if t.VehicleID == vehicleID {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

type memNotifications struct {
	mu      sync.Mutex
	entries []*models.NotificationLog
}

func (m *memNotifications) Insert(_ context.Context, entry *models.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *entry
	m.entries = append(m.entries, &copied)
	return nil
}

func (m *memNotifications) List(_ context.Context, filter repository.NotificationFilter) ([]*models.NotificationLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := []*models.NotificationLog{}
	for _, e := range m.entries {
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		if filter.VehicleID != nil && (e.VehicleID == nil || *e.VehicleID != *filter.VehicleID) {
			continue
		}
		matched = append(matched, e)
	}
	total := int64(len(matched))
	if filter.Skip > 0 {
		if filter.Skip >= total {
			return []*models.NotificationLog{}, total, nil
		}
		matched = matched[filter.Skip:]
	}
	if filter.Limit > 0 && int64(len(matched)) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

type sentMessage struct {
	to  notify.Recipient
	msg notify.Content
}

type recordingSink struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *recordingSink) Send(_ context.Context, to notify.Recipient, msg notify.Content) (notify.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{to: to, msg: msg})
	if s.err != nil {
		return notify.Receipt{Failed: map[string]string{"email": s.err.Error()}}, s.err
	}
	return notify.Receipt{Delivered: []string{"email"}}, nil
}

func (s *recordingSink) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}
