package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationLog records one reminder attempt.
type NotificationLog struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	RunID     string              `bson:"run_id" json:"runId"`
	Kind      string              `bson:"kind" json:"kind"`
	VehicleID *primitive.ObjectID `bson:"vehicle_id,omitempty" json:"vehicleId,omitempty"`
	Plate     string              `bson:"plate,omitempty" json:"plate,omitempty"`
	Recipient string              `bson:"recipient" json:"recipient"`
	Channels  []string            `bson:"channels" json:"channels"`
	Delivered bool                `bson:"delivered" json:"delivered"`
	Error     string              `bson:"error,omitempty" json:"error,omitempty"`
	SentAt    time.Time           `bson:"sent_at" json:"sentAt"`
}

// Notification kinds
const (
	NotificationInspectionReminder = "inspection_reminder"
	NotificationManagerSummary     = "manager_summary"
	NotificationTaskCreated        = "task_created"
	NotificationMaintenanceCreated = "maintenance_created"
)
