package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Task struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title         string             `json:"title" bson:"title"`
	Description   string             `json:"description,omitempty" bson:"description,omitempty"`
	VehicleID     primitive.ObjectID `json:"vehicleId" bson:"vehicle_id"`
	Status        string             `json:"status" bson:"status"`
	Priority      string             `json:"priority" bson:"priority"`
	Category      string             `json:"category" bson:"category"`
	DueDate       *time.Time         `json:"dueDate,omitempty" bson:"due_date,omitempty"`
	EstimatedCost float64            `json:"estimatedCost" bson:"estimated_cost"`
	EstimatedTime float64            `json:"estimatedTime" bson:"estimated_time"`
	CompletedAt   *time.Time         `json:"completedAt,omitempty" bson:"completed_at,omitempty"`
	CreatedAt     time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updated_at"`
}

// Task statuses
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

// Priority levels. Rank orders them for sorting.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Task categories
const (
	TaskCategoryMaintenance = "maintenance"
	TaskCategoryInspection  = "inspection"
	TaskCategoryDocuments   = "documents"
	TaskCategoryOther       = "other"
)

var priorityRank = map[string]int{
	PriorityLow:    1,
	PriorityMedium: 2,
	PriorityHigh:   3,
	PriorityUrgent: 4,
}

// PriorityRank returns a sortable weight for a priority, 0 when unknown.
func PriorityRank(priority string) int {
	return priorityRank[priority]
}
