package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/pkg/notify"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskService struct {
	tasks    TaskStore
	vehicles VehicleStore
	notifier *NotificationService
	calendar
}

func NewTaskService(tasks TaskStore, vehicles VehicleStore, loc *time.Location) *TaskService {
	return &TaskService{tasks: tasks, vehicles: vehicles, calendar: newCalendar(loc)}
}

// SetNotifier enables owner notices for new tasks.
func (s *TaskService) SetNotifier(notifier *NotificationService) {
	s.notifier = notifier
}

type CreateTaskRequest struct {
	Title         string   `json:"title" validate:"required,min=1,max=200"`
	Description   string   `json:"description,omitempty" validate:"max=1000"`
	VehicleID     string   `json:"vehicleId" validate:"required,objectid"`
	Status        string   `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	Priority      string   `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Category      string   `json:"category,omitempty" validate:"omitempty,oneof=maintenance inspection documents other"`
	DueDate       string   `json:"dueDate,omitempty" validate:"omitempty,calendardate"`
	EstimatedCost *float64 `json:"estimatedCost,omitempty" validate:"omitempty,min=0"`
	EstimatedTime *float64 `json:"estimatedTime,omitempty" validate:"omitempty,min=0"`
}

type UpdateTaskRequest struct {
	Title         *string  `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description   *string  `json:"description,omitempty" validate:"omitempty,max=1000"`
	Status        *string  `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	Priority      *string  `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Category      *string  `json:"category,omitempty" validate:"omitempty,oneof=maintenance inspection documents other"`
	DueDate       *string  `json:"dueDate,omitempty" validate:"omitempty,calendardate"`
	EstimatedCost *float64 `json:"estimatedCost,omitempty" validate:"omitempty,min=0"`
	EstimatedTime *float64 `json:"estimatedTime,omitempty" validate:"omitempty,min=0"`
}

// GetTasks lists tasks filtered by vehicle and status, earliest due date
// first and the most urgent first within a day. Tasks without a due date
// come last.
func (s *TaskService) GetTasks(ctx context.Context, vehicleID, status string) ([]*models.Task, error) {
	filter := repository.TaskFilter{Status: status}
	if vehicleID != "" {
		id, err := repository.ParseID(vehicleID, "vehicle")
		if err != nil {
			return nil, err
		}
		filter.VehicleID = &id
	}

	tasks, err := s.tasks.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	SortTasks(tasks)
	return tasks, nil
}

// SortTasks orders by due date ascending, then priority descending.
func SortTasks(tasks []*models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch {
		case a.DueDate == nil && b.DueDate != nil:
			return false
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		}
		return models.PriorityRank(a.Priority) > models.PriorityRank(b.Priority)
	})
}

func (s *TaskService) GetTask(ctx context.Context, id string) (*models.Task, error) {
	objectID, err := repository.ParseID(id, "task")
	if err != nil {
		return nil, err
	}
	return s.tasks.FindByID(ctx, objectID)
}

func (s *TaskService) CreateTask(ctx context.Context, req *CreateTaskRequest) (*models.Task, error) {
	vehicleID, err := repository.ParseID(req.VehicleID, "vehicle")
	if err != nil {
		return nil, err
	}
	vehicle, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	due, err := s.optionalDate(req.DueDate, "dueDate")
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	task := &models.Task{
		ID:          primitive.NewObjectID(),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		VehicleID:   vehicleID,
		Status:      withDefault(req.Status, models.TaskStatusPending),
		Priority:    withDefault(req.Priority, models.PriorityMedium),
		Category:    withDefault(req.Category, models.TaskCategoryMaintenance),
		DueDate:     due,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.EstimatedCost != nil {
		task.EstimatedCost = *req.EstimatedCost
	}
	if req.EstimatedTime != nil {
		task.EstimatedTime = *req.EstimatedTime
	}
	if task.Status == models.TaskStatusCompleted {
		task.CompletedAt = &now
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"task_id": task.ID.Hex(), "vehicle_id": vehicleID.Hex(), "priority": task.Priority}).Info("Task created")

	lines := []string{"Tarefa: " + task.Title, "Prioridade: " + task.Priority}
	if task.DueDate != nil {
		lines = append(lines, "Prazo: "+task.DueDate.Format(notify.DateLayout))
	}
	s.notifier.NotifyVehicleOwner(ctx, vehicleID, models.NotificationTaskCreated, notify.Notice{
		Title: fmt.Sprintf("Nova tarefa para o veículo %s", vehicle.Plate),
		Lines: lines,
	})
	return task, nil
}

// UpdateTask applies a partial update. Moving a task to completed stamps
// CompletedAt; moving it away clears it.
func (s *TaskService) UpdateTask(ctx context.Context, id string, req *UpdateTaskRequest) (*models.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if req.Title != nil {
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil && *req.Status != task.Status {
		task.Status = *req.Status
		if task.Status == models.TaskStatusCompleted {
			task.CompletedAt = &now
		} else {
			task.CompletedAt = nil
		}
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Category != nil {
		task.Category = *req.Category
	}
	if req.DueDate != nil {
		if task.DueDate, err = s.optionalDate(*req.DueDate, "dueDate"); err != nil {
			return nil, err
		}
	}
	if req.EstimatedCost != nil {
		task.EstimatedCost = *req.EstimatedCost
	}
	if req.EstimatedTime != nil {
		task.EstimatedTime = *req.EstimatedTime
	}
	task.UpdatedAt = now

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	objectID, err := repository.ParseID(id, "task")
	if err != nil {
		return err
	}
	return s.tasks.Delete(ctx, objectID)
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
