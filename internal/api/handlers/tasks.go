package handlers

import (
	"context"
	"net/http"

	"fleet-manager/internal/models"
	"fleet-manager/internal/services"
	"fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type TaskService interface {
	GetTasks(ctx context.Context, vehicleID, status string) ([]*models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	CreateTask(ctx context.Context, req *services.CreateTaskRequest) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, req *services.UpdateTaskRequest) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type TaskHandler struct {
	taskService TaskService
	validator   *validator.Validate
}

func NewTaskHandler(taskService TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		validator:   utils.NewValidator(),
	}
}

// GetTasks accepts ?vehicleId= and ?status= filters. Results are ordered by
// due date, then priority.
func (h *TaskHandler) GetTasks(c *gin.Context) {
	tasks, err := h.taskService.GetTasks(c.Request.Context(), c.Query("vehicleId"), c.Query("status"))
	if err != nil {
		utils.HandleError(c, "Failed to retrieve tasks", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Tasks retrieved successfully", tasks)
}

func (h *TaskHandler) GetVehicleTasks(c *gin.Context) {
	tasks, err := h.taskService.GetTasks(c.Request.Context(), c.Param("id"), c.Query("status"))
	if err != nil {
		utils.HandleError(c, "Failed to retrieve tasks", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Tasks retrieved successfully", tasks)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.taskService.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, "Task not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Task retrieved successfully", task)
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req services.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, "Failed to create task", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Task created successfully", task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req services.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		utils.HandleError(c, "Failed to update task", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Task updated successfully", task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.taskService.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		utils.HandleError(c, "Failed to delete task", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Task deleted successfully", nil)
}
