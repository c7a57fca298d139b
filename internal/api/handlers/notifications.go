package handlers

import (
	"context"
	"net/http"
	"strconv"

	"fleet-manager/internal/models"
	"fleet-manager/internal/services"
	"fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type NotificationService interface {
	ListNotifications(ctx context.Context, vehicleID, kind string, page, limit int) ([]*models.NotificationLog, int64, error)
	SendWhatsAppTest(ctx context.Context, req *services.WhatsAppTestRequest) (map[string]interface{}, error)
}

type NotificationHandler struct {
	notificationService NotificationService
	validator           *validator.Validate
}

func NewNotificationHandler(notificationService NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		validator:           utils.NewValidator(),
	}
}

// GetNotifications pages through the notification log, newest first.
// Filters: ?vehicleId=, ?kind=; paging: ?page=, ?limit=.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}

	entries, total, err := h.notificationService.ListNotifications(c.Request.Context(), c.Query("vehicleId"), c.Query("kind"), page, limit)
	if err != nil {
		utils.HandleError(c, "Failed to retrieve notifications", err)
		return
	}

	utils.PaginatedResponse(c, http.StatusOK, "Notifications retrieved successfully", entries, utils.NewPagination(page, limit, total))
}

// SendWhatsAppTest sends one message through the gateway. The schedule may
// also be given as ?scheduledDate= and ?scheduledTime=.
func (h *NotificationHandler) SendWhatsAppTest(c *gin.Context) {
	var req services.WhatsAppTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if req.ScheduledDate == "" {
		req.ScheduledDate = c.Query("scheduledDate")
	}
	if req.ScheduledTime == "" {
		req.ScheduledTime = c.Query("scheduledTime")
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	reply, err := h.notificationService.SendWhatsAppTest(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, "Failed to send WhatsApp message", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "WhatsApp message sent", reply)
}
