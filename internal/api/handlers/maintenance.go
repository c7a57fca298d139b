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

type MaintenanceService interface {
	GetAllMaintenanceRecords(ctx context.Context) ([]*models.MaintenanceRecord, error)
	GetMaintenanceByVehicle(ctx context.Context, vehicleID string) ([]*models.MaintenanceRecord, error)
	GetMaintenanceRecord(ctx context.Context, id string) (*models.MaintenanceRecord, error)
	CreateMaintenanceRecord(ctx context.Context, req *services.CreateMaintenanceRequest) (*models.MaintenanceRecord, error)
	UpdateMaintenanceRecord(ctx context.Context, id string, req *services.UpdateMaintenanceRequest) (*models.MaintenanceRecord, error)
	DeleteMaintenanceRecord(ctx context.Context, id string) error
}

type MaintenanceHandler struct {
	maintenanceService MaintenanceService
	validator          *validator.Validate
}

func NewMaintenanceHandler(maintenanceService MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{
		maintenanceService: maintenanceService,
		validator:          utils.NewValidator(),
	}
}

// Maintenance Records
func (h *MaintenanceHandler) CreateMaintenanceRecord(c *gin.Context) {
	var req services.CreateMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	record, err := h.maintenanceService.CreateMaintenanceRecord(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, "Failed to create maintenance record", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Maintenance record created successfully", record)
}

func (h *MaintenanceHandler) GetMaintenanceRecord(c *gin.Context) {
	record, err := h.maintenanceService.GetMaintenanceRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, "Maintenance record not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Maintenance record retrieved successfully", record)
}

func (h *MaintenanceHandler) GetMaintenanceRecords(c *gin.Context) {
	records, err := h.maintenanceService.GetAllMaintenanceRecords(c.Request.Context())
	if err != nil {
		utils.HandleError(c, "Failed to retrieve maintenance records", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Maintenance records retrieved successfully", records)
}

// GetVehicleMaintenance lists the records of one vehicle, newest first.
func (h *MaintenanceHandler) GetVehicleMaintenance(c *gin.Context) {
	records, err := h.maintenanceService.GetMaintenanceByVehicle(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, "Failed to retrieve maintenance records", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Maintenance records retrieved successfully", records)
}

func (h *MaintenanceHandler) UpdateMaintenanceRecord(c *gin.Context) {
	var req services.UpdateMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	record, err := h.maintenanceService.UpdateMaintenanceRecord(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		utils.HandleError(c, "Failed to update maintenance record", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Maintenance record updated successfully", record)
}

func (h *MaintenanceHandler) DeleteMaintenanceRecord(c *gin.Context) {
	if err := h.maintenanceService.DeleteMaintenanceRecord(c.Request.Context(), c.Param("id")); err != nil {
		utils.HandleError(c, "Failed to delete maintenance record", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Maintenance record deleted successfully", nil)
}
