package handlers

import (
	"context"
	"net/http"

	"fleet-manager/internal/inspection"
	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/internal/services"
	"fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// VehicleService is implemented by *services.VehicleService.
type VehicleService interface {
	GetAllVehicles(ctx context.Context, filter repository.VehicleFilter) ([]*models.Vehicle, error)
	GetVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
	CreateVehicle(ctx context.Context, req *services.CreateVehicleRequest) (*models.Vehicle, error)
	UpdateVehicle(ctx context.Context, id string, req *services.UpdateVehicleRequest) (*models.Vehicle, error)
	DeleteVehicle(ctx context.Context, id string) error
	ConfirmInspection(ctx context.Context, id string) (*models.Vehicle, error)
	ConfirmByToken(ctx context.Context, token string) (*models.Vehicle, error)
}

type VehicleHandler struct {
	vehicleService VehicleService
	validator      *validator.Validate
}

func NewVehicleHandler(vehicleService VehicleService) *VehicleHandler {
	return &VehicleHandler{
		vehicleService: vehicleService,
		validator:      utils.NewValidator(),
	}
}

// GetVehicles lists vehicles, optionally filtered by ?userId= and ?status=.
func (h *VehicleHandler) GetVehicles(c *gin.Context) {
	var filter repository.VehicleFilter

	if userID := c.Query("userId"); userID != "" {
		id, err := repository.ParseID(userID, "user")
		if err != nil {
			utils.HandleError(c, "Invalid user filter", err)
			return
		}
		filter.UserID = &id
	}
	if status := c.Query("status"); status != "" {
		parsed, err := inspection.ParseStatus(status)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid status filter", err)
			return
		}
		filter.Status = parsed
	}

	vehicles, err := h.vehicleService.GetAllVehicles(c.Request.Context(), filter)
	if err != nil {
		utils.HandleError(c, "Failed to retrieve vehicles", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Vehicles retrieved successfully", vehicles)
}

func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	vehicle, err := h.vehicleService.GetVehicleByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, "Vehicle not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Vehicle retrieved successfully", vehicle)
}

func (h *VehicleHandler) CreateVehicle(c *gin.Context) {
	var req services.CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	vehicle, err := h.vehicleService.CreateVehicle(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, "Failed to create vehicle", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Vehicle created successfully", vehicle)
}

// UpdateVehicle applies a partial update. The plate cannot be changed.
func (h *VehicleHandler) UpdateVehicle(c *gin.Context) {
	var req services.UpdateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	vehicle, err := h.vehicleService.UpdateVehicle(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		utils.HandleError(c, "Failed to update vehicle", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Vehicle updated successfully", vehicle)
}

func (h *VehicleHandler) DeleteVehicle(c *gin.Context) {
	if err := h.vehicleService.DeleteVehicle(c.Request.Context(), c.Param("id")); err != nil {
		utils.HandleError(c, "Failed to delete vehicle", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Vehicle deleted successfully", nil)
}

// ConfirmInspection records that the vehicle passed its inspection today.
func (h *VehicleHandler) ConfirmInspection(c *gin.Context) {
	vehicle, err := h.vehicleService.ConfirmInspection(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, "Failed to confirm inspection", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Inspection confirmed", vehicle)
}

// ConfirmByLink handles the signed link sent in reminder e-mails.
func (h *VehicleHandler) ConfirmByLink(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Confirmation token is required", nil)
		return
	}

	vehicle, err := h.vehicleService.ConfirmByToken(c.Request.Context(), token)
	if err != nil {
		utils.HandleError(c, "Failed to confirm inspection", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Inspection of "+vehicle.Plate+" confirmed", vehicle)
}
