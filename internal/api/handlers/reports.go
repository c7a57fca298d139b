package handlers

import (
	"context"
	"net/http"

	"fleet-manager/internal/services"
	"fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
)

type ReportService interface {
	FleetReport(ctx context.Context) (*services.FleetReport, error)
}

type ReportHandler struct {
	reportService ReportService
}

func NewReportHandler(reportService ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) GetFleetReport(c *gin.Context) {
	report, err := h.reportService.FleetReport(c.Request.Context())
	if err != nil {
		utils.HandleError(c, "Failed to build fleet report", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Fleet report generated successfully", report)
}
