package handlers

import (
	"context"
	"net/http"

	"fleet-manager/internal/jobs"
	"fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
)

type ReconcileRunner interface {
	Run(ctx context.Context) (*jobs.ReconcileReport, error)
}

type DispatchRunner interface {
	Run(ctx context.Context) (*jobs.DispatchReport, error)
}

// JobHandler triggers the scheduled jobs on demand. A run started over HTTP
// is not cancelled when the client goes away; the job timeout still applies.
type JobHandler struct {
	reconciler ReconcileRunner
	dispatcher DispatchRunner
}

func NewJobHandler(reconciler ReconcileRunner, dispatcher DispatchRunner) *JobHandler {
	return &JobHandler{reconciler: reconciler, dispatcher: dispatcher}
}

func (h *JobHandler) RunReconcile(c *gin.Context) {
	report, err := h.reconciler.Run(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		utils.HandleError(c, "Reconciliation failed", err)
		return
	}

	message := "Reconciliation completed"
	if report.Incomplete {
		message = "Reconciliation stopped before every vehicle was processed"
	}
	utils.SuccessResponse(c, http.StatusOK, message, report)
}

func (h *JobHandler) RunDispatch(c *gin.Context) {
	report, err := h.dispatcher.Run(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		utils.HandleError(c, "Notification dispatch failed", err)
		return
	}

	message := "Notification dispatch completed"
	if report.Incomplete {
		message = "Notification dispatch completed with errors"
	}
	utils.SuccessResponse(c, http.StatusOK, message, report)
}
