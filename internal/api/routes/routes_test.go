package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"fleet-manager/internal/api/handlers"
	"fleet-manager/internal/jobs"
	"fleet-manager/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubReconciler struct{ runs int }

func (s *stubReconciler) Run(context.Context) (*jobs.ReconcileReport, error) {
	s.runs++
	return &jobs.ReconcileReport{RunID: "stub"}, nil
}

type stubDispatcher struct{}

func (stubDispatcher) Run(context.Context) (*jobs.DispatchReport, error) {
	return &jobs.DispatchReport{RunID: "stub"}, nil
}

func newTestRouter(reconciler *stubReconciler, limiter ratelimit.RateLimiter, limits *ratelimit.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, &Handlers{
		Health:        handlers.NewHealthHandler(nil, nil, false),
		Vehicles:      handlers.NewVehicleHandler(nil),
		Users:         handlers.NewUserHandler(nil),
		Maintenance:   handlers.NewMaintenanceHandler(nil),
		Tasks:         handlers.NewTaskHandler(nil),
		Jobs:          handlers.NewJobHandler(reconciler, stubDispatcher{}),
		Notifications: handlers.NewNotificationHandler(nil),
		Reports:       handlers.NewReportHandler(nil),
	}, limiter, limits)
	return router
}

func do(router http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestJobTriggersAreRateLimited(t *testing.T) {
	limits := ratelimit.DefaultConfig()
	reconciler := &stubReconciler{}
	router := newTestRouter(reconciler, ratelimit.NewMemoryRateLimiter(limits), limits)

	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/v1/jobs/reconcile").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/v1/jobs/dispatch").Code)

	w := do(router, http.MethodPost, "/api/v1/jobs/reconcile")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, 1, reconciler.runs)
}

func TestRoutesWithoutLimiter(t *testing.T) {
	reconciler := &stubReconciler{}
	router := newTestRouter(reconciler, nil, nil)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/api/v1/jobs/reconcile").Code)
	}
	assert.Equal(t, 5, reconciler.runs)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(&stubReconciler{}, nil, nil)

	do(router, http.MethodPost, "/api/v1/jobs/reconcile")
	do(router, http.MethodGet, "/no/such/route")

	w := do(router, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `fleet_http_requests_total{method="POST",route="/api/v1/jobs/reconcile",status="200"}`)
	assert.Contains(t, w.Body.String(), `route="unmatched"`)
}

func TestHealthRoute(t *testing.T) {
	router := newTestRouter(&stubReconciler{}, nil, nil)

	assert.Equal(t, http.StatusServiceUnavailable, do(router, http.MethodGet, "/api/v1/health").Code)
}
