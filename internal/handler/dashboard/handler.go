package dashboard

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-dashboard/internal/analytics"
	dashboardService "github.com/jwalitptl/clinic-dashboard/internal/service/dashboard"
	"github.com/jwalitptl/clinic-dashboard/pkg/errors"
	"github.com/jwalitptl/clinic-dashboard/pkg/httputil"
	"github.com/jwalitptl/clinic-dashboard/pkg/validator"
)

const dateLayout = "2006-01-02"

// DashboardServicer is the subset of the dashboard service the handler calls.
type DashboardServicer interface {
	Summary(ctx context.Context) (*dashboardService.SummaryView, error)
	Overview(ctx context.Context, q dashboardService.Query) (*dashboardService.OverviewView, error)
	Employees(ctx context.Context, q dashboardService.Query) (*dashboardService.EmployeesView, error)
	EmployeeDetail(ctx context.Context, q dashboardService.Query) (*dashboardService.EmployeeDetailView, error)
	Timing(ctx context.Context, q dashboardService.Query) (*dashboardService.TimingView, error)
	Cancellations(ctx context.Context, q dashboardService.Query) (*dashboardService.CancellationsView, error)
	CancellationDetail(ctx context.Context, q dashboardService.Query) (*dashboardService.CancellationDetailView, error)
	Reload(ctx context.Context) (*dashboardService.SummaryView, error)
}

type Handler struct {
	service   DashboardServicer
	validator validator.Validator
}

func NewHandler(service DashboardServicer) *Handler {
	return &Handler{service: service, validator: validator.New()}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	dashboard := r.Group("/dashboard")
	{
		dashboard.GET("/summary", h.GetSummary)
		dashboard.GET("/overview", h.GetOverview)
		dashboard.GET("/employees", h.GetEmployees)
		dashboard.GET("/employees/detail", h.GetEmployeeDetail)
		dashboard.GET("/timing", h.GetTiming)
		dashboard.GET("/cancellations", h.GetCancellations)
		dashboard.GET("/cancellations/detail", h.GetCancellationDetail)
		dashboard.POST("/reload", h.Reload)
	}
}

type viewQuery struct {
	StartDate string `form:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Employee  string `form:"employee" validate:"omitempty,max=200"`
	Top       int    `form:"top" validate:"omitempty,min=1,max=100"`
}

// parseQuery binds and validates the shared view parameters. Both dates must
// be given together; one alone is rejected.
func (h *Handler) parseQuery(c *gin.Context, requireEmployee bool) (dashboardService.Query, error) {
	var req viewQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		return dashboardService.Query{}, errors.BadRequest("invalid query parameters", err)
	}
	if err := h.validator.Validate(req); err != nil {
		return dashboardService.Query{}, errors.BadRequest("invalid query parameters", err)
	}
	if requireEmployee && req.Employee == "" {
		return dashboardService.Query{}, errors.BadRequest("employee is required", nil)
	}

	q := dashboardService.Query{Employee: req.Employee, Top: req.Top}
	if req.StartDate == "" && req.EndDate == "" {
		return q, nil
	}
	if req.StartDate == "" || req.EndDate == "" {
		return q, errors.BadRequest("start_date and end_date must be provided together", nil)
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return q, errors.BadRequest("invalid start_date", err)
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return q, errors.BadRequest("invalid end_date", err)
	}
	if end.Before(start) {
		return q, errors.BadRequest("start_date must not be after end_date", nil)
	}
	q.Range = &analytics.DateRange{Start: start, End: end}
	return q, nil
}

// respond writes the view. A degraded view that comes back with an error is
// still sent as data so the client can render its empty state. Errors outside
// the AppError taxonomy are left to middleware.ErrorHandler.
func respond(c *gin.Context, view interface{}, warnings []string, err error) {
	if err != nil {
		var appErr *errors.AppError
		if !stderrors.As(err, &appErr) {
			_ = c.Error(err)
			return
		}
		httputil.RespondWithError(c, err, view)
		return
	}
	httputil.RespondWithSuccess(c, view, warnings...)
}

func (h *Handler) GetSummary(c *gin.Context) {
	view, err := h.service.Summary(c.Request.Context())
	if view == nil {
		respond(c, nil, nil, err)
		return
	}
	respond(c, view, view.Warnings, err)
}

func (h *Handler) GetOverview(c *gin.Context) {
	q, err := h.parseQuery(c, false)
	if err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	view, err := h.service.Overview(c.Request.Context(), q)
	if view == nil {
		respond(c, nil, nil, err)
		return
	}
	respond(c, view, view.Warnings, err)
}

func (h *Handler) GetEmployees(c *gin.Context) {
	q, err := h.parseQuery(c, false)
	if err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	view, err := h.service.Employees(c.Request.Context(), q)
	if view == nil {
		respond(c, nil, nil, err)
		return
	}
	respond(c, view, view.Warnings, err)
}

func (h *Handler) GetEmployeeDetail(c *gin.Context) {
	q, err := h.parseQuery(c, true)
	if err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	view, err := h.service.EmployeeDetail(c.Request.Context(), q)
	if view == nil {
		respond(c, nil, nil, err)
		return
	}
	respond(c, view, view.Warnings, err)
}

func (h *Handler) GetTiming(c *gin.Context) {
	q, err := h.parseQuery(c, false)
	if err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	view, err := h.service.Timing(c.Request.Context(), q)
	if view == nil {
		respond(c, nil, nil, err)
		return
	}
	respond(c, view, view.Warnings, err)
}

func (h *Handler) GetCancellations(c *gin.Context) {
	q, err := h.parseQuery(c, false)
	if err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	view, err := h.service.Cancellations(c.Request.Context(), q)
	if view == nil {
		respond(c, nil, nil, err)
		return
	}
	respond(c, view, view.Warnings, err)
}

func (h *Handler) GetCancellationDetail(c *gin.Context) {
	q, err := h.parseQuery(c, true)
	if err != nil {
		httputil.RespondWithError(c, err, nil)
		return
	}
	view, err := h.service.CancellationDetail(c.Request.Context(), q)
	if view == nil {
		respond(c, nil, nil, err)
		return
	}
	respond(c, view, view.Warnings, err)
}

// Reload drops the cached dataset and returns the fresh summary.
func (h *Handler) Reload(c *gin.Context) {
	view, err := h.service.Reload(c.Request.Context())
	if view == nil {
		respond(c, nil, nil, err)
		return
	}
	respond(c, view, view.Warnings, err)
}
