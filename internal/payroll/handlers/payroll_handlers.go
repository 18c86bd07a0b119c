package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gartstein/siteledger/internal/payroll/auth"
	e "github.com/gartstein/siteledger/internal/payroll/errors"
	"github.com/gartstein/siteledger/internal/payroll/export"
	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/go-playground/validator/v10"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const maxBodyBytes = 1 << 20

// PayrollController defines the business logic interface
// that the HTTP handlers will invoke.
type PayrollController interface {
	SubmitTimesheet(ctx context.Context, weekLabel string, batch []models.EmployeeHours) (*models.SubmissionResult, error)
	GetTimesheet(ctx context.Context, employeeID int64, weekLabel string) (*models.Timesheet, error)
	SetPaidStatus(ctx context.Context, employeeID int64, weekLabel string, paid bool) (*models.WeeklyPayment, error)
	BulkSetPaidStatus(ctx context.Context, updates []models.StatusUpdate) ([]models.WeeklyPayment, error)
	Recompute(ctx context.Context, employeeID int64, weekLabel string) (*models.WeeklyPayment, error)
	GetPayment(ctx context.Context, employeeID int64, weekLabel string) (*models.WeeklyPayment, error)
	ListPayments(ctx context.Context, weekLabel string) ([]models.WeeklyPayment, error)
	Dashboard(ctx context.Context) (*models.Dashboard, error)
	DashboardForWeek(ctx context.Context, weekLabel string) (*models.Dashboard, error)
	SaveWeekNote(ctx context.Context, employeeID int64, weekLabel, text string) (*models.WeekNote, error)
	GetWeekNote(ctx context.Context, employeeID int64, weekLabel string) (*models.WeekNote, error)
	Remittance(ctx context.Context, employeeID int64, weekLabel string) (*models.Remittance, error)
	Register(ctx context.Context, weekLabel string) (*models.Register, error)
}

// PayrollHandler serves the payroll HTTP API on a gateway mux.
type PayrollHandler struct {
	service  PayrollController
	validate *validator.Validate
	mux      *runtime.ServeMux
	logger   *zap.Logger
}

func NewPayrollHandler(service PayrollController, logger *zap.Logger) *PayrollHandler {
	return &PayrollHandler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.Named("http_handler"),
	}
}

// Register adds every payroll route to the mux. Error responses are
// rendered by the mux's error handler.
func (h *PayrollHandler) Register(mux *runtime.ServeMux) error {
	h.mux = mux
	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{http.MethodPost, "/v1/timesheets", h.submitTimesheet},
		{http.MethodGet, "/v1/employees/{employee_id}/timesheet", h.getTimesheet},
		{http.MethodGet, "/v1/employees/{employee_id}/payment", h.getPayment},
		{http.MethodPut, "/v1/employees/{employee_id}/notes", h.saveNote},
		{http.MethodGet, "/v1/employees/{employee_id}/notes", h.getNote},
		{http.MethodGet, "/v1/employees/{employee_id}/remittance", h.remittance},
		{http.MethodPost, "/v1/payments/status", h.setStatus},
		{http.MethodPost, "/v1/payments/status/bulk", h.bulkSetStatus},
		{http.MethodPost, "/v1/payments/recompute", h.recompute},
		{http.MethodGet, "/v1/payments", h.listPayments},
		{http.MethodGet, "/v1/payments/register", h.register},
		{http.MethodGet, "/v1/dashboard", h.dashboard},
	}
	for _, route := range routes {
		if err := mux.HandlePath(route.method, route.pattern, route.handler); err != nil {
			return fmt.Errorf("failed to register %s %s: %w", route.method, route.pattern, err)
		}
	}
	return nil
}

func (h *PayrollHandler) submitTimesheet(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req submitTimesheetRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	for _, emp := range req.Employees {
		if err := authorizeEmployee(r.Context(), emp.EmployeeID); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	batch, err := req.toModel()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.service.SubmitTimesheet(r.Context(), req.Week, batch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, submissionToResponse(result))
}

func (h *PayrollHandler) getTimesheet(w http.ResponseWriter, r *http.Request, params map[string]string) {
	employeeID, err := h.employeeParam(r, params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ts, err := h.service.GetTimesheet(r.Context(), employeeID, r.URL.Query().Get("week"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, timesheetToResponse(ts))
}

func (h *PayrollHandler) getPayment(w http.ResponseWriter, r *http.Request, params map[string]string) {
	employeeID, err := h.employeeParam(r, params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	payment, err := h.service.GetPayment(r.Context(), employeeID, r.URL.Query().Get("week"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, paymentToResponse(payment))
}

func (h *PayrollHandler) saveNote(w http.ResponseWriter, r *http.Request, params map[string]string) {
	employeeID, err := h.employeeParam(r, params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req noteRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	note, err := h.service.SaveWeekNote(r.Context(), employeeID, req.Week, req.Note)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, noteToResponse(note))
}

func (h *PayrollHandler) getNote(w http.ResponseWriter, r *http.Request, params map[string]string) {
	employeeID, err := h.employeeParam(r, params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	note, err := h.service.GetWeekNote(r.Context(), employeeID, r.URL.Query().Get("week"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, noteToResponse(note))
}

func (h *PayrollHandler) remittance(w http.ResponseWriter, r *http.Request, params map[string]string) {
	employeeID, err := h.employeeParam(r, params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := h.service.Remittance(r.Context(), employeeID, r.URL.Query().Get("week"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.RemittancePDF(&buf, data); err != nil {
		h.writeError(w, r, err)
		return
	}
	filename := fmt.Sprintf("remittance-%d-%s.pdf", employeeID, data.Timesheet.WeekLabel[:10])
	h.writeFile(w, "application/pdf", filename, buf.Bytes())
}

func (h *PayrollHandler) setStatus(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if err := requireManager(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	var req statusRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	payment, err := h.service.SetPaidStatus(r.Context(), req.EmployeeID, req.Week, *req.Paid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, paymentToResponse(payment))
}

func (h *PayrollHandler) bulkSetStatus(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if err := requireManager(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	var req bulkStatusRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	updates := make([]models.StatusUpdate, 0, len(req.Updates))
	for i := range req.Updates {
		updates = append(updates, req.Updates[i].toModel())
	}
	payments, err := h.service.BulkSetPaidStatus(r.Context(), updates)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"payments": paymentsToResponse(payments)})
}

func (h *PayrollHandler) recompute(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if err := requireManager(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	var req recomputeRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	payment, err := h.service.Recompute(r.Context(), req.EmployeeID, req.Week)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, paymentToResponse(payment))
}

func (h *PayrollHandler) listPayments(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if err := requireManager(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	payments, err := h.service.ListPayments(r.Context(), r.URL.Query().Get("week"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"payments": paymentsToResponse(payments)})
}

func (h *PayrollHandler) register(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if err := requireManager(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	reg, err := h.service.Register(r.Context(), r.URL.Query().Get("week"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WeeklyRegisterXLSX(&buf, reg); err != nil {
		h.writeError(w, r, err)
		return
	}
	filename := fmt.Sprintf("register-%s.xlsx", reg.WeekLabel[:10])
	h.writeFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", filename, buf.Bytes())
}

func (h *PayrollHandler) dashboard(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if err := requireManager(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	var (
		d   *models.Dashboard
		err error
	)
	if label := r.URL.Query().Get("week"); label != "" {
		d, err = h.service.DashboardForWeek(r.Context(), label)
	} else {
		d, err = h.service.Dashboard(r.Context())
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dashboardToResponse(d))
}

// decode reads a JSON body and validates it.
func (h *PayrollHandler) decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", e.ErrInvalidInput, err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	return nil
}

func (h *PayrollHandler) employeeParam(r *http.Request, params map[string]string) (int64, error) {
	employeeID, err := parseEmployeeID(params["employee_id"])
	if err != nil {
		return 0, err
	}
	if err := authorizeEmployee(r.Context(), employeeID); err != nil {
		return 0, err
	}
	return employeeID, nil
}

// authorizeEmployee lets managers through and limits employees to their own
// records.
func authorizeEmployee(ctx context.Context, employeeID int64) error {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "authentication required")
	}
	if !claims.CanAccessEmployee(employeeID) {
		return fmt.Errorf("%w: no access to employee %d", e.ErrForbidden, employeeID)
	}
	return nil
}

// requireManager admits admins and managers only. The router applies the
// same rule by path; this check holds however the request was routed.
func requireManager(ctx context.Context) error {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "authentication required")
	}
	if !claims.IsManager() {
		return fmt.Errorf("%w: role %s may not access payroll management", e.ErrForbidden, claims.Role)
	}
	return nil
}

func (h *PayrollHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	mux := h.mux
	if mux == nil {
		mux = runtime.NewServeMux()
	}
	_, outbound := runtime.MarshalerForRequest(mux, r)
	runtime.HTTPError(r.Context(), mux, outbound, w, r, h.mapServiceError(err))
}

func (h *PayrollHandler) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *PayrollHandler) writeFile(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.Error("Failed to write file response", zap.Error(err))
	}
}
