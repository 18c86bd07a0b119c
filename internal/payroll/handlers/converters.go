package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gartstein/siteledger/internal/payroll/calc"
	e "github.com/gartstein/siteledger/internal/payroll/errors"
	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/gartstein/siteledger/internal/payroll/week"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// hoursValue accepts hours sent either as a JSON number or as a string and
// keeps the raw text, so that blank or non-numeric days reach the service
// and are skipped there.
type hoursValue string

func (v *hoursValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = hoursValue(s)
	default:
		*v = hoursValue(data)
	}
	return nil
}

type dayRequest struct {
	Hours hoursValue `json:"hours"`
	Site  string     `json:"site" validate:"max=200"`
}

type employeeHoursRequest struct {
	EmployeeID int64                 `json:"employee_id" validate:"required,gt=0"`
	Days       map[string]dayRequest `json:"days" validate:"required,dive"`
}

type submitTimesheetRequest struct {
	Week      string                 `json:"week" validate:"required"`
	Employees []employeeHoursRequest `json:"employees" validate:"required,min=1,dive"`
}

type statusRequest struct {
	EmployeeID int64  `json:"employee_id" validate:"required,gt=0"`
	Week       string `json:"week" validate:"required"`
	Paid       *bool  `json:"paid" validate:"required"`
}

type bulkStatusRequest struct {
	Updates []statusRequest `json:"updates" validate:"required,min=1,dive"`
}

type recomputeRequest struct {
	EmployeeID int64  `json:"employee_id" validate:"required,gt=0"`
	Week       string `json:"week" validate:"required"`
}

type noteRequest struct {
	Week string `json:"week" validate:"required"`
	Note string `json:"note" validate:"max=2000"`
}

type paymentResponse struct {
	EmployeeID  int64      `json:"employee_id"`
	WeekLabel   string     `json:"week_label"`
	GrossAmount string     `json:"gross_amount"`
	NetAmount   string     `json:"net_amount"`
	Status      string     `json:"status"`
	IsPaid      bool       `json:"is_paid"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type submissionResponse struct {
	WeekLabel string                       `json:"week_label"`
	Employees []employeeSubmissionResponse `json:"employees"`
}

type employeeSubmissionResponse struct {
	EmployeeID  int64            `json:"employee_id"`
	DaysWritten int              `json:"days_written"`
	DaysSkipped int              `json:"days_skipped"`
	TotalHours  string           `json:"total_hours"`
	Payment     *paymentResponse `json:"payment,omitempty"`
}

type entryResponse struct {
	Date       string `json:"date"`
	Hours      string `json:"hours"`
	Site       string `json:"site"`
	ContractID int64  `json:"contract_id"`
	Rate       string `json:"rate"`
}

type timesheetResponse struct {
	EmployeeID int64                    `json:"employee_id"`
	WeekLabel  string                   `json:"week_label"`
	Days       map[string]entryResponse `json:"days"`
	TotalHours string                   `json:"total_hours"`
}

type noteResponse struct {
	EmployeeID int64     `json:"employee_id"`
	WeekLabel  string    `json:"week_label"`
	Note       string    `json:"note"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type siteHoursResponse struct {
	Site  string `json:"site"`
	Hours string `json:"hours"`
}

type earnerResponse struct {
	EmployeeID int64  `json:"employee_id"`
	Name       string `json:"name"`
	Gross      string `json:"gross"`
	Net        string `json:"net"`
	IsPaid     bool   `json:"is_paid"`
}

type dashboardResponse struct {
	WeekLabel       string              `json:"week_label"`
	TotalHours      string              `json:"total_hours"`
	HoursBySite     []siteHoursResponse `json:"hours_by_site"`
	PaidGross       string              `json:"paid_gross"`
	PaidNet         string              `json:"paid_net"`
	PendingCount    int                 `json:"pending_count"`
	TopEarners      []earnerResponse    `json:"top_earners"`
	ActiveEmployees int                 `json:"active_employees"`
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(calc.AmountPlaces)
}

func (r *submitTimesheetRequest) toModel() ([]models.EmployeeHours, error) {
	batch := make([]models.EmployeeHours, 0, len(r.Employees))
	for _, emp := range r.Employees {
		days := make(map[week.Day]models.DayInput, len(emp.Days))
		for name, d := range emp.Days {
			day, err := week.ParseDay(name)
			if err != nil {
				return nil, fmt.Errorf("employee %d: %w", emp.EmployeeID, err)
			}
			days[day] = models.DayInput{Hours: string(d.Hours), Site: d.Site}
		}
		batch = append(batch, models.EmployeeHours{EmployeeID: emp.EmployeeID, Days: days})
	}
	return batch, nil
}

func (r *statusRequest) toModel() models.StatusUpdate {
	return models.StatusUpdate{EmployeeID: r.EmployeeID, WeekLabel: r.Week, Paid: *r.Paid}
}

func paymentToResponse(p *models.WeeklyPayment) *paymentResponse {
	if p == nil {
		return nil
	}
	return &paymentResponse{
		EmployeeID:  p.EmployeeID,
		WeekLabel:   p.WeekLabel,
		GrossAmount: amount(p.GrossAmount),
		NetAmount:   amount(p.NetAmount),
		Status:      string(p.Status()),
		IsPaid:      p.IsPaid,
		PaidAt:      p.PaidAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func paymentsToResponse(payments []models.WeeklyPayment) []*paymentResponse {
	out := make([]*paymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, paymentToResponse(&payments[i]))
	}
	return out
}

func submissionToResponse(result *models.SubmissionResult) *submissionResponse {
	resp := &submissionResponse{
		WeekLabel: result.WeekLabel,
		Employees: make([]employeeSubmissionResponse, 0, len(result.Employees)),
	}
	for _, es := range result.Employees {
		resp.Employees = append(resp.Employees, employeeSubmissionResponse{
			EmployeeID:  es.EmployeeID,
			DaysWritten: es.DaysWritten,
			DaysSkipped: es.DaysSkipped,
			TotalHours:  amount(es.TotalHours),
			Payment:     paymentToResponse(es.Payment),
		})
	}
	return resp
}

func timesheetToResponse(ts *models.Timesheet) *timesheetResponse {
	resp := &timesheetResponse{
		EmployeeID: ts.EmployeeID,
		WeekLabel:  ts.WeekLabel,
		Days:       make(map[string]entryResponse, len(ts.Entries)),
		TotalHours: amount(ts.TotalHours),
	}
	for day, entry := range ts.Entries {
		resp.Days[string(day)] = entryResponse{
			Date:       entry.WorkDate,
			Hours:      amount(entry.Hours),
			Site:       entry.Site,
			ContractID: entry.ContractID,
			Rate:       amount(entry.Rate),
		}
	}
	return resp
}

func noteToResponse(n *models.WeekNote) *noteResponse {
	return &noteResponse{
		EmployeeID: n.EmployeeID,
		WeekLabel:  n.WeekLabel,
		Note:       n.Note,
		UpdatedAt:  n.UpdatedAt,
	}
}

func dashboardToResponse(d *models.Dashboard) *dashboardResponse {
	resp := &dashboardResponse{
		WeekLabel:       d.WeekLabel,
		TotalHours:      amount(d.TotalHours),
		HoursBySite:     make([]siteHoursResponse, 0, len(d.HoursBySite)),
		PaidGross:       amount(d.PaidGross),
		PaidNet:         amount(d.PaidNet),
		PendingCount:    d.PendingCount,
		TopEarners:      make([]earnerResponse, 0, len(d.TopEarners)),
		ActiveEmployees: d.ActiveEmployees,
	}
	for _, s := range d.HoursBySite {
		resp.HoursBySite = append(resp.HoursBySite, siteHoursResponse{Site: s.Site, Hours: amount(s.Hours)})
	}
	for _, t := range d.TopEarners {
		resp.TopEarners = append(resp.TopEarners, earnerResponse{
			EmployeeID: t.EmployeeID,
			Name:       t.Name,
			Gross:      amount(t.Gross),
			Net:        amount(t.Net),
			IsPaid:     t.IsPaid,
		})
	}
	return resp
}

func parseEmployeeID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid employee id %q", e.ErrInvalidInput, raw)
	}
	return id, nil
}

// mapServiceError maps domain or repository errors to appropriate gRPC status codes.
func (h *PayrollHandler) mapServiceError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, e.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, e.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, e.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	default:
		h.logger.Error("Internal server error", zap.Error(err))
		return status.Error(codes.Internal, "internal server error")
	}
}
