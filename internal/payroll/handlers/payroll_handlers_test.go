package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gartstein/siteledger/internal/payroll/auth"
	"github.com/gartstein/siteledger/internal/payroll/controller"
	"github.com/gartstein/siteledger/internal/payroll/db/dbtest"
	e "github.com/gartstein/siteledger/internal/payroll/errors"
	"github.com/gartstein/siteledger/internal/payroll/events"
	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/gartstein/siteledger/internal/pkg/utils"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	testSecret = "test-secret"
	testWeek   = "2024-06-10 - 2024-06-16"
)

type api struct {
	t       *testing.T
	handler http.Handler
}

func newAPI(t *testing.T) *api {
	t.Helper()
	logger := zaptest.NewLogger(t)
	repo := dbtest.NewSeededRepository(t)
	svc := controller.NewPayrollService(repo, events.NewLogProducer(logger), controller.Config{}, logger,
		controller.WithClock(func() time.Time { return time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC) }))

	h := NewPayrollHandler(svc, logger)
	mux := runtime.NewServeMux()
	require.NoError(t, h.Register(mux))
	return &api{t: t, handler: NewRouter(mux, logger, RouterOptions{JWTSecret: testSecret, CORSOrigins: []string{"*"}})}
}

func token(t *testing.T, role models.Role, employeeID *int64) string {
	t.Helper()
	tok, err := auth.GenerateToken("test", role, employeeID, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *api) do(method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func weekQuery() string {
	return "week=" + strings.ReplaceAll(testWeek, " ", "%20")
}

func TestSubmitTimesheet(t *testing.T) {
	a := newAPI(t)
	manager := token(t, models.RoleManager, nil)

	rec := a.do(http.MethodPost, "/v1/timesheets", manager, `{
		"week": "2024-06-12",
		"employees": [{
			"employee_id": 1,
			"days": {"monday": {"hours": 8, "site": "Riverside"}, "Tuesday": {"hours": "", "site": ""}}
		}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, testWeek, body["week_label"])
	employees := body["employees"].([]interface{})
	require.Len(t, employees, 1)
	sub := employees[0].(map[string]interface{})
	assert.Equal(t, float64(1), sub["days_written"])
	assert.Equal(t, float64(1), sub["days_skipped"])
	payment := sub["payment"].(map[string]interface{})
	assert.Equal(t, "120.00", payment["gross_amount"])
	assert.Equal(t, "84.00", payment["net_amount"])
	assert.Equal(t, "pending", payment["status"])
}

func TestSubmitTimesheet_Errors(t *testing.T) {
	a := newAPI(t)
	manager := token(t, models.RoleManager, nil)
	worker := token(t, models.RoleEmployee, utils.Ptr(dbtest.EmployeeNI))

	tests := []struct {
		name       string
		tok        string
		body       string
		wantStatus int
		wantInBody string
	}{
		{"no token", "", `{}`, http.StatusUnauthorized, ""},
		{"malformed json", manager, `{"week":`, http.StatusBadRequest, "malformed request body"},
		{"unknown field", manager, `{"week":"2024-06-10","employees":[],"extra":1}`, http.StatusBadRequest, "malformed"},
		{"no employees", manager, `{"week":"2024-06-10","employees":[]}`, http.StatusBadRequest, "Employees"},
		{"unknown day", manager, `{"week":"2024-06-10","employees":[{"employee_id":1,"days":{"Funday":{"hours":1,"site":"Riverside"}}}]}`, http.StatusBadRequest, "unknown day"},
		{"missing site", manager, `{"week":"2024-06-10","employees":[{"employee_id":1,"days":{"Monday":{"hours":8}}}]}`, http.StatusBadRequest, "site is required for Monday"},
		{"unassigned site", manager, `{"week":"2024-06-10","employees":[{"employee_id":1,"days":{"Monday":{"hours":8,"site":"Depot"}}}]}`, http.StatusBadRequest, "Harbour, Riverside"},
		{"unknown employee", manager, `{"week":"2024-06-10","employees":[{"employee_id":99,"days":{"Monday":{"hours":8,"site":"Depot"}}}]}`, http.StatusNotFound, "employee 99"},
		{"someone else's hours", worker, `{"week":"2024-06-10","employees":[{"employee_id":2,"days":{"Monday":{"hours":8,"site":"Harbour"}}}]}`, http.StatusForbidden, "no access"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(http.MethodPost, "/v1/timesheets", tt.tok, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.wantInBody)
		})
	}
}

func TestTimesheetAndNotes_EmployeeAccess(t *testing.T) {
	a := newAPI(t)
	worker := token(t, models.RoleEmployee, utils.Ptr(dbtest.EmployeeNI))

	rec := a.do(http.MethodPost, "/v1/timesheets", worker,
		`{"week":"2024-06-10","employees":[{"employee_id":1,"days":{"Wednesday":{"hours":"7.5","site":"harbour"}}}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/v1/employees/1/timesheet?"+weekQuery(), worker, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "7.50", body["total_hours"])
	wednesday := body["days"].(map[string]interface{})["Wednesday"].(map[string]interface{})
	assert.Equal(t, "2024-06-12", wednesday["date"])
	assert.Equal(t, "Harbour", wednesday["site"])

	rec = a.do(http.MethodGet, "/v1/employees/1/payment?"+weekQuery(), worker, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "112.50", decodeBody(t, rec)["gross_amount"])

	rec = a.do(http.MethodGet, "/v1/employees/2/timesheet?"+weekQuery(), worker, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(http.MethodGet, "/v1/employees/abc/timesheet?"+weekQuery(), worker, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/v1/employees/1/notes?"+weekQuery(), worker, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodPut, "/v1/employees/1/notes", worker, map[string]string{"week": testWeek, "note": "rain on Thursday"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/v1/employees/1/notes?"+weekQuery(), worker, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rain on Thursday", decodeBody(t, rec)["note"])
}

func TestPaymentStatusRoutes(t *testing.T) {
	a := newAPI(t)
	manager := token(t, models.RoleManager, nil)
	admin := token(t, models.RoleAdmin, nil)
	worker := token(t, models.RoleEmployee, utils.Ptr(dbtest.EmployeeNI))

	rec := a.do(http.MethodPost, "/v1/timesheets", manager, `{"week":"2024-06-10","employees":[
		{"employee_id":1,"days":{"Monday":{"hours":10,"site":"Riverside"},"Tuesday":{"hours":2,"site":"Harbour"}}},
		{"employee_id":2,"days":{"Monday":{"hours":8,"site":"Harbour"}}}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/v1/payments/status", worker, map[string]interface{}{"employee_id": 1, "week": testWeek, "paid": true})
	assert.Equal(t, http.StatusForbidden, rec.Code, "employees cannot confirm payments")

	rec = a.do(http.MethodPost, "/v1/payments/status", manager, map[string]interface{}{"employee_id": 1, "week": testWeek})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "paid is required")

	rec = a.do(http.MethodPost, "/v1/payments/status", manager, map[string]interface{}{"employee_id": 1, "week": testWeek, "paid": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "paid", body["status"])
	assert.Equal(t, "180.00", body["gross_amount"])
	assert.Equal(t, "126.00", body["net_amount"])
	assert.NotEmpty(t, body["paid_at"])

	rec = a.do(http.MethodPost, "/v1/payments/status/bulk", admin, map[string]interface{}{
		"updates": []map[string]interface{}{
			{"employee_id": 1, "week": testWeek, "paid": false},
			{"employee_id": 2, "week": testWeek, "paid": true},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	payments := decodeBody(t, rec)["payments"].([]interface{})
	require.Len(t, payments, 2)
	assert.Equal(t, "pending", payments[0].(map[string]interface{})["status"])
	assert.Equal(t, "paid", payments[1].(map[string]interface{})["status"])

	rec = a.do(http.MethodPost, "/v1/payments/recompute", manager, map[string]interface{}{"employee_id": 3, "week": testWeek})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodPost, "/v1/payments/recompute", manager, map[string]interface{}{"employee_id": 2, "week": testWeek})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "160.00", decodeBody(t, rec)["gross_amount"])

	rec = a.do(http.MethodGet, "/v1/payments?"+weekQuery(), manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["payments"], 2)

	rec = a.do(http.MethodGet, "/v1/payments?"+weekQuery(), worker, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDashboardAndExports(t *testing.T) {
	a := newAPI(t)
	manager := token(t, models.RoleManager, nil)

	rec := a.do(http.MethodGet, "/v1/dashboard", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, testWeek, body["week_label"])
	assert.Equal(t, "0.00", body["total_hours"])
	assert.Equal(t, []interface{}{}, body["hours_by_site"])
	assert.Equal(t, []interface{}{}, body["top_earners"])

	rec = a.do(http.MethodPost, "/v1/timesheets", manager,
		`{"week":"2024-06-10","employees":[{"employee_id":1,"days":{"Monday":{"hours":8,"site":"Riverside"}}}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/v1/dashboard?week=2024-06-11", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "8.00", body["total_hours"])
	assert.Equal(t, float64(1), body["pending_count"])

	rec = a.do(http.MethodGet, "/v1/dashboard?week=soon", manager, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/v1/employees/1/remittance?"+weekQuery(), manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "remittance-1-2024-06-10.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = a.do(http.MethodGet, "/v1/employees/2/remittance?"+weekQuery(), manager, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodGet, "/v1/payments/register?"+weekQuery(), manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "register-2024-06-10.xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestMapServiceError(t *testing.T) {
	h := &PayrollHandler{logger: zaptest.NewLogger(t)}

	tests := []struct {
		err  error
		code codes.Code
		http int
	}{
		{e.ErrNotFound, codes.NotFound, http.StatusNotFound},
		{&e.MissingSiteError{EmployeeID: 1, Day: "Monday"}, codes.InvalidArgument, http.StatusBadRequest},
		{e.ErrForbidden, codes.PermissionDenied, http.StatusForbidden},
		{status.Error(codes.Unauthenticated, "who are you"), codes.Unauthenticated, http.StatusUnauthorized},
		{errors.New("some error"), codes.Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		mapped := h.mapServiceError(tt.err)
		assert.Equal(t, tt.code, status.Code(mapped), tt.err.Error())
		assert.Equal(t, tt.http, runtime.HTTPStatusFromCode(status.Code(mapped)))
	}
}

func TestManagerRoutes_RejectEmployees(t *testing.T) {
	a := newAPI(t)
	manager := token(t, models.RoleManager, nil)
	worker := token(t, models.RoleEmployee, utils.Ptr(dbtest.EmployeeNI))

	rec := a.do(http.MethodPost, "/v1/timesheets", worker,
		`{"week":"2024-06-10","employees":[{"employee_id":1,"days":{"Monday":{"hours":8,"site":"Riverside"}}}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	confirm := map[string]interface{}{"employee_id": 1, "week": testWeek, "paid": true}
	routes := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodPost, "/v1/payments/status", confirm},
		{http.MethodPost, "/v1/payments/status/bulk", map[string]interface{}{"updates": []interface{}{confirm}}},
		{http.MethodPost, "/v1/payments/recompute", map[string]interface{}{"employee_id": 2, "week": testWeek}},
		{http.MethodGet, "/v1/payments?" + weekQuery(), nil},
		{http.MethodGet, "/v1/payments/register?" + weekQuery(), nil},
		{http.MethodGet, "/v1/dashboard", nil},
	}
	for _, route := range routes {
		encoded := "/v1/" + strings.ReplaceAll(strings.TrimPrefix(route.path, "/v1/"), "/", "%2F")
		for _, path := range []string{route.path, encoded} {
			t.Run(route.method+" "+path, func(t *testing.T) {
				rec := a.do(route.method, path, worker, route.body)
				assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
			})
		}
	}

	rec = a.do(http.MethodGet, "/v1/employees/1/payment?"+weekQuery(), manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "pending", decodeBody(t, rec)["status"], "an employee must not be able to confirm a payment")
}

func TestRequireManager(t *testing.T) {
	ctx := context.Background()

	err := requireManager(ctx)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	err = requireManager(auth.WithClaims(ctx, &auth.Claims{Role: models.RoleEmployee, EmployeeID: utils.Ptr(int64(1))}))
	assert.ErrorIs(t, err, e.ErrForbidden)

	assert.NoError(t, requireManager(auth.WithClaims(ctx, &auth.Claims{Role: models.RoleManager})))
	assert.NoError(t, requireManager(auth.WithClaims(ctx, &auth.Claims{Role: models.RoleAdmin})))
}
