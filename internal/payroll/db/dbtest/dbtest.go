// Package dbtest opens migrated in-memory repositories for tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/gartstein/siteledger/internal/payroll/db"
	dbmodels "github.com/gartstein/siteledger/internal/payroll/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// Fixture ids shared by the test suites.
const (
	EmployeeNI        int64 = 1 // NI, £15.00, assigned to Riverside and Harbour
	EmployeeUTR       int64 = 2 // UTR, £20.00, assigned to Harbour
	EmployeeNoRate    int64 = 3 // no rate, no classification, assigned to Riverside
	ContractRiverside int64 = 10
	ContractHarbour   int64 = 11
	ContractDepot     int64 = 12

	AccountAdmin    int64 = 100
	AccountManager  int64 = 101
	AccountWorkerNI int64 = 102
)

// Config returns a sqlite configuration backed by a private in-memory database.
func Config() *db.Config {
	return &db.Config{
		Driver: db.DriverSQLite,
		Path:   fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString()),
	}
}

// NewRepository opens and migrates an empty repository that is closed when
// the test ends.
func NewRepository(t *testing.T) *db.Repository {
	t.Helper()
	repo, err := db.NewRepository(context.Background(), Config(), zaptest.NewLogger(t))
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// NewSeededRepository opens a repository loaded with Seed().
func NewSeededRepository(t *testing.T) *db.Repository {
	t.Helper()
	repo := NewRepository(t)
	require.NoError(t, repo.ApplySeed(context.Background(), Seed()), "failed to seed test database")
	return repo
}

// Seed is the standard directory used across test suites.
func Seed() *db.Seed {
	workerNI := EmployeeNI
	return &db.Seed{
		Employees: []dbmodels.Employee{
			{ID: EmployeeNI, Name: "Alice Mason", HourlyRate: rate("15.00"), Classification: "NI"},
			{ID: EmployeeUTR, Name: "Bob Joiner", HourlyRate: rate("20.00"), Classification: "UTR"},
			{ID: EmployeeNoRate, Name: "Carl Labourer"},
		},
		Contracts: []dbmodels.Contract{
			{ID: ContractRiverside, SiteName: "Riverside", Status: "active"},
			{ID: ContractHarbour, SiteName: "Harbour", Status: "active"},
			{ID: ContractDepot, SiteName: "Depot", Status: "active"},
		},
		Assignments: []dbmodels.Assignment{
			{EmployeeID: EmployeeNI, ContractID: ContractRiverside},
			{EmployeeID: EmployeeNI, ContractID: ContractHarbour},
			{EmployeeID: EmployeeUTR, ContractID: ContractHarbour},
			{EmployeeID: EmployeeNoRate, ContractID: ContractRiverside},
		},
		Accounts: []dbmodels.Account{
			{ID: AccountAdmin, Email: "admin@example.com", Role: "admin"},
			{ID: AccountManager, Email: "manager@example.com", Role: "manager"},
			{ID: AccountWorkerNI, Email: "alice@example.com", Role: "employee", EmployeeID: &workerNI},
		},
	}
}

func rate(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}
