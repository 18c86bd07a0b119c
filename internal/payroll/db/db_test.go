package db_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gartstein/siteledger/internal/payroll/db"
	"github.com/gartstein/siteledger/internal/payroll/db/dbtest"
	e "github.com/gartstein/siteledger/internal/payroll/errors"
	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/gartstein/siteledger/internal/payroll/week"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testWeek = mustWeek("2024-06-10 - 2024-06-16")

func mustWeek(label string) week.Window {
	w, err := week.Parse(label)
	if err != nil {
		panic(err)
	}
	return w
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func entry(employeeID int64, day week.Day, hours string, contractID int64, site string) *models.TimeEntry {
	return &models.TimeEntry{
		EmployeeID: employeeID,
		WorkDate:   testWeek.DateOf(day),
		Hours:      dec(hours),
		Site:       site,
		ContractID: contractID,
		Rate:       dec("15.00"),
	}
}

// TestNewRepositoryUnsupportedDriver verifies configuration errors surface before connecting.
func TestNewRepositoryUnsupportedDriver(t *testing.T) {
	_, err := db.NewRepository(context.Background(), &db.Config{Driver: "oracle"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

// TestMigrationsAreIdempotent ensures reopening an already migrated database is a no-op.
func TestMigrationsAreIdempotent(t *testing.T) {
	cfg := dbtest.Config()
	ctx := context.Background()

	first, err := db.NewRepository(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer first.Close()

	second, err := db.NewRepository(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err, "second open should find the schema already applied")
	defer second.Close()
}

// TestDirectoryReads covers employee, assignment and account lookups.
func TestDirectoryReads(t *testing.T) {
	repo := dbtest.NewSeededRepository(t)
	ctx := context.Background()

	emp, err := repo.GetEmployee(ctx, dbtest.EmployeeNI)
	require.NoError(t, err)
	assert.Equal(t, models.ClassificationNI, emp.Classification)
	assert.True(t, emp.HourlyRate.Valid)
	assert.Equal(t, "15.00", emp.HourlyRate.Decimal.StringFixed(2))

	incomplete, err := repo.GetEmployee(ctx, dbtest.EmployeeNoRate)
	require.NoError(t, err)
	assert.False(t, incomplete.HourlyRate.Valid)
	assert.Empty(t, incomplete.Classification)

	_, err = repo.GetEmployee(ctx, 999)
	assert.ErrorIs(t, err, e.ErrNotFound)

	assignments, err := repo.ListAssignments(ctx, dbtest.EmployeeNI)
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, "Harbour", assignments[0].SiteName)
	assert.Equal(t, dbtest.ContractHarbour, assignments[0].ContractID)
	assert.Equal(t, "Riverside", assignments[1].SiteName)

	managers, err := repo.ManagerAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, managers, 2)
	assert.Equal(t, dbtest.AccountAdmin, managers[0].ID)
	assert.Equal(t, dbtest.AccountManager, managers[1].ID)

	linked, err := repo.LinkedAccount(ctx, dbtest.EmployeeNI)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", linked.Email)

	_, err = repo.LinkedAccount(ctx, dbtest.EmployeeUTR)
	assert.ErrorIs(t, err, e.ErrNotFound)

	byID, err := repo.ListEmployees(ctx, []int64{dbtest.EmployeeNI, dbtest.EmployeeUTR, 999})
	require.NoError(t, err)
	assert.Len(t, byID, 2)
	assert.Equal(t, "Bob Joiner", byID[dbtest.EmployeeUTR].Name)
}

// TestUpsertTimeEntry checks last-write-wins on (employee, date).
func TestUpsertTimeEntry(t *testing.T) {
	repo := dbtest.NewSeededRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertTimeEntry(ctx, entry(dbtest.EmployeeNI, week.Monday, "8", dbtest.ContractRiverside, "Riverside")))
	require.NoError(t, repo.UpsertTimeEntry(ctx, entry(dbtest.EmployeeNI, week.Tuesday, "6", dbtest.ContractRiverside, "Riverside")))

	overwrite := entry(dbtest.EmployeeNI, week.Monday, "9.5", dbtest.ContractHarbour, "Harbour")
	overwrite.Rate = dec("16.00")
	require.NoError(t, repo.UpsertTimeEntry(ctx, overwrite))

	entries, err := repo.ListEntries(ctx, dbtest.EmployeeNI, testWeek)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-06-10", entries[0].WorkDate)
	assert.True(t, dec("9.5").Equal(entries[0].Hours))
	assert.Equal(t, "Harbour", entries[0].Site)
	assert.Equal(t, dbtest.ContractHarbour, entries[0].ContractID)
	assert.True(t, dec("16").Equal(entries[0].Rate))

	other := mustWeek("2024-06-17")
	entries, err = repo.ListEntries(ctx, dbtest.EmployeeNI, other)
	require.NoError(t, err)
	assert.Empty(t, entries)

	all, err := repo.ListWeekEntries(ctx, testWeek)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// TestUpsertTimeEntryRejectsUnknownContract relies on the foreign key.
func TestUpsertTimeEntryRejectsUnknownContract(t *testing.T) {
	repo := dbtest.NewSeededRepository(t)

	err := repo.UpsertTimeEntry(context.Background(), entry(dbtest.EmployeeNI, week.Monday, "8", 4242, "Nowhere"))
	assert.Error(t, err)
}

// TestCreatePaymentIfAbsent verifies a second insert folds into the first row.
func TestCreatePaymentIfAbsent(t *testing.T) {
	repo := dbtest.NewSeededRepository(t)
	ctx := context.Background()
	label := testWeek.Label()

	created, err := repo.CreatePaymentIfAbsent(ctx, &models.WeeklyPayment{
		EmployeeID: dbtest.EmployeeNI, WeekLabel: label, GrossAmount: dec("150.00"), NetAmount: dec("105.00"),
	})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreatePaymentIfAbsent(ctx, &models.WeeklyPayment{
		EmployeeID: dbtest.EmployeeNI, WeekLabel: label, GrossAmount: dec("999.00"), NetAmount: dec("999.00"),
	})
	require.NoError(t, err)
	assert.False(t, created)

	payment, err := repo.GetPayment(ctx, dbtest.EmployeeNI, label)
	require.NoError(t, err)
	assert.Equal(t, "150.00", payment.GrossAmount.StringFixed(2))
	assert.False(t, payment.IsPaid)

	payments, err := repo.ListPayments(ctx, label)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

// TestCreatePaymentIfAbsentConcurrent races inserts for the same key.
func TestCreatePaymentIfAbsentConcurrent(t *testing.T) {
	repo := dbtest.NewSeededRepository(t)
	ctx := context.Background()
	label := testWeek.Label()

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := repo.CreatePaymentIfAbsent(ctx, &models.WeeklyPayment{
				EmployeeID: dbtest.EmployeeUTR, WeekLabel: label, GrossAmount: dec("10"), NetAmount: dec("8"),
			})
			assert.NoError(t, err)
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	payments, err := repo.ListPayments(ctx, label)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

// TestPaymentTransitions covers the conditional status updates.
func TestPaymentTransitions(t *testing.T) {
	repo := dbtest.NewSeededRepository(t)
	ctx := context.Background()
	label := testWeek.Label()
	now := time.Date(2024, 6, 17, 9, 0, 0, 0, time.UTC)

	_, err := repo.CreatePaymentIfAbsent(ctx, &models.WeeklyPayment{
		EmployeeID: dbtest.EmployeeNI, WeekLabel: label, GrossAmount: dec("150"), NetAmount: dec("105"),
	})
	require.NoError(t, err)

	refreshed, err := repo.RefreshPendingAmounts(ctx, dbtest.EmployeeNI, label, dec("180"), dec("126"), now)
	require.NoError(t, err)
	assert.True(t, refreshed)

	moved, err := repo.MarkPaid(ctx, dbtest.EmployeeNI, label, dec("180"), dec("126"), now)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = repo.MarkPaid(ctx, dbtest.EmployeeNI, label, dec("1"), dec("1"), now)
	require.NoError(t, err)
	assert.False(t, moved, "already paid rows do not transition again")

	refreshed, err = repo.RefreshPendingAmounts(ctx, dbtest.EmployeeNI, label, dec("5"), dec("5"), now)
	require.NoError(t, err)
	assert.False(t, refreshed, "paid rows are never refreshed")

	payment, err := repo.GetPayment(ctx, dbtest.EmployeeNI, label)
	require.NoError(t, err)
	assert.True(t, payment.IsPaid)
	require.NotNil(t, payment.PaidAt)
	assert.Equal(t, "180.00", payment.GrossAmount.StringFixed(2))
	assert.Equal(t, "126.00", payment.NetAmount.StringFixed(2))

	moved, err = repo.MarkPending(ctx, dbtest.EmployeeNI, label, now)
	require.NoError(t, err)
	assert.True(t, moved)

	payment, err = repo.GetPayment(ctx, dbtest.EmployeeNI, label)
	require.NoError(t, err)
	assert.False(t, payment.IsPaid)
	assert.Nil(t, payment.PaidAt)
	assert.Equal(t, "180.00", payment.GrossAmount.StringFixed(2), "amounts survive the toggle back")

	require.NoError(t, repo.SetAmounts(ctx, dbtest.EmployeeNI, label, dec("200"), dec("140"), now))
	assert.ErrorIs(t, repo.SetAmounts(ctx, dbtest.EmployeeUTR, label, dec("1"), dec("1"), now), e.ErrNotFound)

	_, err = repo.GetPayment(ctx, dbtest.EmployeeUTR, label)
	assert.ErrorIs(t, err, e.ErrNotFound)
}

// TestWeekNotes checks upsert semantics.
func TestWeekNotes(t *testing.T) {
	repo := dbtest.NewSeededRepository(t)
	ctx := context.Background()
	label := testWeek.Label()

	_, err := repo.GetWeekNote(ctx, dbtest.EmployeeNI, label)
	assert.ErrorIs(t, err, e.ErrNotFound)

	require.NoError(t, repo.UpsertWeekNote(ctx, &models.WeekNote{EmployeeID: dbtest.EmployeeNI, WeekLabel: label, Note: "rain stopped work"}))
	require.NoError(t, repo.UpsertWeekNote(ctx, &models.WeekNote{EmployeeID: dbtest.EmployeeNI, WeekLabel: label, Note: "rain stopped work on Tuesday"}))

	note, err := repo.GetWeekNote(ctx, dbtest.EmployeeNI, label)
	require.NoError(t, err)
	assert.Equal(t, "rain stopped work on Tuesday", note.Note)
}

// TestEmployeeDeletionCascades ensures ledger rows only disappear with their employee.
func TestEmployeeDeletionCascades(t *testing.T) {
	repo := dbtest.NewSeededRepository(t)
	ctx := context.Background()
	label := testWeek.Label()

	require.NoError(t, repo.UpsertTimeEntry(ctx, entry(dbtest.EmployeeUTR, week.Monday, "8", dbtest.ContractHarbour, "Harbour")))
	_, err := repo.CreatePaymentIfAbsent(ctx, &models.WeeklyPayment{
		EmployeeID: dbtest.EmployeeUTR, WeekLabel: label, GrossAmount: dec("160"), NetAmount: dec("128"),
	})
	require.NoError(t, err)

	require.NoError(t, repo.Exec(ctx, "DELETE FROM employees WHERE id = ?", dbtest.EmployeeUTR))

	_, err = repo.GetPayment(ctx, dbtest.EmployeeUTR, label)
	assert.ErrorIs(t, err, e.ErrNotFound)
	entries, err := repo.ListEntries(ctx, dbtest.EmployeeUTR, testWeek)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestWithTransaction ensures a failing callback commits nothing.
func TestWithTransaction(t *testing.T) {
	repo := dbtest.NewSeededRepository(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.UpsertTimeEntry(ctx, entry(dbtest.EmployeeNI, week.Monday, "8", dbtest.ContractRiverside, "Riverside")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	entries, err := repo.ListEntries(ctx, dbtest.EmployeeNI, testWeek)
	require.NoError(t, err)
	assert.Empty(t, entries, "rolled back entry must not be visible")

	err = repo.WithTransaction(ctx, func(tx *db.Repository) error {
		return tx.UpsertTimeEntry(ctx, entry(dbtest.EmployeeNI, week.Monday, "8", dbtest.ContractRiverside, "Riverside"))
	})
	require.NoError(t, err)
	entries, err = repo.ListEntries(ctx, dbtest.EmployeeNI, testWeek)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadSeed(t *testing.T) {
	_, err := db.LoadSeed("testdata/missing.yaml")
	assert.Error(t, err)

	seed, err := db.LoadSeed("testdata/seed.yaml")
	require.NoError(t, err)
	require.Len(t, seed.Employees, 1)
	assert.Equal(t, "12.50", seed.Employees[0].HourlyRate.Decimal.StringFixed(2))
	assert.Equal(t, "Riverside", seed.Contracts[0].SiteName)

	repo := dbtest.NewRepository(t)
	require.NoError(t, repo.ApplySeed(context.Background(), seed))
	require.NoError(t, repo.ApplySeed(context.Background(), seed), "seeding twice is an upsert")

	assignments, err := repo.ListAssignments(context.Background(), seed.Employees[0].ID)
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
}
