package db

import (
	"context"
	"errors"

	dbmodels "github.com/gartstein/siteledger/internal/payroll/db/models"
	e "github.com/gartstein/siteledger/internal/payroll/errors"
	"github.com/gartstein/siteledger/internal/payroll/models"
	"gorm.io/gorm"
)

// Directory reads. The employees, contracts, assignments and accounts tables
// belong to external registries; the engine never writes them outside of
// ApplySeed.

func (r *Repository) GetEmployee(ctx context.Context, id int64) (*models.Employee, error) {
	var row dbmodels.Employee
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return employeeFromRow(row), nil
}

// ListEmployees returns the requested employees keyed by id. Unknown ids are
// left out.
func (r *Repository) ListEmployees(ctx context.Context, ids []int64) (map[int64]models.Employee, error) {
	out := make(map[int64]models.Employee, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []dbmodels.Employee
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = *employeeFromRow(row)
	}
	return out, nil
}

// ListAssignments returns the employee's assignments ordered by site name.
func (r *Repository) ListAssignments(ctx context.Context, employeeID int64) ([]models.Assignment, error) {
	var rows []models.Assignment
	result := r.db.WithContext(ctx).
		Table("assignments AS a").
		Select("a.employee_id, a.contract_id, c.site_name").
		Joins("JOIN contracts c ON c.id = a.contract_id").
		Where("a.employee_id = ?", employeeID).
		Order("c.site_name").
		Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	return rows, nil
}

// ManagerAccounts returns every account with manager-equivalent rights.
func (r *Repository) ManagerAccounts(ctx context.Context) ([]models.Account, error) {
	var rows []dbmodels.Account
	result := r.db.WithContext(ctx).
		Where("role IN ?", []string{string(models.RoleAdmin), string(models.RoleManager)}).
		Order("id").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	accounts := make([]models.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, accountFromRow(row))
	}
	return accounts, nil
}

// LinkedAccount returns the login of an employee, or ErrNotFound when the
// employee has none.
func (r *Repository) LinkedAccount(ctx context.Context, employeeID int64) (*models.Account, error) {
	var row dbmodels.Account
	result := r.db.WithContext(ctx).Where("employee_id = ?", employeeID).Order("id").First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	account := accountFromRow(row)
	return &account, nil
}
