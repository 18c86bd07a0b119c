package db

import (
	"context"
	"fmt"
	"os"
	"strings"

	dbmodels "github.com/gartstein/siteledger/internal/payroll/db/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seed is a snapshot of directory data, used for local environments and
// tests where the external registries are not reachable.
type Seed struct {
	Employees   []dbmodels.Employee
	Contracts   []dbmodels.Contract
	Assignments []dbmodels.Assignment
	Accounts    []dbmodels.Account
}

type seedFile struct {
	Employees []struct {
		ID             int64  `yaml:"id"`
		Name           string `yaml:"name"`
		HourlyRate     string `yaml:"hourly_rate"`
		Classification string `yaml:"classification"`
	} `yaml:"employees"`
	Contracts []struct {
		ID       int64  `yaml:"id"`
		SiteName string `yaml:"site_name"`
		Status   string `yaml:"status"`
	} `yaml:"contracts"`
	Assignments []struct {
		EmployeeID int64 `yaml:"employee_id"`
		ContractID int64 `yaml:"contract_id"`
	} `yaml:"assignments"`
	Accounts []struct {
		ID         int64  `yaml:"id"`
		Email      string `yaml:"email"`
		Role       string `yaml:"role"`
		EmployeeID *int64 `yaml:"employee_id"`
	} `yaml:"accounts"`
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw seedFile
	if err := yaml.Unmarshal(file, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse seed %s: %w", path, err)
	}

	seed := &Seed{}
	for _, emp := range raw.Employees {
		row := dbmodels.Employee{ID: emp.ID, Name: emp.Name, Classification: emp.Classification}
		if rate := strings.TrimSpace(emp.HourlyRate); rate != "" {
			d, err := decimal.NewFromString(rate)
			if err != nil {
				return nil, fmt.Errorf("employee %d: invalid hourly_rate %q: %w", emp.ID, rate, err)
			}
			row.HourlyRate = decimal.NewNullDecimal(d)
		}
		seed.Employees = append(seed.Employees, row)
	}
	for _, c := range raw.Contracts {
		status := c.Status
		if status == "" {
			status = "active"
		}
		seed.Contracts = append(seed.Contracts, dbmodels.Contract{ID: c.ID, SiteName: c.SiteName, Status: status})
	}
	for _, a := range raw.Assignments {
		seed.Assignments = append(seed.Assignments, dbmodels.Assignment{EmployeeID: a.EmployeeID, ContractID: a.ContractID})
	}
	for _, a := range raw.Accounts {
		seed.Accounts = append(seed.Accounts, dbmodels.Account{ID: a.ID, Email: a.Email, Role: a.Role, EmployeeID: a.EmployeeID})
	}
	return seed, nil
}

// ApplySeed upserts the seed rows in one transaction.
func (r *Repository) ApplySeed(ctx context.Context, seed *Seed) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := func() *gorm.DB { return tx.Clauses(clause.OnConflict{UpdateAll: true}) }
		if len(seed.Employees) > 0 {
			if err := upsert().Create(&seed.Employees).Error; err != nil {
				return fmt.Errorf("seed employees: %w", err)
			}
		}
		if len(seed.Contracts) > 0 {
			if err := upsert().Create(&seed.Contracts).Error; err != nil {
				return fmt.Errorf("seed contracts: %w", err)
			}
		}
		if len(seed.Assignments) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed.Assignments).Error; err != nil {
				return fmt.Errorf("seed assignments: %w", err)
			}
		}
		if len(seed.Accounts) > 0 {
			if err := upsert().Create(&seed.Accounts).Error; err != nil {
				return fmt.Errorf("seed accounts: %w", err)
			}
		}
		return nil
	})
}
