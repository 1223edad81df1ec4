package models

import (
	"time"

	"gorm.io/gorm"
)

type FinancingStatus string

const (
	FinancingPending   FinancingStatus = "PENDING"
	FinancingReviewing FinancingStatus = "REVIEWING"
	FinancingApproved  FinancingStatus = "APPROVED"
	FinancingDenied    FinancingStatus = "DENIED"
)

func (s FinancingStatus) Valid() bool {
	switch s {
	case FinancingPending, FinancingReviewing, FinancingApproved, FinancingDenied:
		return true
	}
	return false
}

// FinancingApplication is a public credit application, optionally tied to a truck.
type FinancingApplication struct {
	ID               string          `gorm:"primaryKey;size:36" json:"id"`
	TruckID          *string         `gorm:"size:36;index" json:"truckId,omitempty"`
	Truck            *TruckSummary   `gorm:"-" json:"truck,omitempty"`
	FirstName        string          `gorm:"size:100;not null" json:"firstName"`
	LastName         string          `gorm:"size:100;not null" json:"lastName"`
	Email            string          `gorm:"size:255;not null" json:"email"`
	Phone            string          `gorm:"size:50;not null" json:"phone"`
	Address          string          `gorm:"size:255" json:"address,omitempty"`
	City             string          `gorm:"size:100" json:"city,omitempty"`
	State            string          `gorm:"size:50" json:"state,omitempty"`
	ZipCode          string          `gorm:"size:20" json:"zipCode,omitempty"`
	EmploymentStatus string          `gorm:"size:50" json:"employmentStatus,omitempty"`
	Employer         string          `gorm:"size:255" json:"employer,omitempty"`
	JobTitle         string          `gorm:"size:100" json:"jobTitle,omitempty"`
	YearsEmployed    int             `gorm:"not null;default:0" json:"yearsEmployed"`
	AnnualIncome     float64         `gorm:"not null;default:0" json:"annualIncome"`
	CreditScoreRange string          `gorm:"size:50" json:"creditScoreRange,omitempty"`
	DownPayment      float64         `gorm:"not null;default:0" json:"downPayment"`
	LoanTermMonths   int             `gorm:"not null;default:0" json:"loanTermMonths"`
	Notes            string          `gorm:"type:text" json:"notes,omitempty"`
	Status           FinancingStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func (f *FinancingApplication) BeforeCreate(*gorm.DB) error { newID(&f.ID); return nil }
