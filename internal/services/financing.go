package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/models"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/validation"
)

type FinancingInput struct {
	TruckID          string  `json:"truckId"`
	FirstName        string  `json:"firstName" validate:"required,max=100"`
	LastName         string  `json:"lastName" validate:"required,max=100"`
	Email            string  `json:"email" validate:"required,email,max=255"`
	Phone            string  `json:"phone" validate:"required,max=50"`
	Address          string  `json:"address" validate:"max=255"`
	City             string  `json:"city" validate:"max=100"`
	State            string  `json:"state" validate:"max=50"`
	ZipCode          string  `json:"zipCode" validate:"max=20"`
	EmploymentStatus string  `json:"employmentStatus" validate:"max=50"`
	Employer         string  `json:"employer" validate:"max=255"`
	JobTitle         string  `json:"jobTitle" validate:"max=100"`
	YearsEmployed    int     `json:"yearsEmployed" validate:"gte=0,lte=80"`
	AnnualIncome     float64 `json:"annualIncome" validate:"gte=0"`
	CreditScoreRange string  `json:"creditScoreRange" validate:"max=50"`
	DownPayment      float64 `json:"downPayment" validate:"gte=0"`
	LoanTermMonths   int     `json:"loanTermMonths" validate:"gte=0,lte=120"`
	Notes            string  `json:"notes"`
}

type FinancingFilter struct {
	Status models.FinancingStatus
	Page   int
	Limit  int
}

type FinancingList struct {
	Applications []models.FinancingApplication `json:"applications"`
	Pagination   Pagination                    `json:"pagination"`
}

type FinancingService struct {
	DB     *gorm.DB
	Trucks *TruckService
}

func NewFinancingService(db *gorm.DB, trucks *TruckService) *FinancingService {
	return &FinancingService{DB: db, Trucks: trucks}
}

func (s *FinancingService) Create(ctx context.Context, in FinancingInput) (*models.FinancingApplication, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.TruckID = strings.TrimSpace(in.TruckID)

	v := validation.Violations{}
	validation.Struct(&in, v)
	if err := checkTruckRef(ctx, s.Trucks, in.TruckID, v); err != nil {
		return nil, err
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	app := models.FinancingApplication{
		TruckID: strPtr(in.TruckID), FirstName: in.FirstName, LastName: in.LastName,
		Email: in.Email, Phone: in.Phone, Address: in.Address, City: in.City, State: in.State,
		ZipCode: in.ZipCode, EmploymentStatus: in.EmploymentStatus, Employer: in.Employer,
		JobTitle: in.JobTitle, YearsEmployed: in.YearsEmployed, AnnualIncome: in.AnnualIncome,
		CreditScoreRange: in.CreditScoreRange, DownPayment: in.DownPayment,
		LoanTermMonths: in.LoanTermMonths, Notes: in.Notes, Status: models.FinancingPending,
	}
	if err := s.DB.WithContext(ctx).Create(&app).Error; err != nil {
		return nil, fmt.Errorf("create financing application: %w", err)
	}
	return &app, nil
}

func (s *FinancingService) attachTrucks(ctx context.Context, list []models.FinancingApplication) error {
	var ids []string
	for _, a := range list {
		if a.TruckID != nil {
			ids = append(ids, *a.TruckID)
		}
	}
	byID, err := s.Trucks.summaries(ctx, ids)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].TruckID != nil {
			list[i].Truck = byID[*list[i].TruckID]
		}
	}
	return nil
}

func (s *FinancingService) List(ctx context.Context, f FinancingFilter) (*FinancingList, error) {
	page, limit := normalizePage(f.Page, f.Limit)
	filter := func(q *gorm.DB) *gorm.DB {
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		return q
	}
	var total int64
	if err := filter(s.DB.WithContext(ctx).Model(&models.FinancingApplication{})).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count financing applications: %w", err)
	}
	list := []models.FinancingApplication{}
	err := filter(s.DB.WithContext(ctx)).
		Order("created_at DESC").Order("id ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list financing applications: %w", err)
	}
	if err := s.attachTrucks(ctx, list); err != nil {
		return nil, err
	}
	return &FinancingList{Applications: list, Pagination: newPagination(page, limit, total)}, nil
}

func (s *FinancingService) Get(ctx context.Context, id string) (*models.FinancingApplication, error) {
	var app models.FinancingApplication
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&app).Error; err != nil {
		return nil, notFound(err)
	}
	list := []models.FinancingApplication{app}
	if err := s.attachTrucks(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// FinancingPatch is the admin-editable part of an application.
type FinancingPatch struct {
	Status *models.FinancingStatus `json:"status"`
	Notes  *string                 `json:"notes"`
}

func (s *FinancingService) Update(ctx context.Context, id string, p FinancingPatch) (*models.FinancingApplication, error) {
	updates := map[string]any{}
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, validation.Violations{"status": "invalid_value"}
		}
		updates["status"] = *p.Status
	}
	if p.Notes != nil {
		updates["notes"] = *p.Notes
	}
	if len(updates) == 0 {
		return s.Get(ctx, id)
	}
	res := s.DB.WithContext(ctx).Model(&models.FinancingApplication{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update financing application: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *FinancingService) Delete(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Delete(&models.FinancingApplication{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
