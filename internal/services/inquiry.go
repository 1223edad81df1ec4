package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/models"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/validation"
)

type InquiryInput struct {
	Name        string             `json:"name" validate:"required,max=255"`
	Email       string             `json:"email" validate:"required,email,max=255"`
	Phone       string             `json:"phone" validate:"max=50"`
	Message     string             `json:"message" validate:"required"`
	InquiryType models.InquiryType `json:"inquiryType" validate:"omitempty,oneof=GENERAL SALES TEST_DRIVE FINANCING SERVICE"`
	TruckID     string             `json:"truckId"`
}

type InquiryFilter struct {
	Status      models.InquiryStatus
	InquiryType models.InquiryType
	Page        int
	Limit       int
}

type InquiryList struct {
	Inquiries  []models.Inquiry `json:"inquiries"`
	Pagination Pagination       `json:"pagination"`
}

type InquiryService struct {
	DB     *gorm.DB
	Trucks *TruckService
}

func NewInquiryService(db *gorm.DB, trucks *TruckService) *InquiryService {
	return &InquiryService{DB: db, Trucks: trucks}
}

// checkTruckRef records a violation when id names a truck that does not exist.
func checkTruckRef(ctx context.Context, trucks *TruckService, id string, v validation.Violations) error {
	if id == "" {
		return nil
	}
	ok, err := trucks.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		v["truckId"] = "not_found"
	}
	return nil
}

func (s *InquiryService) Create(ctx context.Context, in InquiryInput) (*models.Inquiry, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	in.TruckID = strings.TrimSpace(in.TruckID)
	if in.InquiryType == "" {
		in.InquiryType = models.InquiryGeneral
	}
	v := validation.Violations{}
	validation.Struct(&in, v)
	if err := checkTruckRef(ctx, s.Trucks, in.TruckID, v); err != nil {
		return nil, err
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	inq := models.Inquiry{
		Name: in.Name, Email: in.Email, Phone: in.Phone, Message: in.Message,
		InquiryType: in.InquiryType, Status: models.InquiryNew, TruckID: strPtr(in.TruckID),
	}
	if err := s.DB.WithContext(ctx).Create(&inq).Error; err != nil {
		return nil, fmt.Errorf("create inquiry: %w", err)
	}
	return &inq, nil
}

func (s *InquiryService) attachTrucks(ctx context.Context, list []models.Inquiry) error {
	var ids []string
	for _, inq := range list {
		if inq.TruckID != nil {
			ids = append(ids, *inq.TruckID)
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

func (s *InquiryService) List(ctx context.Context, f InquiryFilter) (*InquiryList, error) {
	page, limit := normalizePage(f.Page, f.Limit)
	filter := func(q *gorm.DB) *gorm.DB {
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.InquiryType != "" {
			q = q.Where("inquiry_type = ?", f.InquiryType)
		}
		return q
	}
	var total int64
	if err := filter(s.DB.WithContext(ctx).Model(&models.Inquiry{})).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count inquiries: %w", err)
	}
	list := []models.Inquiry{}
	err := filter(s.DB.WithContext(ctx)).
		Order("created_at DESC").Order("id ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list inquiries: %w", err)
	}
	if err := s.attachTrucks(ctx, list); err != nil {
		return nil, err
	}
	return &InquiryList{Inquiries: list, Pagination: newPagination(page, limit, total)}, nil
}

func (s *InquiryService) Get(ctx context.Context, id string) (*models.Inquiry, error) {
	var inq models.Inquiry
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&inq).Error; err != nil {
		return nil, notFound(err)
	}
	list := []models.Inquiry{inq}
	if err := s.attachTrucks(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// UpdateStatus sets status. Any status may follow any other.
func (s *InquiryService) UpdateStatus(ctx context.Context, id string, status models.InquiryStatus) (*models.Inquiry, error) {
	if !status.Valid() {
		return nil, validation.Violations{"status": "invalid_value"}
	}
	res := s.DB.WithContext(ctx).Model(&models.Inquiry{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, fmt.Errorf("update inquiry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *InquiryService) Delete(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Delete(&models.Inquiry{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
