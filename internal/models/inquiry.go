package models

import (
	"time"

	"gorm.io/gorm"
)

type InquiryType string

const (
	InquiryGeneral   InquiryType = "GENERAL"
	InquirySales     InquiryType = "SALES"
	InquiryTestDrive InquiryType = "TEST_DRIVE"
	InquiryFinancing InquiryType = "FINANCING"
	InquiryService   InquiryType = "SERVICE"
)

type InquiryStatus string

const (
	InquiryNew       InquiryStatus = "NEW"
	InquiryContacted InquiryStatus = "CONTACTED"
	InquiryClosed    InquiryStatus = "CLOSED"
)

// Inquiry is a customer contact submission. TruckID is a weak reference.
type Inquiry struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	Name        string        `gorm:"size:255;not null" json:"name"`
	Email       string        `gorm:"size:255;not null" json:"email"`
	Phone       string        `gorm:"size:50" json:"phone,omitempty"`
	Message     string        `gorm:"type:text;not null" json:"message"`
	InquiryType InquiryType   `gorm:"size:20;not null;default:GENERAL" json:"inquiryType"`
	Status      InquiryStatus `gorm:"size:20;not null;default:NEW;index" json:"status"`
	TruckID     *string       `gorm:"size:36;index" json:"truckId,omitempty"`
	Truck       *TruckSummary `gorm:"-" json:"truck,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// TruckSummary is the short form of a truck embedded in related records.
type TruckSummary struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Year  int    `json:"year"`
	Make  string `json:"make"`
	Model string `json:"model"`
}

func (i *Inquiry) BeforeCreate(*gorm.DB) error { newID(&i.ID); return nil }

func (t InquiryType) Valid() bool {
	switch t {
	case InquiryGeneral, InquirySales, InquiryTestDrive, InquiryFinancing, InquiryService:
		return true
	}
	return false
}

func (s InquiryStatus) Valid() bool {
	switch s {
	case InquiryNew, InquiryContacted, InquiryClosed:
		return true
	}
	return false
}
