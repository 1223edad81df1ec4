package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ListingType string

const (
	ListingSale  ListingType = "SALE"
	ListingLease ListingType = "LEASE"
)

type TruckStatus string

const (
	StatusAvailable   TruckStatus = "AVAILABLE"
	StatusPendingSale TruckStatus = "PENDING_SALE"
	StatusSold        TruckStatus = "SOLD"
)

// Truck is a catalog listing.
type Truck struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	Slug            string         `gorm:"uniqueIndex;size:255;not null" json:"slug"`
	Title           string         `gorm:"size:255;not null" json:"title"`
	Year            int            `gorm:"not null;index" json:"year"`
	Make            string         `gorm:"size:100;not null;index" json:"make"`
	Model           string         `gorm:"size:100;not null" json:"model"`
	Trim            string         `gorm:"size:100" json:"trim,omitempty"`
	Mileage         int            `gorm:"not null;default:0" json:"mileage"`
	FuelType        string         `gorm:"size:50" json:"fuelType,omitempty"`
	Transmission    string         `gorm:"size:50" json:"transmission,omitempty"`
	Drivetrain      string         `gorm:"size:50" json:"drivetrain,omitempty"`
	Color           string         `gorm:"size:50" json:"color,omitempty"`
	VIN             string         `gorm:"column:vin;size:17" json:"vin,omitempty"`
	StockNumber     string         `gorm:"size:50" json:"stockNumber,omitempty"`
	Description     string         `gorm:"type:text" json:"description,omitempty"`
	ListingType     ListingType    `gorm:"size:10;not null;default:SALE" json:"listingType"`
	Price           float64        `gorm:"not null;default:0" json:"price"`
	MonthlyPrice    *float64       `json:"monthlyPrice,omitempty"`
	LeaseTermMonths *int           `json:"leaseTermMonths,omitempty"`
	DownPayment     *float64       `json:"downPayment,omitempty"`
	Status          TruckStatus    `gorm:"size:20;not null;default:AVAILABLE;index" json:"status"`
	Featured        bool           `gorm:"not null;default:false" json:"featured"`
	Images          []TruckImage   `gorm:"constraint:OnDelete:CASCADE" json:"images"`
	Features        []TruckFeature `gorm:"constraint:OnDelete:CASCADE" json:"features"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

type TruckImage struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	TruckID   string `gorm:"size:36;index;not null" json:"truckId"`
	URL       string `gorm:"column:url;size:1024;not null" json:"url"`
	IsPrimary bool   `gorm:"not null;default:false" json:"isPrimary"`
	SortOrder int    `gorm:"not null;default:0" json:"sortOrder"`
}

type TruckFeature struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	TruckID string `gorm:"size:36;index;not null" json:"truckId"`
	Name    string `gorm:"size:255;not null" json:"name"`
}

// TruckView is an append-only detail page view.
type TruckView struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	TruckID   string    `gorm:"size:36;not null;index:idx_truck_views_truck_time,priority:1" json:"truckId"`
	Timestamp time.Time `gorm:"column:viewed_at;not null;index:idx_truck_views_truck_time,priority:2" json:"timestamp"`
	IPHash    string    `gorm:"column:ip_hash;size:64;not null" json:"-"`
	SessionID *string   `gorm:"size:64" json:"-"`
}

// EffectivePrice is the monthly price for leases and the sticker price otherwise.
func (t *Truck) EffectivePrice() float64 {
	if t.ListingType == ListingLease && t.MonthlyPrice != nil {
		return *t.MonthlyPrice
	}
	return t.Price
}

// CanTransitionTo reports whether status may move from t.Status to next.
// SOLD is terminal.
func (t *Truck) CanTransitionTo(next TruckStatus) bool {
	if t.Status == next {
		return true
	}
	return t.Status != StatusSold
}

func (s TruckStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusPendingSale, StatusSold:
		return true
	}
	return false
}

func (l ListingType) Valid() bool {
	return l == ListingSale || l == ListingLease
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (t *Truck) BeforeCreate(*gorm.DB) error        { newID(&t.ID); return nil }
func (i *TruckImage) BeforeCreate(*gorm.DB) error   { newID(&i.ID); return nil }
func (f *TruckFeature) BeforeCreate(*gorm.DB) error { newID(&f.ID); return nil }
func (v *TruckView) BeforeCreate(*gorm.DB) error    { newID(&v.ID); return nil }
