package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/models"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/validation"
)

// TruckInput is the full writable state of a truck. Images and Features left
// nil are not touched on update; an empty slice clears them.
type TruckInput struct {
	Title           string             `json:"title" validate:"max=255"`
	Year            int                `json:"year" validate:"gte=1900,lte=2100"`
	Make            string             `json:"make" validate:"required,max=100"`
	Model           string             `json:"model" validate:"required,max=100"`
	Trim            string             `json:"trim" validate:"max=100"`
	Mileage         int                `json:"mileage" validate:"gte=0"`
	FuelType        string             `json:"fuelType" validate:"max=50"`
	Transmission    string             `json:"transmission" validate:"max=50"`
	Drivetrain      string             `json:"drivetrain" validate:"max=50"`
	Color           string             `json:"color" validate:"max=50"`
	VIN             string             `json:"vin" validate:"max=17"`
	StockNumber     string             `json:"stockNumber" validate:"max=50"`
	Description     string             `json:"description"`
	ListingType     models.ListingType `json:"listingType" validate:"required,oneof=SALE LEASE"`
	Price           float64            `json:"price" validate:"gte=0"`
	MonthlyPrice    *float64           `json:"monthlyPrice" validate:"omitempty,gte=0"`
	LeaseTermMonths *int               `json:"leaseTermMonths" validate:"omitempty,gte=0"`
	DownPayment     *float64           `json:"downPayment" validate:"omitempty,gte=0"`
	Status          models.TruckStatus `json:"status" validate:"omitempty,oneof=AVAILABLE PENDING_SALE SOLD"`
	Featured        bool               `json:"featured"`
	Images          []string           `json:"images" validate:"omitempty,dive,required"`
	Features        []string           `json:"features" validate:"omitempty,dive,required"`
}

// TruckPatch carries a partial update; nil fields keep their current value.
type TruckPatch struct {
	Title           *string             `json:"title"`
	Year            *int                `json:"year"`
	Make            *string             `json:"make"`
	Model           *string             `json:"model"`
	Trim            *string             `json:"trim"`
	Mileage         *int                `json:"mileage"`
	FuelType        *string             `json:"fuelType"`
	Transmission    *string             `json:"transmission"`
	Drivetrain      *string             `json:"drivetrain"`
	Color           *string             `json:"color"`
	VIN             *string             `json:"vin"`
	StockNumber     *string             `json:"stockNumber"`
	Description     *string             `json:"description"`
	ListingType     *models.ListingType `json:"listingType"`
	Price           *float64            `json:"price"`
	MonthlyPrice    *float64            `json:"monthlyPrice"`
	LeaseTermMonths *int                `json:"leaseTermMonths"`
	DownPayment     *float64            `json:"downPayment"`
	Status          *models.TruckStatus `json:"status"`
	Featured        *bool               `json:"featured"`
	Images          []string            `json:"images"`
	Features        []string            `json:"features"`
}

// Apply merges p onto in.
func (p TruckPatch) Apply(in *TruckInput) {
	setIf(&in.Title, p.Title)
	setIf(&in.Year, p.Year)
	setIf(&in.Make, p.Make)
	setIf(&in.Model, p.Model)
	setIf(&in.Trim, p.Trim)
	setIf(&in.Mileage, p.Mileage)
	setIf(&in.FuelType, p.FuelType)
	setIf(&in.Transmission, p.Transmission)
	setIf(&in.Drivetrain, p.Drivetrain)
	setIf(&in.Color, p.Color)
	setIf(&in.VIN, p.VIN)
	setIf(&in.StockNumber, p.StockNumber)
	setIf(&in.Description, p.Description)
	setIf(&in.ListingType, p.ListingType)
	setIf(&in.Price, p.Price)
	setIf(&in.Status, p.Status)
	setIf(&in.Featured, p.Featured)
	if p.MonthlyPrice != nil {
		in.MonthlyPrice = p.MonthlyPrice
	}
	if p.LeaseTermMonths != nil {
		in.LeaseTermMonths = p.LeaseTermMonths
	}
	if p.DownPayment != nil {
		in.DownPayment = p.DownPayment
	}
	if p.Images != nil {
		in.Images = p.Images
	}
	if p.Features != nil {
		in.Features = p.Features
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// InputFromTruck returns the writable state of t with Images and Features left nil.
func InputFromTruck(t *models.Truck) TruckInput {
	return TruckInput{
		Title: t.Title, Year: t.Year, Make: t.Make, Model: t.Model, Trim: t.Trim,
		Mileage: t.Mileage, FuelType: t.FuelType, Transmission: t.Transmission,
		Drivetrain: t.Drivetrain, Color: t.Color, VIN: t.VIN, StockNumber: t.StockNumber,
		Description: t.Description, ListingType: t.ListingType, Price: t.Price,
		MonthlyPrice: t.MonthlyPrice, LeaseTermMonths: t.LeaseTermMonths, DownPayment: t.DownPayment,
		Status: t.Status, Featured: t.Featured,
	}
}

// Validate checks field constraints and the listing-type price rule.
func (in *TruckInput) Validate() validation.Violations {
	v := validation.Violations{}
	validation.Struct(in, v)
	switch in.ListingType {
	case models.ListingSale:
		if _, ok := v["price"]; !ok {
			validation.PositiveFloat("price", in.Price, v)
		}
	case models.ListingLease:
		if in.MonthlyPrice == nil {
			v["monthlyPrice"] = "required"
		} else if _, ok := v["monthlyPrice"]; !ok {
			validation.PositiveFloat("monthlyPrice", *in.MonthlyPrice, v)
		}
	}
	return v
}

// Normalize applies the derived-field rules: SOLD trucks are never featured and
// lease-only fields are cleared on SALE listings. An empty status is left for
// the caller to resolve.
func (in *TruckInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Make = strings.TrimSpace(in.Make)
	in.Model = strings.TrimSpace(in.Model)
	in.VIN = strings.ToUpper(strings.TrimSpace(in.VIN))
	if in.Title == "" {
		in.Title = strings.TrimSpace(fmt.Sprintf("%d %s %s %s", in.Year, in.Make, in.Model, in.Trim))
	}
	if in.Status == models.StatusSold {
		in.Featured = false
	}
	if in.ListingType != models.ListingLease {
		in.MonthlyPrice = nil
		in.LeaseTermMonths = nil
		in.DownPayment = nil
	}
}

func (in *TruckInput) applyTo(t *models.Truck) {
	t.Title = in.Title
	t.Year = in.Year
	t.Make = in.Make
	t.Model = in.Model
	t.Trim = in.Trim
	t.Mileage = in.Mileage
	t.FuelType = in.FuelType
	t.Transmission = in.Transmission
	t.Drivetrain = in.Drivetrain
	t.Color = in.Color
	t.VIN = in.VIN
	t.StockNumber = in.StockNumber
	t.Description = in.Description
	t.ListingType = in.ListingType
	t.Price = in.Price
	t.MonthlyPrice = in.MonthlyPrice
	t.LeaseTermMonths = in.LeaseTermMonths
	t.DownPayment = in.DownPayment
	t.Status = in.Status
	t.Featured = in.Featured
}

func imageRows(truckID string, urls []string) []models.TruckImage {
	rows := make([]models.TruckImage, 0, len(urls))
	for i, u := range urls {
		rows = append(rows, models.TruckImage{TruckID: truckID, URL: u, IsPrimary: i == 0, SortOrder: i})
	}
	return rows
}

func featureRows(truckID string, names []string) []models.TruckFeature {
	rows := make([]models.TruckFeature, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		rows = append(rows, models.TruckFeature{TruckID: truckID, Name: n})
	}
	return rows
}

type TruckService struct{ DB *gorm.DB }

func NewTruckService(db *gorm.DB) *TruckService { return &TruckService{DB: db} }

func makeSlug(in *TruckInput, id string) string {
	base := slug.Make(fmt.Sprintf("%d %s %s", in.Year, in.Make, in.Model))
	return base + "-" + id[:8]
}

// Create validates in and inserts the truck with its images and features.
func (s *TruckService) Create(ctx context.Context, in TruckInput) (*models.Truck, error) {
	if in.Status == "" {
		in.Status = models.StatusAvailable
	}
	in.Normalize()
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	t := models.Truck{ID: id, Slug: makeSlug(&in, id)}
	in.applyTo(&t)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&t).Error; err != nil {
			return err
		}
		if imgs := imageRows(id, in.Images); len(imgs) > 0 {
			if err := tx.Create(&imgs).Error; err != nil {
				return err
			}
		}
		if feats := featureRows(id, in.Features); len(feats) > 0 {
			if err := tx.Create(&feats).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create truck: %w", err)
	}
	return s.Get(ctx, id)
}

func preloadChildren(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Features", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") })
}

func ensureSlices(t *models.Truck) {
	if t.Images == nil {
		t.Images = []models.TruckImage{}
	}
	if t.Features == nil {
		t.Features = []models.TruckFeature{}
	}
}

// Get fetches a truck by id or slug with images and features.
func (s *TruckService) Get(ctx context.Context, idOrSlug string) (*models.Truck, error) {
	var t models.Truck
	err := preloadChildren(s.DB.WithContext(ctx)).
		Where("id = ? OR slug = ?", idOrSlug, idOrSlug).
		First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	ensureSlices(&t)
	return &t, nil
}

// Update replaces the truck's fields. The row update (status and featured
// together) and the image/feature replacement share one transaction.
func (s *TruckService) Update(ctx context.Context, id string, in TruckInput) (*models.Truck, error) {
	in.Normalize()
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Truck
		if err := tx.Where("id = ?", id).First(&t).Error; err != nil {
			return notFound(err)
		}
		if in.Status == "" {
			in.Status = t.Status
			in.Normalize()
		}
		if !t.CanTransitionTo(in.Status) {
			return validation.Violations{"status": "invalid_transition"}
		}
		in.applyTo(&t)
		if err := tx.Omit(clause.Associations).Save(&t).Error; err != nil {
			return err
		}
		if in.Images != nil {
			if err := tx.Where("truck_id = ?", id).Delete(&models.TruckImage{}).Error; err != nil {
				return err
			}
			if imgs := imageRows(id, in.Images); len(imgs) > 0 {
				if err := tx.Create(&imgs).Error; err != nil {
					return err
				}
			}
		}
		if in.Features != nil {
			if err := tx.Where("truck_id = ?", id).Delete(&models.TruckFeature{}).Error; err != nil {
				return err
			}
			if feats := featureRows(id, in.Features); len(feats) > 0 {
				if err := tx.Create(&feats).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Patch merges p onto the stored truck and runs Update.
func (s *TruckService) Patch(ctx context.Context, id string, p TruckPatch) (*models.Truck, error) {
	var current models.Truck
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&current).Error; err != nil {
		return nil, notFound(err)
	}
	in := InputFromTruck(&current)
	p.Apply(&in)
	return s.Update(ctx, id, in)
}

// Delete removes the truck with its images, features and views, and detaches
// inquiries and financing applications that referenced it.
func (s *TruckService) Delete(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Truck
		if err := tx.Select("id").Where("id = ?", id).First(&t).Error; err != nil {
			return notFound(err)
		}
		for _, child := range []any{&models.TruckView{}, &models.TruckImage{}, &models.TruckFeature{}} {
			if err := tx.Where("truck_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Inquiry{}).Where("truck_id = ?", id).Update("truck_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.FinancingApplication{}).Where("truck_id = ?", id).Update("truck_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Truck{}, "id = ?", id).Error
	})
}

// TruckFilter holds the public list query parameters.
type TruckFilter struct {
	Query       string
	Make        string
	Model       string
	ListingType models.ListingType
	Status      models.TruckStatus
	Featured    *bool
	MinPrice    *float64
	MaxPrice    *float64
	MinYear     int
	MaxYear     int
	MaxMileage  int
	Sort        string
	Page        int
	Limit       int
}

type TruckList struct {
	Trucks     []models.Truck `json:"trucks"`
	Pagination Pagination     `json:"pagination"`
}

const effectivePriceSQL = "(CASE WHEN listing_type = 'LEASE' THEN COALESCE(monthly_price, 0) ELSE price END)"

var truckSorts = map[string]string{
	"newest":       "created_at DESC",
	"oldest":       "created_at ASC",
	"price_asc":    effectivePriceSQL + " ASC",
	"price_desc":   effectivePriceSQL + " DESC",
	"year_desc":    "year DESC",
	"year_asc":     "year ASC",
	"mileage_asc":  "mileage ASC",
	"mileage_desc": "mileage DESC",
}

func applyTruckFilter(q *gorm.DB, f TruckFilter) *gorm.DB {
	if s := strings.ToLower(strings.TrimSpace(f.Query)); s != "" {
		like := "%" + s + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(make) LIKE ? OR LOWER(model) LIKE ? OR LOWER(stock_number) LIKE ? OR LOWER(vin) LIKE ?",
			like, like, like, like, like)
	}
	if f.Make != "" {
		q = q.Where("LOWER(make) = ?", strings.ToLower(f.Make))
	}
	if f.Model != "" {
		q = q.Where("LOWER(model) LIKE ?", "%"+strings.ToLower(f.Model)+"%")
	}
	if f.ListingType != "" {
		q = q.Where("listing_type = ?", f.ListingType)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Featured != nil {
		q = q.Where("featured = ?", *f.Featured)
	}
	if f.MinPrice != nil {
		q = q.Where(effectivePriceSQL+" >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where(effectivePriceSQL+" <= ?", *f.MaxPrice)
	}
	if f.MinYear > 0 {
		q = q.Where("year >= ?", f.MinYear)
	}
	if f.MaxYear > 0 {
		q = q.Where("year <= ?", f.MaxYear)
	}
	if f.MaxMileage > 0 {
		q = q.Where("mileage <= ?", f.MaxMileage)
	}
	return q
}

// List returns one page of trucks matching f.
func (s *TruckService) List(ctx context.Context, f TruckFilter) (*TruckList, error) {
	page, limit := normalizePage(f.Page, f.Limit)
	order, ok := truckSorts[f.Sort]
	if !ok {
		order = truckSorts["newest"]
	}

	var total int64
	if err := applyTruckFilter(s.DB.WithContext(ctx).Model(&models.Truck{}), f).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count trucks: %w", err)
	}
	trucks := []models.Truck{}
	err := applyTruckFilter(preloadChildren(s.DB.WithContext(ctx)), f).
		Order(order).Order("id ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&trucks).Error
	if err != nil {
		return nil, fmt.Errorf("list trucks: %w", err)
	}
	for i := range trucks {
		ensureSlices(&trucks[i])
	}
	return &TruckList{Trucks: trucks, Pagination: newPagination(page, limit, total)}, nil
}

// summaries loads the short form of each truck in ids, keyed by id.
func (s *TruckService) summaries(ctx context.Context, ids []string) (map[string]*models.TruckSummary, error) {
	out := map[string]*models.TruckSummary{}
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.TruckSummary
	err := s.DB.WithContext(ctx).Model(&models.Truck{}).
		Select("id, slug, title, year, make, model").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// Exists reports whether a truck with id exists.
func (s *TruckService) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Truck{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByKey looks a truck up by VIN, falling back to stock number. Either may be empty.
func (s *TruckService) FindByKey(ctx context.Context, vin, stock string) (*models.Truck, error) {
	vin = strings.ToUpper(strings.TrimSpace(vin))
	stock = strings.TrimSpace(stock)
	for _, key := range []struct{ col, val string }{{"vin", vin}, {"stock_number", stock}} {
		if key.val == "" {
			continue
		}
		var t models.Truck
		err := s.DB.WithContext(ctx).Where(key.col+" = ?", key.val).First(&t).Error
		if err == nil {
			return &t, nil
		}
		if err = notFound(err); !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}
