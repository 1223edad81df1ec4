package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/models"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/validation"
)

var ctxBG = context.Background()

func TestCreateTruckPriceRules(t *testing.T) {
	svc := NewTruckService(setupTestDB(t))

	sale := saleInput()
	sale.Price = 0
	_, err := svc.Create(ctxBG, sale)
	v, ok := validation.As(err)
	require.True(t, ok, "expected violations, got %v", err)
	assert.Equal(t, "must_be_positive", v["price"])

	lease := saleInput()
	lease.ListingType = models.ListingLease
	lease.MonthlyPrice = f64(0)
	_, err = svc.Create(ctxBG, lease)
	v, ok = validation.As(err)
	require.True(t, ok)
	assert.Equal(t, "must_be_positive", v["monthlyPrice"])

	lease.MonthlyPrice = nil
	_, err = svc.Create(ctxBG, lease)
	v, ok = validation.As(err)
	require.True(t, ok)
	assert.Equal(t, "required", v["monthlyPrice"])

	lease.MonthlyPrice = f64(500)
	lease.Price = 0
	tr, err := svc.Create(ctxBG, lease)
	require.NoError(t, err)
	assert.Equal(t, models.ListingLease, tr.ListingType)
	require.NotNil(t, tr.MonthlyPrice)
	assert.Equal(t, 500.0, *tr.MonthlyPrice)
}

func TestCreateTruckDefaults(t *testing.T) {
	svc := NewTruckService(setupTestDB(t))
	in := saleInput()
	in.MonthlyPrice = f64(999)
	in.Images = []string{"front.jpg", "side.jpg"}
	in.Features = []string{"Tow package", " ", "Tow package", "Bed liner"}

	tr := mustCreateTruck(t, svc, in)

	assert.Equal(t, models.StatusAvailable, tr.Status)
	assert.Equal(t, "2021 Ford F-150 XLT", tr.Title)
	assert.True(t, strings.HasPrefix(tr.Slug, "2021-ford-f-150-"), tr.Slug)
	assert.Nil(t, tr.MonthlyPrice, "lease fields are cleared on SALE listings")
	require.Len(t, tr.Images, 2)
	assert.Equal(t, "front.jpg", tr.Images[0].URL)
	assert.True(t, tr.Images[0].IsPrimary)
	assert.False(t, tr.Images[1].IsPrimary)
	assert.Len(t, tr.Features, 2)

	bySlug, err := svc.Get(ctxBG, tr.Slug)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, bySlug.ID)
}

func TestCreateSoldTruckIsNotFeatured(t *testing.T) {
	svc := NewTruckService(setupTestDB(t))
	in := saleInput()
	in.Status = models.StatusSold
	in.Featured = true
	tr := mustCreateTruck(t, svc, in)
	assert.False(t, tr.Featured)
}

func TestUpdateToSoldClearsFeatured(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTruckService(db)
	in := saleInput()
	in.Featured = true
	tr := mustCreateTruck(t, svc, in)
	require.True(t, tr.Featured)

	sold := models.StatusSold
	got, err := svc.Patch(ctxBG, tr.ID, TruckPatch{Status: &sold})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSold, got.Status)
	assert.False(t, got.Featured)

	var stored models.Truck
	require.NoError(t, db.First(&stored, "id = ?", tr.ID).Error)
	assert.False(t, stored.Featured)

	featured := true
	got, err = svc.Patch(ctxBG, tr.ID, TruckPatch{Featured: &featured})
	require.NoError(t, err)
	assert.False(t, got.Featured, "a SOLD truck cannot be featured")
}

func TestSoldIsTerminal(t *testing.T) {
	svc := NewTruckService(setupTestDB(t))
	in := saleInput()
	in.Status = models.StatusSold
	tr := mustCreateTruck(t, svc, in)

	avail := models.StatusAvailable
	_, err := svc.Patch(ctxBG, tr.ID, TruckPatch{Status: &avail})
	v, ok := validation.As(err)
	require.True(t, ok, "expected violations, got %v", err)
	assert.Equal(t, "invalid_transition", v["status"])

	// PUT without status keeps the current one.
	full := saleInput()
	full.Mileage = 33000
	got, err := svc.Update(ctxBG, tr.ID, full)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSold, got.Status)
	assert.Equal(t, 33000, got.Mileage)
}

func TestPendingSaleRoundTrip(t *testing.T) {
	svc := NewTruckService(setupTestDB(t))
	tr := mustCreateTruck(t, svc, saleInput())

	pending := models.StatusPendingSale
	got, err := svc.Patch(ctxBG, tr.ID, TruckPatch{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingSale, got.Status)

	avail := models.StatusAvailable
	got, err = svc.Patch(ctxBG, tr.ID, TruckPatch{Status: &avail})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, got.Status)
}

func TestUpdateReplacesImages(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTruckService(db)
	in := saleInput()
	in.Images = []string{"old1.jpg", "old2.jpg", "old3.jpg"}
	in.Features = []string{"Sunroof"}
	tr := mustCreateTruck(t, svc, in)

	got, err := svc.Patch(ctxBG, tr.ID, TruckPatch{Images: []string{"a.jpg", "b.jpg"}})
	require.NoError(t, err)

	var imgs []models.TruckImage
	require.NoError(t, db.Where("truck_id = ?", tr.ID).Order("sort_order").Find(&imgs).Error)
	require.Len(t, imgs, 2)
	assert.Equal(t, "a.jpg", imgs[0].URL)
	assert.True(t, imgs[0].IsPrimary)
	assert.Equal(t, 0, imgs[0].SortOrder)
	assert.Equal(t, "b.jpg", imgs[1].URL)
	assert.False(t, imgs[1].IsPrimary)

	assert.Len(t, got.Features, 1, "features untouched when omitted")
}

func TestUpdateRollsBackWhenChildInsertFails(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTruckService(db)
	in := saleInput()
	in.Images = []string{"old1.jpg", "old2.jpg", "old3.jpg"}
	in.Features = []string{"Sunroof"}
	tr := mustCreateTruck(t, svc, in)

	err := db.Callback().Create().Before("gorm:create").Register("test:fail_features", func(tx *gorm.DB) {
		if tx.Statement.Table == "truck_features" {
			tx.AddError(errors.New("boom"))
		}
	})
	require.NoError(t, err)

	_, err = svc.Patch(ctxBG, tr.ID, TruckPatch{
		Title:    strPtr("Renamed"),
		Images:   []string{"a.jpg"},
		Features: []string{"x"},
	})
	require.ErrorContains(t, err, "boom")

	var imgs []models.TruckImage
	require.NoError(t, db.Where("truck_id = ?", tr.ID).Order("sort_order").Find(&imgs).Error)
	require.Len(t, imgs, 3)
	assert.Equal(t, "old1.jpg", imgs[0].URL)

	var feats []models.TruckFeature
	require.NoError(t, db.Where("truck_id = ?", tr.ID).Find(&feats).Error)
	require.Len(t, feats, 1)
	assert.Equal(t, "Sunroof", feats[0].Name)

	var stored models.Truck
	require.NoError(t, db.Where("id = ?", tr.ID).First(&stored).Error)
	assert.Equal(t, tr.Title, stored.Title)
}

func TestUpdateNotFound(t *testing.T) {
	svc := NewTruckService(setupTestDB(t))
	_, err := svc.Update(ctxBG, "missing", saleInput())
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	_, err = svc.Patch(ctxBG, "missing", TruckPatch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTruckCascades(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTruckService(db)
	in := saleInput()
	in.Images = []string{"1.jpg", "2.jpg", "3.jpg"}
	in.Features = []string{"4x4"}
	tr := mustCreateTruck(t, svc, in)

	for i := 0; i < 5; i++ {
		require.NoError(t, db.Create(&models.TruckView{TruckID: tr.ID, Timestamp: fixedNow, IPHash: HashIP("10.0.0.1", "s")}).Error)
	}
	require.NoError(t, db.Create(&models.Inquiry{Name: "A", Email: "a@b.co", Message: "hi", TruckID: &tr.ID}).Error)
	require.NoError(t, db.Create(&models.FinancingApplication{FirstName: "A", LastName: "B", Email: "a@b.co", Phone: "1", TruckID: &tr.ID}).Error)

	require.NoError(t, svc.Delete(ctxBG, tr.ID))

	for _, m := range []any{&models.TruckImage{}, &models.TruckFeature{}, &models.TruckView{}, &models.Inquiry{}, &models.FinancingApplication{}} {
		var n int64
		require.NoError(t, db.Model(m).Where("truck_id = ?", tr.ID).Count(&n).Error)
		assert.Zero(t, n, "%T still references the truck", m)
	}
	var inquiries int64
	db.Model(&models.Inquiry{}).Count(&inquiries)
	assert.Equal(t, int64(1), inquiries, "inquiry is kept with a null truck")

	_, err := svc.Get(ctxBG, tr.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctxBG, tr.ID), ErrNotFound)
}

func TestListFilters(t *testing.T) {
	svc := NewTruckService(setupTestDB(t))

	a := saleInput()
	a.Featured = true
	mustCreateTruck(t, svc, a)

	b := saleInput()
	b.Make, b.Model, b.Year, b.Price, b.Mileage = "Kenworth", "T680", 2019, 98000, 410000
	mustCreateTruck(t, svc, b)

	c := saleInput()
	c.Make, c.Model, c.Year = "Freightliner", "Cascadia", 2022
	c.ListingType, c.Price, c.MonthlyPrice = models.ListingLease, 0, f64(2100)
	mustCreateTruck(t, svc, c)

	all, err := svc.List(ctxBG, TruckFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Pagination.Total)
	assert.Equal(t, 1, all.Pagination.TotalPages)

	res, err := svc.List(ctxBG, TruckFilter{Make: "kenworth"})
	require.NoError(t, err)
	require.Len(t, res.Trucks, 1)
	assert.Equal(t, "T680", res.Trucks[0].Model)

	res, err = svc.List(ctxBG, TruckFilter{Query: "cascad"})
	require.NoError(t, err)
	require.Len(t, res.Trucks, 1)

	res, err = svc.List(ctxBG, TruckFilter{ListingType: models.ListingLease, MaxPrice: f64(2500)})
	require.NoError(t, err)
	require.Len(t, res.Trucks, 1, "lease price filter uses monthly price")

	yes := true
	res, err = svc.List(ctxBG, TruckFilter{Featured: &yes})
	require.NoError(t, err)
	assert.Len(t, res.Trucks, 1)

	res, err = svc.List(ctxBG, TruckFilter{MinYear: 2020, MaxMileage: 100000})
	require.NoError(t, err)
	assert.Len(t, res.Trucks, 2)

	res, err = svc.List(ctxBG, TruckFilter{Sort: "year_asc", Limit: 2, Page: 2})
	require.NoError(t, err)
	require.Len(t, res.Trucks, 1)
	assert.Equal(t, 2022, res.Trucks[0].Year)
	assert.Equal(t, 2, res.Pagination.TotalPages)
}
