package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Truck{}, &models.TruckImage{}, &models.TruckFeature{},
		&models.TruckView{}, &models.Inquiry{}, &models.FinancingApplication{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func f64(v float64) *float64 { return &v }

func saleInput() TruckInput {
	return TruckInput{
		Year: 2021, Make: "Ford", Model: "F-150", Trim: "XLT", Mileage: 32000,
		ListingType: models.ListingSale, Price: 42500,
	}
}

func mustCreateTruck(t *testing.T, svc *TruckService, in TruckInput) *models.Truck {
	t.Helper()
	tr, err := svc.Create(ctxBG, in)
	if err != nil {
		t.Fatalf("create truck: %v", err)
	}
	return tr
}

// fixedClock returns a settable clock.
type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time          { return c.t }
func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
