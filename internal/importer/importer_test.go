package importer

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/db"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/models"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/services"
)

const feed = `Stock,VIN,Year,Make,Model,Trim,Odometer,Price,Listing Type,Monthly Price,Images,Features
T100,1FTFW1E50MFA00001,2021,Ford,F-150,XLT,"32,000","$42,500.00",SALE,,/uploads/a.jpg|/uploads/b.jpg,Tow package|Bed liner
T101,,2022,Ram,1500,Laramie,12000,0,lease,$899,,
T102,,twenty,GMC,Sierra,,0,1,SALE,,,
`

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dbi, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(dbi))
	return dbi
}

func TestParse(t *testing.T) {
	records, rowErrs, err := Parse(strings.NewReader(feed))
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Len(t, rowErrs, 1)
	assert.Equal(t, 4, rowErrs[0].Line)
	assert.Contains(t, rowErrs[0].Error(), "Year")

	first := records[0].Input
	assert.Equal(t, 2, records[0].Line)
	assert.Equal(t, "T100", first.StockNumber)
	assert.Equal(t, 32000, first.Mileage)
	assert.Equal(t, 42500.0, first.Price)
	assert.Equal(t, models.ListingSale, first.ListingType)
	assert.Equal(t, []string{"/uploads/a.jpg", "/uploads/b.jpg"}, first.Images)
	assert.Equal(t, []string{"Tow package", "Bed liner"}, first.Features)

	lease := records[1].Input
	assert.Equal(t, models.ListingLease, lease.ListingType)
	require.NotNil(t, lease.MonthlyPrice)
	assert.Equal(t, 899.0, *lease.MonthlyPrice)
	assert.Nil(t, lease.Images, "empty cells leave images untouched")
}

func TestParseUnknownHeading(t *testing.T) {
	_, _, err := Parse(strings.NewReader("Stock,Doors\nT1,4\n"))
	assert.ErrorContains(t, err, "Doors")
}

func TestImportUpsertsByKey(t *testing.T) {
	dbi := setupTestDB(t)
	trucks := services.NewTruckService(dbi)
	im := New(trucks)
	ctx := context.Background()

	records, _, err := Parse(strings.NewReader(feed))
	require.NoError(t, err)

	res, err := im.Import(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Zero(t, res.Updated)
	assert.Empty(t, res.Errors)

	// Re-running the feed with a new price updates in place.
	records, _, err = Parse(strings.NewReader(strings.Replace(feed, `"$42,500.00"`, "39900", 1)))
	require.NoError(t, err)
	res, err = im.Import(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)
	assert.Zero(t, res.Created)

	var count int64
	dbi.Model(&models.Truck{}).Count(&count)
	assert.Equal(t, int64(2), count)

	tr, err := trucks.FindByKey(ctx, "1ftfw1e50mfa00001", "")
	require.NoError(t, err)
	assert.Equal(t, 39900.0, tr.Price)

	tr, err = trucks.FindByKey(ctx, "", "T101")
	require.NoError(t, err)
	assert.Equal(t, models.ListingLease, tr.ListingType)
}

func TestParseRejectsBadAmounts(t *testing.T) {
	records, rowErrs, err := Parse(strings.NewReader("Year,Make,Model,Price\n2021,Ford,F-150,-500\n2021,Ford,F-150,12abc34\n2021,Ford,F-150,\"$ 1,250.50\"\n"))
	require.NoError(t, err)
	require.Len(t, rowErrs, 2)
	assert.Equal(t, 2, rowErrs[0].Line)
	assert.Contains(t, rowErrs[0].Error(), "negative amount")
	assert.Equal(t, 3, rowErrs[1].Line)
	assert.Contains(t, rowErrs[1].Error(), "invalid amount")

	require.Len(t, records, 1)
	assert.Equal(t, 4, records[0].Line)
	assert.Equal(t, 1250.5, records[0].Input.Price)
}

func TestImportKeepsColumnsMissingFromFeed(t *testing.T) {
	dbi := setupTestDB(t)
	trucks := services.NewTruckService(dbi)
	ctx := context.Background()

	orig, err := trucks.Create(ctx, services.TruckInput{
		Year: 2020, Make: "Isuzu", Model: "NPR", StockNumber: "K1",
		ListingType: models.ListingSale, Price: 30000,
		Featured: true, Description: "Box truck with liftgate",
		Images: []string{"/uploads/k1.jpg"},
	})
	require.NoError(t, err)

	records, _, err := Parse(strings.NewReader("Stock,Price,Mileage\nK1,28500,61000\n"))
	require.NoError(t, err)
	res, err := New(trucks).Import(ctx, records)
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	assert.Equal(t, 1, res.Updated)

	got, err := trucks.Get(ctx, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, 28500.0, got.Price)
	assert.Equal(t, 61000, got.Mileage)
	assert.True(t, got.Featured)
	assert.Equal(t, "Box truck with liftgate", got.Description)
	assert.Equal(t, 2020, got.Year)
	require.Len(t, got.Images, 1, "images untouched without an images column")
}

func TestImportDryRunWritesNothing(t *testing.T) {
	dbi := setupTestDB(t)
	im := New(services.NewTruckService(dbi))
	im.DryRun = true

	records, _, err := Parse(strings.NewReader("Stock,Year,Make,Model,Listing Type,Price\nD1,2020,Isuzu,NPR,SALE,0\nD2,2020,Isuzu,NPR,SALE,15000\n"))
	require.NoError(t, err)

	res, err := im.Import(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	require.Len(t, res.Errors, 1, "zero price on a sale listing is rejected")
	assert.Equal(t, 2, res.Errors[0].Line)

	var count int64
	dbi.Model(&models.Truck{}).Count(&count)
	assert.Zero(t, count)
}
