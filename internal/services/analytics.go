package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/models"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/validation"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"

	leaderboardSize = 10
	dayLayout       = "2006-01-02"
)

// ParsePeriod defaults an empty value to week and rejects anything unknown.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return PeriodWeek, nil
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodAll:
		return p, nil
	}
	return "", validation.Violations{"period": "invalid_value"}
}

// StartDate is the inclusive lower bound of the reporting window.
func (p Period) StartDate(now time.Time) time.Time {
	switch p {
	case PeriodDay:
		return now.AddDate(0, 0, -1)
	case PeriodMonth:
		return now.AddDate(0, -1, 0)
	case PeriodAll:
		return time.Unix(0, 0).UTC()
	default:
		return now.AddDate(0, 0, -7)
	}
}

// Buckets is the number of daily histogram entries; all is capped at 90.
func (p Period) Buckets() int {
	switch p {
	case PeriodDay:
		return 1
	case PeriodMonth:
		return 30
	case PeriodAll:
		return 90
	default:
		return 7
	}
}

// DayCount serializes as ["YYYY-MM-DD", count].
type DayCount struct {
	Date  string
	Count int64
}

func (d DayCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{d.Date, d.Count})
}

func (d *DayCount) UnmarshalJSON(b []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &d.Date); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &d.Count)
}

type TopTruck struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Year  int    `json:"year"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Views int64  `json:"views"`
}

type SoldTruck struct {
	ID          string             `json:"id"`
	Slug        string             `json:"slug"`
	Title       string             `json:"title"`
	Year        int                `json:"year"`
	Make        string             `json:"make"`
	Model       string             `json:"model"`
	ListingType models.ListingType `json:"listingType"`
	SalePrice   float64            `json:"salePrice"`
	SoldDate    time.Time          `json:"soldDate"`
}

type Report struct {
	Period          Period      `json:"period"`
	TotalViews      int64       `json:"totalViews"`
	TopViewedTrucks []TopTruck  `json:"topViewedTrucks"`
	SoldTrucks      []SoldTruck `json:"soldTrucks"`
	ViewsByDay      []DayCount  `json:"viewsByDay"`
}

type AnalyticsService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{DB: db, Now: time.Now}
}

// Report builds the dashboard analytics for period.
func (s *AnalyticsService) Report(ctx context.Context, period Period) (*Report, error) {
	now := s.Now().UTC()
	start := period.StartDate(now)
	db := s.DB.WithContext(ctx)

	rep := &Report{Period: period, TopViewedTrucks: []TopTruck{}, SoldTrucks: []SoldTruck{}}

	if err := db.Model(&models.TruckView{}).Where("viewed_at >= ?", start).Count(&rep.TotalViews).Error; err != nil {
		return nil, fmt.Errorf("count views: %w", err)
	}

	err := db.Table("truck_views AS v").
		Select("t.id, t.slug, t.title, t.year, t.make, t.model, COUNT(v.id) AS views").
		Joins("JOIN trucks AS t ON t.id = v.truck_id").
		Where("v.viewed_at >= ?", start).
		Group("t.id, t.slug, t.title, t.year, t.make, t.model").
		Order("views DESC, t.id ASC").
		Limit(leaderboardSize).
		Scan(&rep.TopViewedTrucks).Error
	if err != nil {
		return nil, fmt.Errorf("top viewed: %w", err)
	}
	if rep.TopViewedTrucks == nil {
		rep.TopViewedTrucks = []TopTruck{}
	}

	// Independent of period.
	var sold []models.Truck
	err = db.Where("status = ?", models.StatusSold).
		Order("updated_at DESC").
		Limit(leaderboardSize).
		Find(&sold).Error
	if err != nil {
		return nil, fmt.Errorf("sold trucks: %w", err)
	}
	for i := range sold {
		t := &sold[i]
		rep.SoldTrucks = append(rep.SoldTrucks, SoldTruck{
			ID: t.ID, Slug: t.Slug, Title: t.Title, Year: t.Year, Make: t.Make, Model: t.Model,
			ListingType: t.ListingType, SalePrice: t.EffectivePrice(), SoldDate: t.UpdatedAt,
		})
	}

	rep.ViewsByDay, err = s.viewsByDay(db, now, period.Buckets())
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// dayExpr renders viewed_at as a UTC YYYY-MM-DD string for the active dialect.
func dayExpr(db *gorm.DB) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "to_char(viewed_at AT TIME ZONE 'UTC', 'YYYY-MM-DD')"
	case "sqlite":
		return "strftime('%Y-%m-%d', viewed_at)"
	default:
		return "DATE_FORMAT(viewed_at, '%Y-%m-%d')"
	}
}

// viewsByDay counts views per UTC day for the n days ending today, oldest
// first, in a single grouped query. Days without views are zero-filled.
func (s *AnalyticsService) viewsByDay(db *gorm.DB, now time.Time, n int) ([]DayCount, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	first := today.AddDate(0, 0, -(n - 1))
	end := today.AddDate(0, 0, 1)

	var rows []struct {
		Bucket string
		Count  int64
	}
	expr := dayExpr(db)
	err := db.Model(&models.TruckView{}).
		Select(expr+" AS bucket, COUNT(*) AS count").
		Where("viewed_at >= ? AND viewed_at < ?", first, end).
		Group(expr).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("views by day: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Bucket] = r.Count
	}

	out := make([]DayCount, 0, n)
	for i := 0; i < n; i++ {
		d := first.AddDate(0, 0, i).Format(dayLayout)
		out = append(out, DayCount{Date: d, Count: counts[d]})
	}
	return out, nil
}
