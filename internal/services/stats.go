package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/models"
)

// DashboardStats backs the admin dashboard counters.
type DashboardStats struct {
	TotalTrucks       int64 `json:"totalTrucks"`
	AvailableTrucks   int64 `json:"availableTrucks"`
	PendingSaleTrucks int64 `json:"pendingSaleTrucks"`
	SoldTrucks        int64 `json:"soldTrucks"`
	FeaturedTrucks    int64 `json:"featuredTrucks"`
	TotalInquiries    int64 `json:"totalInquiries"`
	NewInquiries      int64 `json:"newInquiries"`
	PendingFinancing  int64 `json:"pendingFinancing"`
	ViewsLast7Days    int64 `json:"viewsLast7Days"`
}

type StatsService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewStatsService(db *gorm.DB) *StatsService { return &StatsService{DB: db, Now: time.Now} }

func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	db := s.DB.WithContext(ctx)
	var st DashboardStats

	var byStatus []struct {
		Status models.TruckStatus
		N      int64
	}
	if err := db.Model(&models.Truck{}).Select("status, COUNT(*) AS n").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		st.TotalTrucks += row.N
		switch row.Status {
		case models.StatusAvailable:
			st.AvailableTrucks = row.N
		case models.StatusPendingSale:
			st.PendingSaleTrucks = row.N
		case models.StatusSold:
			st.SoldTrucks = row.N
		}
	}

	counts := []struct {
		dst   *int64
		model any
		where string
		arg   any
	}{
		{&st.FeaturedTrucks, &models.Truck{}, "featured = ?", true},
		{&st.TotalInquiries, &models.Inquiry{}, "", nil},
		{&st.NewInquiries, &models.Inquiry{}, "status = ?", models.InquiryNew},
		{&st.PendingFinancing, &models.FinancingApplication{}, "status = ?", models.FinancingPending},
		{&st.ViewsLast7Days, &models.TruckView{}, "viewed_at >= ?", s.Now().UTC().AddDate(0, 0, -7)},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, c.arg)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}
	return &st, nil
}
