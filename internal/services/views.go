package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/models"
)

// DedupWindow is how long a visitor's view of a truck suppresses further views.
const DedupWindow = 30 * time.Minute

// View outcomes reported to a ViewObserver.
const (
	ViewRecorded  = "recorded"
	ViewDuplicate = "duplicate"
	ViewSkipped   = "skipped_admin"
	ViewFailed    = "error"
)

// Visit is the request context of a truck detail fetch.
type Visit struct {
	TruckID   string
	Referer   string
	ClientIP  string
	SessionID string
}

// ViewObserver is notified of every recording decision.
type ViewObserver interface {
	ObserveView(outcome string)
}

// ViewRecorder stores at most one TruckView per truck and visitor per window.
type ViewRecorder struct {
	DB       *gorm.DB
	Salt     string
	Window   time.Duration
	Now      func() time.Time
	Observer ViewObserver
}

func NewViewRecorder(db *gorm.DB, salt string) *ViewRecorder {
	return &ViewRecorder{DB: db, Salt: salt, Window: DedupWindow, Now: time.Now}
}

// HashIP returns the hex SHA-256 of ip+salt. An empty ip hashes as "unknown".
func HashIP(ip, salt string) string {
	if ip == "" {
		ip = "unknown"
	}
	sum := sha256.Sum256([]byte(ip + salt))
	return hex.EncodeToString(sum[:])
}

// IsAdminReferer reports whether the fetch came from the back office.
func IsAdminReferer(referer string) bool {
	return strings.Contains(referer, "/admin/")
}

// Record stores a view unless it came from the admin area or duplicates a
// recent view by the same session or IP hash. Failures are logged, never returned.
// The check and insert are not atomic; concurrent fetches may both insert.
func (r *ViewRecorder) Record(ctx context.Context, v Visit) string {
	outcome := r.record(ctx, v)
	if r.Observer != nil {
		r.Observer.ObserveView(outcome)
	}
	return outcome
}

func (r *ViewRecorder) record(ctx context.Context, v Visit) string {
	if IsAdminReferer(v.Referer) {
		return ViewSkipped
	}
	now := r.Now().UTC()
	ipHash := HashIP(v.ClientIP, r.Salt)
	windowStart := now.Add(-r.Window)

	q := r.DB.WithContext(ctx).Model(&models.TruckView{}).
		Where("truck_id = ? AND viewed_at >= ?", v.TruckID, windowStart)
	if v.SessionID != "" {
		q = q.Where("session_id = ? OR ip_hash = ?", v.SessionID, ipHash)
	} else {
		q = q.Where("ip_hash = ?", ipHash)
	}
	var existing int64
	if err := q.Count(&existing).Error; err != nil {
		log.WithError(err).WithField("truck_id", v.TruckID).Error("view dedup lookup failed")
		return ViewFailed
	}
	if existing > 0 {
		return ViewDuplicate
	}

	view := models.TruckView{TruckID: v.TruckID, Timestamp: now, IPHash: ipHash, SessionID: strPtr(v.SessionID)}
	if err := r.DB.WithContext(ctx).Create(&view).Error; err != nil {
		log.WithError(err).WithField("truck_id", v.TruckID).Error("view insert failed")
		return ViewFailed
	}
	return ViewRecorded
}
