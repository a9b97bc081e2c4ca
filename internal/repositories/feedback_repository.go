package repositories

import (
	"errors"
	"strings"
	"time"

	"reviewflow/internal/models"

	"gorm.io/gorm"
)

var (
	ErrFeedbackNotFound = errors.New("feedback not found")
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
	ErrMissingTenant    = errors.New("feedback must reference a tenant")
)

// InboxFilter selects one tenant inbox:
// client - by client slug, seller - seller-direct feedback only, platform - legacy smart-URL feedback.
type InboxFilter struct {
	Kind models.TenantKind
	Key  string
}

func (f InboxFilter) apply(q *gorm.DB) *gorm.DB {
	switch f.Kind {
	case models.TenantKindClient:
		return q.Where("client_slug = ?", f.Key)
	case models.TenantKindSeller:
		return q.Where("seller_id = ? AND client_slug = ?", f.Key, "")
	case models.TenantKindPlatform:
		return q.Where("tenant_kind = ?", models.TenantKindPlatform)
	default:
		// unknown inbox matches nothing
		return q.Where("1 = 0")
	}
}

// RatingStats - статистика оценок по одному инбоксу
type RatingStats struct {
	AverageRating float64       `json:"averageRating"`
	TotalFeedback int64         `json:"totalFeedback"`
	RatingCounts  map[int]int64 `json:"ratingCounts"` // 1-5 stars count
	RecentCount   int64         `json:"recentCount"`  // Last 30 days
}

// InboxCount is one row of the negative-feedback digest.
type InboxCount struct {
	TenantKind models.TenantKind
	TenantKey  string
	SellerID   string
	Count      int64
	Average    float64
}

type FeedbackRepository interface {
	Create(db *gorm.DB, feedback *models.Feedback) error
	FindByID(db *gorm.DB, id string) (*models.Feedback, error)
	List(db *gorm.DB, filter InboxFilter, page, pageSize int) ([]models.Feedback, int64, error)
	Search(db *gorm.DB, filter InboxFilter, query string, limit int) ([]models.Feedback, error)
	FindByIDs(db *gorm.DB, filter InboxFilter, ids []string) ([]models.Feedback, error)
	FindByClientSlug(db *gorm.DB, slug string) ([]models.Feedback, error)
	FindBySeller(db *gorm.DB, sellerID string) ([]models.Feedback, error)
	Delete(db *gorm.DB, id string) error
	DeleteByClientSlug(db *gorm.DB, slug string) error
	RenameClientSlug(db *gorm.DB, oldSlug, newSlug string) error
	DeleteBySeller(db *gorm.DB, sellerID string) error
	Stats(db *gorm.DB, filter InboxFilter) (*RatingStats, error)
	CountSince(db *gorm.DB, since time.Time, maxRating int) ([]InboxCount, error)
	Validate(feedback *models.Feedback) error
}

type FeedbackRepositoryImpl struct{}

func NewFeedbackRepository() FeedbackRepository {
	return &FeedbackRepositoryImpl{}
}

// Validate enforces the record invariants before anything reaches the database.
func (r *FeedbackRepositoryImpl) Validate(feedback *models.Feedback) error {
	if feedback.Rating < 1 || feedback.Rating > 5 {
		return ErrInvalidRating
	}
	if feedback.TenantKey == "" {
		return ErrMissingTenant
	}
	switch feedback.TenantKind {
	case models.TenantKindClient:
		if feedback.ClientSlug != feedback.TenantKey {
			return ErrMissingTenant
		}
	case models.TenantKindSeller:
		if feedback.SellerID != feedback.TenantKey || feedback.ClientSlug != "" {
			return ErrMissingTenant
		}
	case models.TenantKindPlatform:
		if feedback.TenantKey != models.PlatformTenantKey {
			return ErrMissingTenant
		}
	default:
		return ErrMissingTenant
	}
	return nil
}

func (r *FeedbackRepositoryImpl) Create(db *gorm.DB, feedback *models.Feedback) error {
	if err := r.Validate(feedback); err != nil {
		return err
	}
	return db.Create(feedback).Error
}

func (r *FeedbackRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Feedback, error) {
	var feedback models.Feedback
	if err := db.Where("id = ?", id).First(&feedback).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeedbackNotFound
		}
		return nil, err
	}
	return &feedback, nil
}

// List returns the inbox newest-first.
func (r *FeedbackRepositoryImpl) List(db *gorm.DB, filter InboxFilter, page, pageSize int) ([]models.Feedback, int64, error) {
	var total int64
	if err := filter.apply(db.Model(&models.Feedback{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Feedback
	offset := (page - 1) * pageSize
	err := filter.apply(db.Model(&models.Feedback{})).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Search is the SQL fallback used when no search index is configured.
func (r *FeedbackRepositoryImpl) Search(db *gorm.DB, filter InboxFilter, query string, limit int) ([]models.Feedback, error) {
	var items []models.Feedback
	pattern := "%" + strings.ToLower(escapeLike(query)) + "%"
	err := filter.apply(db.Model(&models.Feedback{})).
		Where("LOWER(comment) LIKE ? ESCAPE '!'", pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// FindByIDs loads index hits, still scoped to the inbox.
func (r *FeedbackRepositoryImpl) FindByIDs(db *gorm.DB, filter InboxFilter, ids []string) ([]models.Feedback, error) {
	if len(ids) == 0 {
		return []models.Feedback{}, nil
	}
	var items []models.Feedback
	err := filter.apply(db.Model(&models.Feedback{})).
		Where("id IN ?", ids).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// FindByClientSlug loads every record of a client inbox.
func (r *FeedbackRepositoryImpl) FindByClientSlug(db *gorm.DB, slug string) ([]models.Feedback, error) {
	var items []models.Feedback
	err := db.Where("tenant_kind = ? AND client_slug = ?", models.TenantKindClient, slug).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// FindBySeller matches what DeleteBySeller removes.
func (r *FeedbackRepositoryImpl) FindBySeller(db *gorm.DB, sellerID string) ([]models.Feedback, error) {
	var items []models.Feedback
	err := db.Where("seller_id = ? AND tenant_kind <> ?", sellerID, models.TenantKindPlatform).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *FeedbackRepositoryImpl) Delete(db *gorm.DB, id string) error {
	result := db.Where("id = ?", id).Delete(&models.Feedback{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFeedbackNotFound
	}
	return nil
}

func (r *FeedbackRepositoryImpl) DeleteByClientSlug(db *gorm.DB, slug string) error {
	return db.Where("client_slug = ?", slug).Delete(&models.Feedback{}).Error
}

// RenameClientSlug moves a client inbox along with its slug.
func (r *FeedbackRepositoryImpl) RenameClientSlug(db *gorm.DB, oldSlug, newSlug string) error {
	return db.Model(&models.Feedback{}).
		Where("tenant_kind = ? AND client_slug = ?", models.TenantKindClient, oldSlug).
		Updates(map[string]any{"client_slug": newSlug, "tenant_key": newSlug}).Error
}

// DeleteBySeller removes seller-direct and client feedback of one seller.
func (r *FeedbackRepositoryImpl) DeleteBySeller(db *gorm.DB, sellerID string) error {
	return db.Where("seller_id = ? AND tenant_kind <> ?", sellerID, models.TenantKindPlatform).
		Delete(&models.Feedback{}).Error
}

func (r *FeedbackRepositoryImpl) Stats(db *gorm.DB, filter InboxFilter) (*RatingStats, error) {
	stats := &RatingStats{RatingCounts: make(map[int]int64)}

	var rows []struct {
		Rating int
		Count  int64
	}
	err := filter.apply(db.Model(&models.Feedback{})).
		Select("rating, COUNT(*) AS count").
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	var sum int64
	for _, row := range rows {
		stats.RatingCounts[row.Rating] = row.Count
		stats.TotalFeedback += row.Count
		sum += int64(row.Rating) * row.Count
	}
	if stats.TotalFeedback > 0 {
		stats.AverageRating = float64(sum) / float64(stats.TotalFeedback)
	}

	monthAgo := time.Now().AddDate(0, 0, -30)
	if err := filter.apply(db.Model(&models.Feedback{})).
		Where("created_at >= ?", monthAgo).
		Count(&stats.RecentCount).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// CountSince groups feedback rated at most maxRating per inbox.
func (r *FeedbackRepositoryImpl) CountSince(db *gorm.DB, since time.Time, maxRating int) ([]InboxCount, error) {
	var rows []InboxCount
	err := db.Model(&models.Feedback{}).
		Select("tenant_kind, tenant_key, seller_id, COUNT(*) AS count, AVG(rating) AS average").
		Where("created_at >= ? AND rating <= ?", since, maxRating).
		Group("tenant_kind, tenant_key, seller_id").
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return replacer.Replace(s)
}
