package listings

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/petpair-backend/pkg/db"
	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	"github.com/angelmondragon/petpair-backend/pkg/pagination"
	"github.com/angelmondragon/petpair-backend/pkg/visibility"
)

// Repository persists listings and their pair requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Listing, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]models.Listing, int64, error)
	CompareAndSwap(ctx context.Context, id uuid.UUID, version int64, updates map[string]any) (bool, error)
	ExpireIfStale(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ExpireStale(ctx context.Context, now time.Time, limit int) (int64, error)
	IncrementViews(ctx context.Context, id uuid.UUID) (int64, error)
	SetBlockedByOwner(ctx context.Context, ownerID uuid.UUID, blocked bool, now time.Time) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	CreatePairRequest(ctx context.Context, request *models.PairRequest) error
	FindPairRequest(ctx context.Context, listingID, requestID uuid.UUID) (*models.PairRequest, error)
	HasPendingPairRequest(ctx context.Context, listingID, requesterID, requesterListingID uuid.UUID) (bool, error)
	ResolvePairRequest(ctx context.Context, requestID uuid.UUID, status enums.PairRequestStatus, respondedAt time.Time) (bool, error)
	ListPairRequests(ctx context.Context, listingID uuid.UUID) ([]models.PairRequest, error)
	ListSentPairRequests(ctx context.Context, requesterID uuid.UUID, params pagination.Params) ([]models.PairRequest, int64, error)
}

// ListFilter is the single query contract behind every listing read surface.
type ListFilter struct {
	Now        time.Time
	PublicOnly bool
	OwnerID    *uuid.UUID
	CityID     *uuid.UUID
	Species    *enums.Species
	Sex        *enums.PetSex
	Status     *enums.ListingStatus
	Text       string
	Page       pagination.Params
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a listings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(listing).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Preload("PairRequests", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC").Order("id ASC")
		}).
		Where("id = ?", id).
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	query := r.db.WithContext(ctx)
	if db.SupportsRowLocks(r.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var listing models.Listing
	if err := query.Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Listing, error) {
	if len(ids) == 0 {
		return []models.Listing{}, nil
	}
	var rows []models.Listing
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Listing{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Listing, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Listing{})
	if filter.PublicOnly {
		base = base.Scopes(visibility.PublicListings("listings", filter.Now))
	}
	if filter.OwnerID != nil {
		base = base.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.CityID != nil {
		base = base.Where("city_id = ?", *filter.CityID)
	}
	if filter.Species != nil {
		base = base.Where("species = ?", *filter.Species)
	}
	if filter.Sex != nil {
		base = base.Where("sex = ?", *filter.Sex)
	}
	if filter.Status != nil {
		base = base.Scopes(effectiveStatus(*filter.Status, filter.Now))
	}
	if text := strings.TrimSpace(filter.Text); text != "" {
		pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
		base = base.Where(`(LOWER(breed) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params := filter.Page.Normalize()
	var rows []models.Listing
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// effectiveStatus filters on the status a read would report: an active row
// past its expiry counts as expired even before the sweep rewrites it.
func effectiveStatus(status enums.ListingStatus, now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch status {
		case enums.ListingStatusActive:
			return db.Where("status = ? AND expires_at >= ?", enums.ListingStatusActive, now)
		case enums.ListingStatusExpired:
			return db.Where("(status = ? OR (status = ? AND expires_at < ?))",
				enums.ListingStatusExpired, enums.ListingStatusActive, now)
		default:
			return db.Where("status = ?", status)
		}
	}
}

func (r *repository) CompareAndSwap(ctx context.Context, id uuid.UUID, version int64, updates map[string]any) (bool, error) {
	values := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["version"] = gorm.Expr("version + 1")

	result := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND version = ?", id, version).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ExpireIfStale(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status = ? AND expires_at < ?", id, enums.ListingStatusActive, now).
		Updates(map[string]any{
			"status":     enums.ListingStatusExpired,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ExpireStale(ctx context.Context, now time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 500
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("status = ? AND expires_at < ?", enums.ListingStatusActive, now).
		Order("expires_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id IN ? AND status = ? AND expires_at < ?", ids, enums.ListingStatusActive, now).
		Updates(map[string]any{
			"status":     enums.ListingStatusExpired,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) IncrementViews(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var views int64
	if err := r.db.WithContext(ctx).Model(&models.Listing{}).Where("id = ?", id).Pluck("views", &views).Error; err != nil {
		return 0, err
	}
	return views, nil
}

func (r *repository) SetBlockedByOwner(ctx context.Context, ownerID uuid.UUID, blocked bool, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("owner_id = ?", ownerID).
		Updates(map[string]any{
			"is_blocked": blocked,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	// Requests this listing received go with it. Requests it offered to
	// other listings stay in their history.
	if err := r.db.WithContext(ctx).
		Where("listing_id = ?", id).
		Delete(&models.PairRequest{}).Error; err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Listing{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) CreatePairRequest(ctx context.Context, request *models.PairRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindPairRequest(ctx context.Context, listingID, requestID uuid.UUID) (*models.PairRequest, error) {
	var request models.PairRequest
	err := r.db.WithContext(ctx).
		Where("id = ? AND listing_id = ?", requestID, listingID).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) HasPendingPairRequest(ctx context.Context, listingID, requesterID, requesterListingID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PairRequest{}).
		Where("listing_id = ? AND requester_id = ? AND requester_listing_id = ? AND status = ?",
			listingID, requesterID, requesterListingID, enums.PairRequestPending).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ResolvePairRequest(ctx context.Context, requestID uuid.UUID, status enums.PairRequestStatus, respondedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PairRequest{}).
		Where("id = ? AND status = ?", requestID, enums.PairRequestPending).
		Updates(map[string]any{
			"status":       status,
			"responded_at": respondedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListPairRequests(ctx context.Context, listingID uuid.UUID) ([]models.PairRequest, error) {
	var rows []models.PairRequest
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListSentPairRequests(ctx context.Context, requesterID uuid.UUID, params pagination.Params) ([]models.PairRequest, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.PairRequest{}).Where("requester_id = ?", requesterID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	normalized := params.Normalize()
	var rows []models.PairRequest
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Order("id DESC").
		Limit(normalized.Limit).
		Offset(normalized.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
