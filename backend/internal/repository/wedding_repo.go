package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"wedly/backend/internal/model"
	pkgerrors "wedly/backend/pkg/errors"
)

// WeddingRepository 婚礼数据访问接口
type WeddingRepository interface {
	Create(ctx context.Context, w *model.Wedding) error
	GetByID(ctx context.Context, id string) (*model.Wedding, error)
	GetBySlug(ctx context.Context, slug string) (*model.Wedding, error)
	GetBySecret(ctx context.Context, secret string) (*model.Wedding, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, w *model.Wedding) error
	RotateSecret(ctx context.Context, id, secret string, issuedAt time.Time) error
}

type weddingRepo struct {
	db *gorm.DB
}

// NewWeddingRepo 创建 WeddingRepository 实例
func NewWeddingRepo(db *gorm.DB) WeddingRepository {
	return &weddingRepo{db: db}
}

func (r *weddingRepo) Create(ctx context.Context, w *model.Wedding) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *weddingRepo) GetByID(ctx context.Context, id string) (*model.Wedding, error) {
	var w model.Wedding
	err := r.db.WithContext(ctx).
		Where("wedding_id = ?", id).
		First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *weddingRepo) GetBySlug(ctx context.Context, slug string) (*model.Wedding, error) {
	var w model.Wedding
	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetBySecret 按管理密钥查询；密钥作为不透明字符串整体比较
func (r *weddingRepo) GetBySecret(ctx context.Context, secret string) (*model.Wedding, error) {
	var w model.Wedding
	err := r.db.WithContext(ctx).
		Where("secret_token = ?", secret).
		First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *weddingRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Wedding{}).
		Unscoped().
		Where("slug = ?", slug).
		Count(&count).Error
	return count > 0, err
}

// Update 乐观锁更新，版本不匹配返回 ErrOptimisticLock
func (r *weddingRepo) Update(ctx context.Context, w *model.Wedding) error {
	oldVersion := w.Version
	result := r.db.WithContext(ctx).
		Model(&model.Wedding{}).
		Where("wedding_id = ? AND version = ?", w.WeddingID, oldVersion).
		Updates(map[string]interface{}{
			"partner_one_name":     w.PartnerOneName,
			"partner_two_name":     w.PartnerTwoName,
			"wedding_date":         w.WeddingDate,
			"venue_name":           w.VenueName,
			"venue_address":        w.VenueAddress,
			"ceremony_time":        w.CeremonyTime,
			"reception_time":       w.ReceptionTime,
			"contact_email":        w.ContactEmail,
			"contact_phone":        w.ContactPhone,
			"is_public":            w.IsPublic,
			"access_password_hash": w.AccessPasswordHash,
			"max_guests":           w.MaxGuests,
			"status":               w.Status,
			"version":              oldVersion + 1,
			"updated_at":           time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	w.Version = oldVersion + 1
	return nil
}

// RotateSecret 替换管理密钥，旧密钥立即失效
func (r *weddingRepo) RotateSecret(ctx context.Context, id, secret string, issuedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Wedding{}).
		Where("wedding_id = ?", id).
		Updates(map[string]interface{}{
			"secret_token":     secret,
			"secret_issued_at": issuedAt,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
