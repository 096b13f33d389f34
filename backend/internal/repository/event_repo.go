package repository

import (
	"context"

	"gorm.io/gorm"

	"wedly/backend/internal/model"
)

// EventRepository 婚礼子活动数据访问接口
type EventRepository interface {
	Create(ctx context.Context, e *model.WeddingEvent) error
	GetByID(ctx context.Context, weddingID, eventID string) (*model.WeddingEvent, error)
	ListByWedding(ctx context.Context, weddingID string) ([]model.WeddingEvent, error)
	Update(ctx context.Context, e *model.WeddingEvent) error
	Delete(ctx context.Context, weddingID, eventID string) error
}

type eventRepo struct {
	db *gorm.DB
}

// NewEventRepo 创建 EventRepository 实例
func NewEventRepo(db *gorm.DB) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) Create(ctx context.Context, e *model.WeddingEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *eventRepo) GetByID(ctx context.Context, weddingID, eventID string) (*model.WeddingEvent, error) {
	var e model.WeddingEvent
	err := r.db.WithContext(ctx).
		Where("wedding_id = ? AND event_id = ?", weddingID, eventID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByWedding 按展示顺序、开始时间排序
func (r *eventRepo) ListByWedding(ctx context.Context, weddingID string) ([]model.WeddingEvent, error) {
	var events []model.WeddingEvent
	err := r.db.WithContext(ctx).
		Where("wedding_id = ?", weddingID).
		Order("display_order ASC, starts_at ASC").
		Find(&events).Error
	return events, err
}

func (r *eventRepo) Update(ctx context.Context, e *model.WeddingEvent) error {
	return r.db.WithContext(ctx).Save(e).Error
}

// Delete 软删除
func (r *eventRepo) Delete(ctx context.Context, weddingID, eventID string) error {
	result := r.db.WithContext(ctx).
		Where("wedding_id = ? AND event_id = ?", weddingID, eventID).
		Delete(&model.WeddingEvent{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
