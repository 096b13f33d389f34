package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wedly/backend/internal/model"
)

// RSVPRepository RSVP 数据访问接口
type RSVPRepository interface {
	Upsert(ctx context.Context, rsvp *model.RSVP) (inserted bool, err error)
	GetByInvitation(ctx context.Context, invitationID string) (*model.RSVP, error)
	List(ctx context.Context, weddingID string, attending *bool, offset, limit int) ([]model.RSVP, int64, error)
	ListByWedding(ctx context.Context, weddingID string) ([]model.RSVP, error)
}

type rsvpRepo struct {
	db *gorm.DB
}

// NewRSVPRepo 创建 RSVPRepository 实例
func NewRSVPRepo(db *gorm.DB) RSVPRepository {
	return &rsvpRepo{db: db}
}

// upsertColumns 冲突时覆盖的列；rsvp_id 与 created_at 保持不变
var upsertColumns = []string{
	"guest_name", "guest_email", "guest_phone", "attending_event_ids",
	"number_of_guests", "plus_one_name", "dietary_notes", "message",
	"submitted_at", "updated_at",
}

// Upsert 以 invitation_id 唯一约束保证每个邀请至多一行
// 先 INSERT ... ON CONFLICT DO NOTHING，未插入时原地覆盖并回填已有 rsvp_id；
// 并发首次提交时后到者在唯一索引上等待，随后走覆盖分支，inserted 只会有一方为 true
func (r *rsvpRepo) Upsert(ctx context.Context, rsvp *model.RSVP) (bool, error) {
	db := r.db.WithContext(ctx)

	res := db.Omit("Responses").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "invitation_id"}},
			DoNothing: true,
		}).
		Create(rsvp)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	if err := db.Model(&model.RSVP{}).
		Where("invitation_id = ?", rsvp.InvitationID).
		Select(upsertColumns).
		Updates(rsvp).Error; err != nil {
		return false, err
	}

	var existing model.RSVP
	if err := db.Select("rsvp_id", "created_at").
		Where("invitation_id = ?", rsvp.InvitationID).
		First(&existing).Error; err != nil {
		return false, err
	}
	rsvp.RSVPID = existing.RSVPID
	rsvp.CreatedAt = existing.CreatedAt
	return false, nil
}

func (r *rsvpRepo) GetByInvitation(ctx context.Context, invitationID string) (*model.RSVP, error) {
	var rsvp model.RSVP
	err := r.db.WithContext(ctx).
		Preload("Responses").
		Where("invitation_id = ?", invitationID).
		First(&rsvp).Error
	if err != nil {
		return nil, err
	}
	return &rsvp, nil
}

func (r *rsvpRepo) List(ctx context.Context, weddingID string, attending *bool, offset, limit int) ([]model.RSVP, int64, error) {
	var rsvps []model.RSVP
	var total int64

	db := r.db.WithContext(ctx).Model(&model.RSVP{}).Where("wedding_id = ?", weddingID)
	if attending != nil {
		if *attending {
			db = db.Where("cardinality(attending_event_ids) > 0")
		} else {
			db = db.Where("cardinality(attending_event_ids) = 0")
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Responses").
		Offset(offset).Limit(limit).
		Order("submitted_at DESC").
		Find(&rsvps).Error; err != nil {
		return nil, 0, err
	}

	return rsvps, total, nil
}

// ListByWedding 全量读取，用于看板单次遍历与导出
func (r *rsvpRepo) ListByWedding(ctx context.Context, weddingID string) ([]model.RSVP, error) {
	var rsvps []model.RSVP
	err := r.db.WithContext(ctx).
		Preload("Responses").
		Where("wedding_id = ?", weddingID).
		Order("submitted_at ASC").
		Find(&rsvps).Error
	return rsvps, err
}
