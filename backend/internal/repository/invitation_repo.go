package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"wedly/backend/internal/model"
)

// InvitationFilter 邀请列表过滤条件
type InvitationFilter struct {
	Status  string
	Keyword string
}

// InvitationRepository 邀请数据访问接口
type InvitationRepository interface {
	Create(ctx context.Context, inv *model.Invitation) error
	ExistsByCode(ctx context.Context, code string) (bool, error)
	GetByCode(ctx context.Context, code string) (*model.Invitation, error)
	GetByID(ctx context.Context, weddingID, id string) (*model.Invitation, error)
	List(ctx context.Context, weddingID string, filter InvitationFilter, offset, limit int) ([]model.Invitation, int64, error)
	ListByWedding(ctx context.Context, weddingID string) ([]model.Invitation, error)
	Update(ctx context.Context, inv *model.Invitation) error
	MarkViewed(ctx context.Context, code string, at time.Time) (bool, error)
	MarkResponded(ctx context.Context, id string, at time.Time) error
	CountByStatus(ctx context.Context, weddingID string) (map[string]int, error)
	SumMaxGuests(ctx context.Context, weddingID string) (int, error)
}

type invitationRepo struct {
	db *gorm.DB
}

// NewInvitationRepo 创建 InvitationRepository 实例
func NewInvitationRepo(db *gorm.DB) InvitationRepository {
	return &invitationRepo{db: db}
}

// Create 插入邀请；邀请码冲突时返回 gorm.ErrDuplicatedKey（需开启 TranslateError）
func (r *invitationRepo) Create(ctx context.Context, inv *model.Invitation) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *invitationRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Invitation{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (r *invitationRepo) GetByCode(ctx context.Context, code string) (*model.Invitation, error) {
	var inv model.Invitation
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invitationRepo) GetByID(ctx context.Context, weddingID, id string) (*model.Invitation, error) {
	var inv model.Invitation
	err := r.db.WithContext(ctx).
		Where("wedding_id = ? AND invitation_id = ?", weddingID, id).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invitationRepo) List(ctx context.Context, weddingID string, filter InvitationFilter, offset, limit int) ([]model.Invitation, int64, error) {
	var invitations []model.Invitation
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Invitation{}).Where("wedding_id = ?", weddingID)
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		db = db.Where("guest_name ILIKE ? OR guest_email ILIKE ?", like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, 0, err
	}

	return invitations, total, nil
}

func (r *invitationRepo) ListByWedding(ctx context.Context, weddingID string) ([]model.Invitation, error) {
	var invitations []model.Invitation
	err := r.db.WithContext(ctx).
		Where("wedding_id = ?", weddingID).
		Order("guest_name ASC").
		Find(&invitations).Error
	return invitations, err
}

// Update 更新可变字段，不触碰 code
func (r *invitationRepo) Update(ctx context.Context, inv *model.Invitation) error {
	return r.db.WithContext(ctx).
		Model(&model.Invitation{}).
		Where("invitation_id = ?", inv.InvitationID).
		Updates(map[string]interface{}{
			"guest_name":        inv.GuestName,
			"guest_email":       inv.GuestEmail,
			"max_guests":        inv.MaxGuests,
			"allow_plus_one":    inv.AllowPlusOne,
			"invited_event_ids": inv.InvitedEventIDs,
			"is_family":         inv.IsFamily,
			"updated_at":        time.Now(),
		}).Error
}

// MarkViewed 条件更新 sent → viewed；返回是否发生了状态变化
func (r *invitationRepo) MarkViewed(ctx context.Context, code string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Invitation{}).
		Where("code = ? AND status = ?", code, model.InvitationStatusSent).
		Updates(map[string]interface{}{
			"status":     model.InvitationStatusViewed,
			"viewed_at":  at,
			"updated_at": at,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *invitationRepo) MarkResponded(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Invitation{}).
		Where("invitation_id = ?", id).
		Updates(map[string]interface{}{
			"status":       model.InvitationStatusResponded,
			"responded_at": at,
			"updated_at":   at,
		}).Error
}

// CountByStatus 一次分组查询得到各状态数量
func (r *invitationRepo) CountByStatus(ctx context.Context, weddingID string) (map[string]int, error) {
	var rows []struct {
		Status string
		Count  int
	}
	err := r.db.WithContext(ctx).
		Model(&model.Invitation{}).
		Select("status, COUNT(*) AS count").
		Where("wedding_id = ?", weddingID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// SumMaxGuests 婚礼已分配的宾客名额总数
func (r *invitationRepo) SumMaxGuests(ctx context.Context, weddingID string) (int, error) {
	var sum int
	err := r.db.WithContext(ctx).
		Model(&model.Invitation{}).
		Select("COALESCE(SUM(max_guests), 0)").
		Where("wedding_id = ?", weddingID).
		Scan(&sum).Error
	return sum, err
}
