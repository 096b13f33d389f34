package repository

import (
	"context"

	"gorm.io/gorm"

	"wedly/backend/internal/model"
)

// ResponseRepository 自定义问题回答数据访问接口
type ResponseRepository interface {
	ReplaceForRSVP(ctx context.Context, rsvpID string, responses []model.RSVPResponse) error
}

type responseRepo struct {
	db *gorm.DB
}

// NewResponseRepo 创建 ResponseRepository 实例
func NewResponseRepo(db *gorm.DB) ResponseRepository {
	return &responseRepo{db: db}
}

// ReplaceForRSVP 以本次提交覆盖该 RSVP 的全部回答
// 必须在事务中调用（通过 Repository.WithTx 注入事务连接）
func (r *responseRepo) ReplaceForRSVP(ctx context.Context, rsvpID string, responses []model.RSVPResponse) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("rsvp_id = ?", rsvpID).Delete(&model.RSVPResponse{}).Error; err != nil {
		return err
	}
	if len(responses) == 0 {
		return nil
	}
	for i := range responses {
		responses[i].RSVPID = rsvpID
	}
	return db.Create(&responses).Error
}
