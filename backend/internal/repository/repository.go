package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Wedding    WeddingRepository
	Event      EventRepository
	Invitation InvitationRepository
	RSVP       RSVPRepository
	Question   QuestionRepository
	Response   ResponseRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:         db,
		Wedding:    NewWeddingRepo(db),
		Event:      NewEventRepo(db),
		Invitation: NewInvitationRepo(db),
		RSVP:       NewRSVPRepo(db),
		Question:   NewQuestionRepo(db),
		Response:   NewResponseRepo(db),
	}
}

// BeginTx 开启事务；未注入数据库（单元测试）时返回 nil
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx 返回绑定到事务连接的 Repository；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}
