package repository

import (
	"context"

	"gorm.io/gorm"

	"wedly/backend/internal/model"
)

// QuestionRepository 自定义问题数据访问接口
type QuestionRepository interface {
	Create(ctx context.Context, q *model.RSVPQuestion) error
	GetByID(ctx context.Context, weddingID, id string) (*model.RSVPQuestion, error)
	ListByWedding(ctx context.Context, weddingID string) ([]model.RSVPQuestion, error)
	Update(ctx context.Context, q *model.RSVPQuestion) error
	Delete(ctx context.Context, weddingID, id string) error
}

type questionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo 创建 QuestionRepository 实例
func NewQuestionRepo(db *gorm.DB) QuestionRepository {
	return &questionRepo{db: db}
}

func (r *questionRepo) Create(ctx context.Context, q *model.RSVPQuestion) error {
	return r.db.WithContext(ctx).Create(q).Error
}

func (r *questionRepo) GetByID(ctx context.Context, weddingID, id string) (*model.RSVPQuestion, error) {
	var q model.RSVPQuestion
	err := r.db.WithContext(ctx).
		Where("wedding_id = ? AND question_id = ?", weddingID, id).
		First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *questionRepo) ListByWedding(ctx context.Context, weddingID string) ([]model.RSVPQuestion, error) {
	var questions []model.RSVPQuestion
	err := r.db.WithContext(ctx).
		Where("wedding_id = ?", weddingID).
		Order("display_order ASC, created_at ASC").
		Find(&questions).Error
	return questions, err
}

func (r *questionRepo) Update(ctx context.Context, q *model.RSVPQuestion) error {
	return r.db.WithContext(ctx).Save(q).Error
}

// Delete 软删除；已有回答保留
func (r *questionRepo) Delete(ctx context.Context, weddingID, id string) error {
	result := r.db.WithContext(ctx).
		Where("wedding_id = ? AND question_id = ?", weddingID, id).
		Delete(&model.RSVPQuestion{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
