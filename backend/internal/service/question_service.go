package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"wedly/backend/internal/dto"
	"wedly/backend/internal/model"
	"wedly/backend/internal/repository"
	pkgerrors "wedly/backend/pkg/errors"
)

// ── 自定义问题模块业务错误 ──

var (
	ErrQuestionNotFound = errors.New("问题不存在")
)

const maxTextAnswerLen = 2000

// QuestionService 自定义问题业务接口
type QuestionService interface {
	Create(ctx context.Context, weddingID string, req *dto.QuestionRequest) (*dto.QuestionResponse, error)
	Update(ctx context.Context, weddingID, id string, req *dto.QuestionRequest) (*dto.QuestionResponse, error)
	Delete(ctx context.Context, weddingID, id string) error
	List(ctx context.Context, weddingID string) ([]dto.QuestionResponse, error)
}

type questionService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewQuestionService 创建 QuestionService 实例
func NewQuestionService(repo *repository.Repository, logger *zap.Logger) QuestionService {
	return &questionService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *questionService) Create(ctx context.Context, weddingID string, req *dto.QuestionRequest) (*dto.QuestionResponse, error) {
	q := &model.RSVPQuestion{WeddingID: weddingID}
	if err := s.apply(ctx, q, req); err != nil {
		return nil, err
	}

	if err := s.repo.Question.Create(ctx, q); err != nil {
		s.logger.Error("创建问题失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return nil, err
	}

	resp := toQuestionResponse(q)
	return &resp, nil
}

// ────────────────────── Update ──────────────────────

// Update 已有回答不随问题定义变化而重算
func (s *questionService) Update(ctx context.Context, weddingID, id string, req *dto.QuestionRequest) (*dto.QuestionResponse, error) {
	q, err := s.repo.Question.GetByID(ctx, weddingID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		s.logger.Error("查询问题失败", zap.String("question_id", id), zap.Error(err))
		return nil, err
	}

	if err := s.apply(ctx, q, req); err != nil {
		return nil, err
	}

	if err := s.repo.Question.Update(ctx, q); err != nil {
		s.logger.Error("更新问题失败", zap.String("question_id", id), zap.Error(err))
		return nil, err
	}

	resp := toQuestionResponse(q)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *questionService) Delete(ctx context.Context, weddingID, id string) error {
	if err := s.repo.Question.Delete(ctx, weddingID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		s.logger.Error("删除问题失败", zap.String("question_id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── List ──────────────────────

func (s *questionService) List(ctx context.Context, weddingID string) ([]dto.QuestionResponse, error) {
	questions, err := s.repo.Question.ListByWedding(ctx, weddingID)
	if err != nil {
		s.logger.Error("列出问题失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.QuestionResponse, 0, len(questions))
	for i := range questions {
		result = append(result, toQuestionResponse(&questions[i]))
	}
	return result, nil
}

// apply 校验请求并写入模型
func (s *questionService) apply(ctx context.Context, q *model.RSVPQuestion, req *dto.QuestionRequest) error {
	var ve pkgerrors.ValidationError

	text := strings.TrimSpace(req.Text)
	if text == "" {
		ve.Add("text", "问题内容不能为空")
	}

	var options []string
	switch req.AnswerType {
	case model.AnswerTypeSingleChoice, model.AnswerTypeMultiChoice:
		seen := make(map[string]struct{}, len(req.Options))
		for _, opt := range req.Options {
			opt = strings.TrimSpace(opt)
			if opt == "" {
				ve.Add("options", "选项不能为空")
				continue
			}
			if _, dup := seen[opt]; dup {
				ve.Add("options", "选项「%s」重复", opt)
				continue
			}
			seen[opt] = struct{}{}
			options = append(options, opt)
		}
		if len(options) < 2 {
			ve.Add("options", "选择题至少需要 2 个选项")
		}
	case model.AnswerTypeText:
		options = []string{}
	default:
		ve.Add("answer_type", "不支持的回答类型")
	}

	if len(req.EventIDs) > 0 {
		events, err := s.repo.Event.ListByWedding(ctx, q.WeddingID)
		if err != nil {
			s.logger.Error("查询活动失败", zap.String("wedding_id", q.WeddingID), zap.Error(err))
			return err
		}
		known := make(map[string]struct{}, len(events))
		for _, e := range events {
			known[e.EventID] = struct{}{}
		}
		for _, id := range req.EventIDs {
			if _, ok := known[id]; !ok {
				ve.Add("event_ids", "活动 %s 不属于该婚礼", id)
			}
		}
	}

	if err := ve.ErrOrNil(); err != nil {
		return err
	}

	raw, err := json.Marshal(options)
	if err != nil {
		return err
	}

	q.Text = text
	q.AnswerType = req.AnswerType
	q.Options = datatypes.JSON(raw)
	q.Required = req.Required
	q.EventIDs = dedupe(req.EventIDs)
	q.DisplayOrder = req.DisplayOrder
	return nil
}

// ── 回答校验 ──

// questionApplies 问题未限定活动，或限定活动与集合有交集
func questionApplies(q *model.RSVPQuestion, events map[string]struct{}) bool {
	if len(q.EventIDs) == 0 {
		return true
	}
	for _, id := range q.EventIDs {
		if _, ok := events[id]; ok {
			return true
		}
	}
	return false
}

// questionBinds 宾客出席至少一个活动，且问题适用于其出席的活动
func questionBinds(q *model.RSVPQuestion, attending map[string]struct{}) bool {
	return len(attending) > 0 && questionApplies(q, attending)
}

// validateAnswer 按问题声明的类型校验回答，返回带类型标签的值
func validateAnswer(q *model.RSVPQuestion, a *dto.AnswerPayload, field string, ve *pkgerrors.ValidationError) (model.AnswerValue, bool) {
	value := model.AnswerValue{Type: q.AnswerType}

	switch q.AnswerType {
	case model.AnswerTypeText:
		text := strings.TrimSpace(a.Text)
		if len(a.Choices) > 0 {
			ve.Add(field, "文本题不接受选项")
			return value, false
		}
		if text == "" {
			ve.Add(field, "回答不能为空")
			return value, false
		}
		if len([]rune(text)) > maxTextAnswerLen {
			ve.Add(field, "回答不能超过 %d 个字符", maxTextAnswerLen)
			return value, false
		}
		value.Text = text

	case model.AnswerTypeSingleChoice, model.AnswerTypeMultiChoice:
		if a.Text != "" {
			ve.Add(field, "选择题不接受文本回答")
			return value, false
		}
		allowed := make(map[string]struct{})
		for _, opt := range q.OptionList() {
			allowed[opt] = struct{}{}
		}
		seen := make(map[string]struct{}, len(a.Choices))
		for _, c := range a.Choices {
			if _, ok := allowed[c]; !ok {
				ve.Add(field, "选项「%s」不在可选范围内", c)
				return value, false
			}
			if _, dup := seen[c]; dup {
				ve.Add(field, "选项「%s」重复", c)
				return value, false
			}
			seen[c] = struct{}{}
		}
		if q.AnswerType == model.AnswerTypeSingleChoice && len(a.Choices) != 1 {
			ve.Add(field, "单选题必须选择一个选项")
			return value, false
		}
		if q.AnswerType == model.AnswerTypeMultiChoice && len(a.Choices) == 0 {
			ve.Add(field, "多选题至少选择一个选项")
			return value, false
		}
		value.Choices = append([]string(nil), a.Choices...)

	default:
		ve.Add(field, "问题类型不受支持")
		return value, false
	}
	return value, true
}

func toQuestionResponse(q *model.RSVPQuestion) dto.QuestionResponse {
	options := q.OptionList()
	if options == nil {
		options = []string{}
	}
	eventIDs := []string(q.EventIDs)
	if eventIDs == nil {
		eventIDs = []string{}
	}
	return dto.QuestionResponse{
		QuestionID:   q.QuestionID,
		Text:         q.Text,
		AnswerType:   q.AnswerType,
		Options:      options,
		Required:     q.Required,
		EventIDs:     eventIDs,
		DisplayOrder: q.DisplayOrder,
	}
}
