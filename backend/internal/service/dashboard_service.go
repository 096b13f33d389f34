package service

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"wedly/backend/internal/dto"
	"wedly/backend/internal/model"
	"wedly/backend/internal/repository"
)

// DashboardService 婚礼看板业务接口
type DashboardService interface {
	Get(ctx context.Context, weddingID string) (*dto.DashboardResponse, error)
}

type dashboardService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewDashboardService 创建 DashboardService 实例
func NewDashboardService(repo *repository.Repository, logger *zap.Logger) DashboardService {
	return &dashboardService{repo: repo, logger: logger}
}

// Get 固定次数的查询 + 对 RSVP 集合单次遍历，复杂度 O(RSVP 数 + 活动数)
func (s *dashboardService) Get(ctx context.Context, weddingID string) (*dto.DashboardResponse, error) {
	if _, err := s.repo.Wedding.GetByID(ctx, weddingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWeddingNotFound
		}
		s.logger.Error("查询婚礼失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return nil, err
	}

	events, err := s.repo.Event.ListByWedding(ctx, weddingID)
	if err != nil {
		s.logger.Error("查询活动失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return nil, err
	}
	statusCounts, err := s.repo.Invitation.CountByStatus(ctx, weddingID)
	if err != nil {
		s.logger.Error("统计邀请状态失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return nil, err
	}
	slots, err := s.repo.Invitation.SumMaxGuests(ctx, weddingID)
	if err != nil {
		s.logger.Error("统计邀请名额失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return nil, err
	}
	rsvps, err := s.repo.RSVP.ListByWedding(ctx, weddingID)
	if err != nil {
		s.logger.Error("查询 RSVP 失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return nil, err
	}

	return aggregate(events, statusCounts, slots, rsvps), nil
}

// aggregate 纯计算：已回复数以 RSVP 行数为准，status 字段只用于分布展示
func aggregate(events []model.WeddingEvent, statusCounts map[string]int, slots int, rsvps []model.RSVP) *dto.DashboardResponse {
	total := 0
	breakdown := map[string]int{
		model.InvitationStatusSent:      0,
		model.InvitationStatusViewed:    0,
		model.InvitationStatusResponded: 0,
	}
	for status, n := range statusCounts {
		breakdown[status] = n
		total += n
	}

	resp := &dto.DashboardResponse{
		TotalInvitations:  total,
		StatusBreakdown:   breakdown,
		InvitedGuestSlots: slots,
		Events:            make([]dto.EventHeadcount, 0, len(events)),
		DietaryNotes:      []dto.DietaryNote{},
	}

	index := make(map[string]int, len(events))
	for i := range events {
		index[events[i].EventID] = i
		resp.Events = append(resp.Events, dto.EventHeadcount{
			EventID:   events[i].EventID,
			Name:      events[i].Name,
			MaxGuests: events[i].MaxGuests,
		})
	}

	for i := range rsvps {
		r := &rsvps[i]
		resp.TotalResponded++
		if r.IsAttending() {
			resp.AttendingRSVPs++
			resp.AttendingGuests += r.NumberOfGuests
		} else {
			resp.DeclinedRSVPs++
		}
		for _, id := range r.AttendingEventIDs {
			// 已删除的活动不计入
			if idx, ok := index[id]; ok {
				resp.Events[idx].Headcount += r.NumberOfGuests
				resp.Events[idx].RSVPCount++
			}
		}
		if r.DietaryNotes != "" && r.IsAttending() {
			resp.DietaryNotes = append(resp.DietaryNotes, dto.DietaryNote{GuestName: r.GuestName, Notes: r.DietaryNotes})
		}
	}

	for i := range resp.Events {
		if limit := resp.Events[i].MaxGuests; limit != nil && resp.Events[i].Headcount > *limit {
			resp.Events[i].OverCapacity = true
		}
	}

	resp.ResponseRate = responseRate(resp.TotalResponded, total)
	resp.PendingInvites = total - resp.TotalResponded
	if resp.PendingInvites < 0 {
		resp.PendingInvites = 0
	}
	return resp
}

// responseRate M/N×100，保留一位小数；无邀请时为 0
func responseRate(responded, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(responded)*1000/float64(total)) / 10
}
