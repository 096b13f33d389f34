package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"wedly/backend/internal/model"
	"wedly/backend/internal/repository"
)

// ErrInvitationNotFound 未知与格式错误的邀请码返回同一个错误
var ErrInvitationNotFound = errors.New("邀请不存在")

// resolvedInvitation 邀请码解析结果
type resolvedInvitation struct {
	Invitation *model.Invitation
	Wedding    *model.Wedding
	Events     []model.WeddingEvent // 宾客受邀的活动，按展示顺序
}

// invitedSet 受邀活动 ID 集合
func (r *resolvedInvitation) invitedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.Events))
	for _, e := range r.Events {
		set[e.EventID] = struct{}{}
	}
	return set
}

// codeResolver 邀请码 → 邀请 + 婚礼 + 受邀活动
type codeResolver struct {
	repo *repository.Repository
}

// resolve 格式错误的邀请码同样执行一次查询，使响应耗时与未知邀请码一致
func (c *codeResolver) resolve(ctx context.Context, code string) (*resolvedInvitation, error) {
	normalized := NormalizeCode(code)
	wellFormed := isWellFormedCode(normalized)
	if !wellFormed {
		normalized = "-"
	}

	inv, err := c.repo.Invitation.GetByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	if !wellFormed {
		return nil, ErrInvitationNotFound
	}

	w, err := c.repo.Wedding.GetByID(ctx, inv.WeddingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}

	events, err := c.repo.Event.ListByWedding(ctx, inv.WeddingID)
	if err != nil {
		return nil, err
	}

	return &resolvedInvitation{
		Invitation: inv,
		Wedding:    w,
		Events:     invitedEvents(inv, events),
	}, nil
}

// invitedEvents 未指定受邀活动时默认全部非私密活动
func invitedEvents(inv *model.Invitation, events []model.WeddingEvent) []model.WeddingEvent {
	result := make([]model.WeddingEvent, 0, len(events))
	if len(inv.InvitedEventIDs) == 0 {
		for _, e := range events {
			if !e.IsPrivate {
				result = append(result, e)
			}
		}
		return result
	}
	set := inv.InvitedEventIDs.Set()
	for _, e := range events {
		if _, ok := set[e.EventID]; ok {
			result = append(result, e)
		}
	}
	return result
}
