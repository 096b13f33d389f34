package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"wedly/backend/pkg/logger"
)

// CalendarService 宾客日历导出
type CalendarService interface {
	InvitationICS(ctx context.Context, code string) ([]byte, error)
}

type calendarService struct {
	resolver *codeResolver
	links    *linkBuilder
	logger   *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(resolver *codeResolver, links *linkBuilder, logger *zap.Logger) CalendarService {
	return &calendarService{resolver: resolver, links: links, logger: logger}
}

// InvitationICS 以宾客受邀的活动生成 .ics；UID 由邀请 ID 与活动 ID 组成，重复下载可覆盖更新
func (s *calendarService) InvitationICS(ctx context.Context, code string) ([]byte, error) {
	resolved, err := s.resolver.resolve(ctx, code)
	if err != nil {
		if !errors.Is(err, ErrInvitationNotFound) {
			s.logger.Error("解析邀请码失败", zap.String("code", logger.MaskCode(NormalizeCode(code))), zap.Error(err))
		}
		return nil, err
	}

	w := resolved.Wedding
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//wedly//rsvp//ZH")
	cal.SetName(w.CoupleNames())

	now := time.Now().UTC()
	rsvpURL := s.links.RSVPURL(resolved.Invitation.Code)
	for _, e := range resolved.Events {
		evt := cal.AddEvent(fmt.Sprintf("%s-%s@wedly", resolved.Invitation.InvitationID, e.EventID))
		evt.SetDtStampTime(now)
		evt.SetStartAt(e.StartsAt.UTC())
		end := e.StartsAt.Add(icsDefaultDuration)
		if e.EndsAt != nil {
			end = *e.EndsAt
		}
		evt.SetEndAt(end.UTC())
		evt.SetSummary(fmt.Sprintf("%s · %s", w.CoupleNames(), e.Name))

		venue := e.VenueName
		if venue == "" {
			venue = w.VenueName
		}
		address := e.VenueAddress
		if address == "" {
			address = w.VenueAddress
		}
		evt.SetLocation(strings.TrimSpace(venue + " " + address))

		var desc []string
		if e.Description != "" {
			desc = append(desc, e.Description)
		}
		if e.DressCode != "" {
			desc = append(desc, "着装要求: "+e.DressCode)
		}
		desc = append(desc, "回复链接: "+rsvpURL)
		evt.SetDescription(strings.Join(desc, "\n"))
		evt.SetURL(rsvpURL)
	}

	return []byte(cal.Serialize()), nil
}
