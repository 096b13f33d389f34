package service

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"wedly/backend/internal/model"
)

// ── ICS 解析 ────────────────────────────────────────────────
//
// 每个带 SUMMARY 与 DTSTART 的 VEVENT 转为一个 WeddingEvent；
// 缺少 DTEND 时按 2 小时处理，缺少 SUMMARY/DTSTART 的计入 skipped。
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize      = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout     = 30 * time.Second
	icsDefaultDuration  = 2 * time.Hour
	icsMaxImportedItems = 50
)

// ErrICSEmpty 日历中没有可导入的活动
var ErrICSEmpty = errors.New("日历中没有可导入的活动")

// FetchICSContent 从 URL 获取 ICS 内容（支持 webcal://）
func FetchICSContent(rawURL string) (io.ReadCloser, error) {
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}
	if !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://") {
		return nil, fmt.Errorf("不支持的日历地址: %s", rawURL)
	}

	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	// 限制响应体大小
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseEventsICS 解析 ICS 内容，按开始时间排序返回活动草稿
func ParseEventsICS(reader io.Reader) ([]model.WeddingEvent, int, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(reader, icsMaxFileSize))
	if err != nil {
		return nil, 0, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	var events []model.WeddingEvent
	skipped := 0
	for _, comp := range cal.Events() {
		evt, ok := parseVEvent(comp)
		if !ok {
			skipped++
			continue
		}
		events = append(events, evt)
	}

	if len(events) == 0 {
		return nil, skipped, ErrICSEmpty
	}
	if len(events) > icsMaxImportedItems {
		return nil, skipped, fmt.Errorf("单次最多导入 %d 个活动", icsMaxImportedItems)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartsAt.Before(events[j].StartsAt)
	})
	return events, skipped, nil
}

// parseVEvent 解析单个 VEVENT
func parseVEvent(evt *ics.VEvent) (model.WeddingEvent, bool) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return model.WeddingEvent{}, false
	}

	start, err := evt.GetStartAt()
	if err != nil {
		return model.WeddingEvent{}, false
	}
	end, err := evt.GetEndAt()
	if err != nil || !end.After(start) {
		end = start.Add(icsDefaultDuration)
	}
	end = end.UTC()

	e := model.WeddingEvent{
		Name:     truncateRunes(strings.TrimSpace(summary.Value), 100),
		StartsAt: start.UTC(),
		EndsAt:   &end,
	}
	if p := evt.GetProperty(ics.ComponentPropertyDescription); p != nil {
		e.Description = strings.TrimSpace(p.Value)
	}
	if p := evt.GetProperty(ics.ComponentPropertyLocation); p != nil {
		e.VenueName = truncateRunes(strings.TrimSpace(p.Value), 200)
	}
	return e, true
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
