package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"wedly/backend/internal/dto"
	"wedly/backend/internal/model"
	pkgerrors "wedly/backend/pkg/errors"
	"wedly/backend/pkg/i18n"
	"wedly/backend/pkg/metrics"
)

func setupTestRSVPService(m *metrics.Metrics) (RSVPService, *mockRepos) {
	repo, mocks := newMockRepository()
	logger := zap.NewNop()
	svc := NewRSVPService(repo, &codeResolver{repo: repo}, i18n.NewTranslator("zh", logger), m, logger)
	return svc, mocks
}

func addQuestion(m *mockRepos, weddingID, text, answerType string, required bool, options string, eventIDs ...string) *model.RSVPQuestion {
	if options == "" {
		options = "[]"
	}
	q := &model.RSVPQuestion{
		WeddingID:  weddingID,
		Text:       text,
		AnswerType: answerType,
		Options:    datatypes.JSON(options),
		Required:   required,
		EventIDs:   model.StringArray(eventIDs),
	}
	_ = m.question.Create(context.Background(), q)
	return q
}

// ── 核心流程 ──

func TestSubmit_CreateThenRejectOverLimit(t *testing.T) {
	svc, m := setupTestRSVPService(nil)
	w, events := seedWedding(m, "仪式", "晚宴")
	inv := seedInvitation(m, w.WeddingID, "abc123", "张三", 2, events...)

	resp, err := svc.Submit(context.Background(), "abc123", &dto.SubmitRSVPRequest{
		GuestName:         "张三",
		AttendingEventIDs: events,
		NumberOfGuests:    2,
	}, "en")
	if err != nil {
		t.Fatalf("首次提交应成功: %v", err)
	}
	if resp.Updated || !resp.Attending || resp.RSVPID == "" {
		t.Errorf("首次提交结果错误: %+v", resp)
	}
	if !strings.Contains(resp.Message, "Alice & Bob") {
		t.Errorf("确认信息应包含新人姓名，实际 %q", resp.Message)
	}
	if m.invitation.invitations[inv.InvitationID].Status != model.InvitationStatusResponded {
		t.Error("提交后邀请状态应为 responded")
	}

	_, err = svc.Submit(context.Background(), "abc123", &dto.SubmitRSVPRequest{
		GuestName:         "张三",
		AttendingEventIDs: events,
		NumberOfGuests:    3,
	}, "en")
	if !errors.Is(err, ErrGuestLimitExceeded) {
		t.Fatalf("期望 ErrGuestLimitExceeded，实际: %v", err)
	}

	stored := m.rsvp.rsvps[inv.InvitationID]
	if stored.NumberOfGuests != 2 || len(m.rsvp.rsvps) != 1 {
		t.Errorf("被拒绝的提交不应改动已有回复，实际 %+v", stored)
	}
}

func TestSubmit_ResubmitUpdatesSameRow(t *testing.T) {
	svc, m := setupTestRSVPService(nil)
	w, events := seedWedding(m, "仪式", "晚宴")
	inv := seedInvitation(m, w.WeddingID, "abc123", "张三", 2)

	first, err := svc.Submit(context.Background(), "abc123", &dto.SubmitRSVPRequest{
		GuestName: "张三", AttendingEventIDs: events, NumberOfGuests: 2,
	}, "zh")
	if err != nil {
		t.Fatalf("首次提交应成功: %v", err)
	}

	second, err := svc.Submit(context.Background(), "ABC123", &dto.SubmitRSVPRequest{
		GuestName: "张三", AttendingEventIDs: events[:1], NumberOfGuests: 1, DietaryNotes: "素食",
	}, "zh")
	if err != nil {
		t.Fatalf("再次提交应成功: %v", err)
	}
	if !second.Updated || second.RSVPID != first.RSVPID {
		t.Errorf("再次提交应覆盖同一条回复，first=%+v second=%+v", first, second)
	}
	if len(m.rsvp.rsvps) != 1 {
		t.Fatalf("同一邀请只应有一条回复，实际 %d", len(m.rsvp.rsvps))
	}
	stored := m.rsvp.rsvps[inv.InvitationID]
	if stored.NumberOfGuests != 1 || len(stored.AttendingEventIDs) != 1 || stored.DietaryNotes != "素食" {
		t.Errorf("回复应以最后一次为准，实际 %+v", stored)
	}
}

func TestSubmit_ConcurrentSameInvitation(t *testing.T) {
	svc, m := setupTestRSVPService(nil)
	w, events := seedWedding(m, "仪式")
	inv := seedInvitation(m, w.WeddingID, "abc123", "张三", 4)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = map[string]bool{}
	)
	errs := make(chan error, 20)
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			resp, err := svc.Submit(context.Background(), "abc123", &dto.SubmitRSVPRequest{
				GuestName: "张三", AttendingEventIDs: events, NumberOfGuests: n%4 + 1,
			}, "zh")
			errs <- err
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if !resp.Updated {
				created++
			}
			ids[resp.RSVPID] = true
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("并发提交不应失败: %v", err)
		}
	}
	if created != 1 {
		t.Errorf("并发提交中只应有一次报告为新建，实际 %d", created)
	}
	if len(ids) != 1 {
		t.Errorf("所有提交应返回同一 rsvp_id，实际 %v", ids)
	}
	if len(m.rsvp.rsvps) != 1 {
		t.Errorf("并发提交后只应有一条回复，实际 %d", len(m.rsvp.rsvps))
	}
	if m.rsvp.rsvps[inv.InvitationID] == nil {
		t.Error("回复应关联到该邀请")
	}
}

// ── 校验 ──

func TestSubmit_InvalidCode(t *testing.T) {
	svc, m := setupTestRSVPService(nil)
	w, _ := seedWedding(m, "仪式")
	seedInvitation(m, w.WeddingID, "abc123", "张三", 2)

	for _, code := range []string{"zzz999", "", "<script>"} {
		_, err := svc.Submit(context.Background(), code, &dto.SubmitRSVPRequest{GuestName: "x", NumberOfGuests: 1}, "zh")
		if !errors.Is(err, ErrInvalidInvitation) {
			t.Errorf("code=%q 期望 ErrInvalidInvitation，实际: %v", code, err)
		}
	}
}

func TestSubmit_GuestCountBounds(t *testing.T) {
	svc, m := setupTestRSVPService(nil)
	w, _ := seedWedding(m, "仪式")
	seedInvitation(m, w.WeddingID, "abc123", "张三", 2)

	// 婉拒同样需要至少 1 人
	_, err := svc.Submit(context.Background(), "abc123", &dto.SubmitRSVPRequest{GuestName: "张三", NumberOfGuests: 0}, "zh")
	if !errors.Is(err, ErrGuestLimitExceeded) {
		t.Errorf("0 人期望 ErrGuestLimitExceeded，实际: %v", err)
	}
	if len(m.rsvp.rsvps) != 0 {
		t.Error("校验失败不应写入")
	}
}

func TestSubmit_UnauthorizedEvent(t *testing.T) {
	svc, m := setupTestRSVPService(nil)
	w, events := seedWedding(m, "仪式", "晚宴")
	seedInvitation(m, w.WeddingID, "abc123", "张三", 2, events[0])

	_, err := svc.Submit(context.Background(), "abc123", &dto.SubmitRSVPRequest{
		GuestName: "张三", AttendingEventIDs: []string{events[1]}, NumberOfGuests: 1,
	}, "zh")
	if !errors.Is(err, ErrUnauthorizedEvent) {
		t.Errorf("期望 ErrUnauthorizedEvent，实际: %v", err)
	}
	if len(m.rsvp.rsvps) != 0 {
		t.Error("未授权活动不应写入")
	}
}

func TestSubmit_PrivateEventNotImplicitlyInvited(t *testing.T) {
	svc, m := setupTestRSVPService(nil)
	w, events := seedWedding(m, "仪式", "家宴")
	m.event.events[events[1]].IsPrivate = true
	seedInvitation(m, w.WeddingID, "abc123", "张三", 2)

	_, err := svc.Submit(context.Background(), "abc123", &dto.SubmitRSVPRequest{
		GuestName: "张三", AttendingEventIDs: []string{events[1]}, NumberOfGuests: 1,
	}, "zh")
	if !errors.Is(err, ErrUnauthorizedEvent) {
		t.Errorf("私密活动需显式邀请，期望 ErrUnauthorizedEvent，实际: %v", err)
	}
}

func TestSubmit_PlusOneNotAllowed(t *testing.T) {
	svc, m := setupTestRSVPService(nil)
	w, events := seedWedding(m, "仪式")
	seedInvitation(m, w.WeddingID, "abc123", "张三", 2)

	_, err := svc.Submit(context.Background(), "abc123", &dto.SubmitRSVPRequest{
		GuestName: "张三", AttendingEventIDs: events, NumberOfGuests: 2, PlusOneName: "李四",
	}, "zh")
	ve, ok := pkgerrors.AsValidation(err)
	if !ok {
		t.Fatalf("期望 ValidationError，实际: %v", err)
	}
	if ve.Fields()[0].Field != "plus_one_name" {
		t.Errorf("期望字段 plus_one_name，实际 %+v", ve.Fields())
	}
}

func TestSubmit_PlusOneAllowed(t *testing.T) {
	svc, m := setupTestRSVPService(nil)
	w, events := seedWedding(m, "仪式")
	inv := seedInvitation(m, w.WeddingID, "abc123", "张三", 2)
	m.invitation.invitations[inv.InvitationID].AllowPlusOne = true

	_, err := svc.Submit(context.Background(), "abc123", &dto.SubmitRSVPRequest{
		GuestName: "张三", AttendingEventIDs: events, NumberOfGuests: 2, PlusOneName: " 李四 ",
	}, "zh")
	if err != nil {
		t.Fatalf("允许携伴时应成功: %v", err)
	}
	if m.rsvp.rsvps[inv.InvitationID].PlusOneName != "李四" {
		t.Errorf("携伴姓名应去除空白，实际 %q", m.rsvp.rsvps[inv.InvitationID].PlusOneName)
	}
}

func TestSubmit_ArchivedWedding(t *testing.T) {
	svc, m := setupTestRSVPService(nil)
	w, events := seedWedding(m, "仪式")
	seedInvitation(m, w.WeddingID, "abc123", "张三", 2)
	m.wedding.weddings[w.WeddingID].Status = model.WeddingStatusArchived

	_, err := svc.Submit(context.Background(), "abc123", &dto.SubmitRSVPRequest{
		GuestName: "张三", AttendingEventIDs: events, NumberOfGuests: 1,
	}, "zh")
	if !errors.Is(err, ErrWeddingArchived) {
		t.Errorf("期望 ErrWeddingArchived，实际: %v", err)
	}
}

// ── 自定义问题 ──

func TestSubmit_RequiredQuestionScopedToEvent(t *testing.T) {
	svc, m := setupTestRSVPService(nil)
	w, events := seedWedding(m, "仪式", "晚宴")
	inv := seedInvitation(m, w.WeddingID, "abc123", "张三", 2)
	meal := addQuestion(m, w.WeddingID, "晚宴主菜", model.AnswerTypeSingleChoice, true, `["牛排","鱼","素食"]`, events[1])

	// 出席晚宴但未作答
	_, err := svc.Submit(context.Background(), "abc123", &dto.SubmitRSVPRequest{
		GuestName: "张三", AttendingEventIDs: events, NumberOfGuests: 1,
	}, "zh")
	if !errors.Is(err, ErrMissingRequiredAnswer) {
		t.Fatalf("期望 ErrMissingRequiredAnswer，实际: %v", err)
	}

	// 只出席仪式：问题不约束，附带的回答记为非约束
	_, err = svc.Submit(context.Background(), "abc123", &dto.SubmitRSVPRequest{
		GuestName:         "张三",
		AttendingEventIDs: events[:1],
		NumberOfGuests:    1,
		Answers:           []dto.AnswerPayload{{QuestionID: meal.QuestionID, Choices: []string{"鱼"}}},
	}, "zh")
	if err != nil {
		t.Fatalf("未出席晚宴时应成功: %v", err)
	}
	rsvpID := m.rsvp.rsvps[inv.InvitationID].RSVPID
	answers := m.rsvp.responses[rsvpID]
	if len(answers) != 1 || !answers[0].NonBinding {
		t.Errorf("回答应保存为非约束，实际 %+v", answers)
	}
	if got := answers[0].Value.Data().Choices; len(got) != 1 || got[0] != "鱼" {
		t.Errorf("回答内容错误: %+v", got)
	}

	// 出席晚宴并作答
	_, err = svc.Submit(context.Background(), "abc123", &dto.SubmitRSVPRequest{
		GuestName:         "张三",
		AttendingEventIDs: events,
		NumberOfGuests:    1,
		Answers:           []dto.AnswerPayload{{QuestionID: meal.QuestionID, Choices: []string{"素食"}}},
	}, "zh")
	if err != nil {
		t.Fatalf("作答后应成功: %v", err)
	}
	answers = m.rsvp.responses[rsvpID]
	if len(answers) != 1 || answers[0].NonBinding {
		t.Errorf("回答应覆盖且为约束回答，实际 %+v", answers)
	}
}

func TestSubmit_DeclineSkipsRequiredQuestions(t *testing.T) {
	svc, m := setupTestRSVPService(nil)
	w, _ := seedWedding(m, "仪式")
	seedInvitation(m, w.WeddingID, "abc123", "张三", 2)
	addQuestion(m, w.WeddingID, "是否需要住宿", model.AnswerTypeText, true, "")

	resp, err := svc.Submit(context.Background(), "abc123", &dto.SubmitRSVPRequest{
		GuestName: "张三", NumberOfGuests: 1, Message: "祝幸福",
	}, "zh")
	if err != nil {
		t.Fatalf("婉拒不应受必答问题限制: %v", err)
	}
	if resp.Attending {
		t.Error("未选择任何活动应视为婉拒")
	}
}

func TestSubmit_InvalidAnswers(t *testing.T) {
	svc, m := setupTestRSVPService(nil)
	w, events := seedWedding(m, "仪式")
	seedInvitation(m, w.WeddingID, "abc123", "张三", 2)
	single := addQuestion(m, w.WeddingID, "主菜", model.AnswerTypeSingleChoice, false, `["牛排","鱼"]`)
	multi := addQuestion(m, w.WeddingID, "过敏源", model.AnswerTypeMultiChoice, false, `["花生","海鲜"]`)
	text := addQuestion(m, w.WeddingID, "祝福", model.AnswerTypeText, false, "")

	cases := []struct {
		name    string
		answers []dto.AnswerPayload
	}{
		{"选项不存在", []dto.AnswerPayload{{QuestionID: single.QuestionID, Choices: []string{"鸡肉"}}}},
		{"单选多个", []dto.AnswerPayload{{QuestionID: single.QuestionID, Choices: []string{"牛排", "鱼"}}}},
		{"多选为空", []dto.AnswerPayload{{QuestionID: multi.QuestionID}}},
		{"多选重复", []dto.AnswerPayload{{QuestionID: multi.QuestionID, Choices: []string{"花生", "花生"}}}},
		{"文本题带选项", []dto.AnswerPayload{{QuestionID: text.QuestionID, Choices: []string{"a"}}}},
		{"问题不存在", []dto.AnswerPayload{{QuestionID: "question-x", Text: "hi"}}},
		{"重复作答", []dto.AnswerPayload{
			{QuestionID: text.QuestionID, Text: "a"},
			{QuestionID: text.QuestionID, Text: "b"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), "abc123", &dto.SubmitRSVPRequest{
				GuestName: "张三", AttendingEventIDs: events, NumberOfGuests: 1, Answers: tc.answers,
			}, "zh")
			if !errors.Is(err, pkgerrors.ErrValidation) {
				t.Errorf("期望校验错误，实际: %v", err)
			}
		})
	}
	if len(m.rsvp.rsvps) != 0 {
		t.Error("校验失败不应写入")
	}
}

// ── 指标 ──

func TestSubmit_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc, m := setupTestRSVPService(metrics.New(reg))
	w, events := seedWedding(m, "仪式")
	seedInvitation(m, w.WeddingID, "abc123", "张三", 1)

	req := &dto.SubmitRSVPRequest{GuestName: "张三", AttendingEventIDs: events, NumberOfGuests: 1}
	_, _ = svc.Submit(context.Background(), "abc123", req, "zh")
	_, _ = svc.Submit(context.Background(), "abc123", req, "zh")
	_, _ = svc.Submit(context.Background(), "missing", req, "zh")

	expected := `
# HELP wedly_rsvp_submissions_total RSVP 提交次数，按结果分类
# TYPE wedly_rsvp_submissions_total counter
wedly_rsvp_submissions_total{result="created"} 1
wedly_rsvp_submissions_total{result="rejected"} 1
wedly_rsvp_submissions_total{result="updated"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "wedly_rsvp_submissions_total"); err != nil {
		t.Error(err)
	}
}

// ── List ──

func TestListRSVPs_AttendingFilter(t *testing.T) {
	svc, m := setupTestRSVPService(nil)
	w, events := seedWedding(m, "仪式")
	seedInvitation(m, w.WeddingID, "abc123", "张三", 1)
	seedInvitation(m, w.WeddingID, "def456", "李四", 1)

	_, _ = svc.Submit(context.Background(), "abc123", &dto.SubmitRSVPRequest{GuestName: "张三", AttendingEventIDs: events, NumberOfGuests: 1}, "zh")
	_, _ = svc.Submit(context.Background(), "def456", &dto.SubmitRSVPRequest{GuestName: "李四", NumberOfGuests: 1}, "zh")

	attending := false
	list, total, err := svc.List(context.Background(), w.WeddingID, &dto.RSVPListRequest{Attending: &attending, Page: 1, PageSize: 50})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 1 || list[0].GuestName != "李四" {
		t.Errorf("婉拒筛选错误: total=%d list=%+v", total, list)
	}
}
