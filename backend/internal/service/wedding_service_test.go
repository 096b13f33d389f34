package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"wedly/backend/internal/dto"
	pkgerrors "wedly/backend/pkg/errors"
)

func setupTestWeddingService() (WeddingService, *mockRepos) {
	repo, m := newMockRepository()
	svc := NewWeddingService(repo, testRSVPConfig(), newLinkBuilder("https://wedly.example"), zap.NewNop())
	return svc, m
}

func validCreateRequest() *dto.CreateWeddingRequest {
	return &dto.CreateWeddingRequest{
		PartnerOneName: "Alice",
		PartnerTwoName: "Bob",
		WeddingDate:    "2027-05-20",
		VenueName:      "湖畔花园",
		VenueAddress:   "西湖路 1 号",
		CeremonyTime:   "10:30",
		ContactEmail:   "couple@example.com",
		IsPublic:       true,
	}
}

func strPtr(s string) *string { return &s }

// ── Create ──

func TestCreateWedding_Success(t *testing.T) {
	svc, m := setupTestWeddingService()

	resp, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.Slug != "alice-bob-20270520" {
		t.Errorf("自动 slug 错误: %s", resp.Slug)
	}
	if len(resp.AdminSecret) < 40 {
		t.Errorf("管理密钥过短: %d", len(resp.AdminSecret))
	}
	if resp.AdminLink != "https://wedly.example/manage/"+resp.AdminSecret {
		t.Errorf("管理链接错误: %s", resp.AdminLink)
	}
	stored := m.wedding.weddings[resp.WeddingID]
	if stored.SecretToken != resp.AdminSecret || stored.SecretIssuedAt.IsZero() {
		t.Error("管理密钥应持久化并记录签发时间")
	}
}

func TestCreateWedding_SlugCollision(t *testing.T) {
	svc, _ := setupTestWeddingService()

	first, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("第一次创建应成功: %v", err)
	}
	second, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("自动 slug 冲突时应追加后缀: %v", err)
	}
	if second.Slug == first.Slug || !strings.HasPrefix(second.Slug, first.Slug+"-") {
		t.Errorf("期望 %s-xxxx，实际 %s", first.Slug, second.Slug)
	}
	if second.AdminSecret == first.AdminSecret {
		t.Error("两场婚礼的管理密钥不应相同")
	}

	req := validCreateRequest()
	req.Slug = first.Slug
	if _, err := svc.Create(context.Background(), req); !errors.Is(err, ErrSlugTaken) {
		t.Errorf("指定 slug 冲突应返回 ErrSlugTaken，实际: %v", err)
	}
}

func TestCreateWedding_ValidationErrors(t *testing.T) {
	svc, _ := setupTestWeddingService()

	req := validCreateRequest()
	req.WeddingDate = "2027/05/20"
	req.CeremonyTime = "25:99"
	req.VenueName = " "
	req.Slug = "Bad Slug"

	_, err := svc.Create(context.Background(), req)
	ve, ok := pkgerrors.AsValidation(err)
	if !ok {
		t.Fatalf("期望 ValidationError，实际: %v", err)
	}
	if len(ve.Fields()) != 4 {
		t.Errorf("期望 4 个字段错误，实际 %+v", ve.Fields())
	}
}

func TestCreateWedding_NonLatinNames(t *testing.T) {
	svc, _ := setupTestWeddingService()
	req := validCreateRequest()
	req.PartnerOneName = "张伟"
	req.PartnerTwoName = "李娜"

	resp, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.Slug != "wedding-20270520" {
		t.Errorf("期望 wedding-20270520，实际 %s", resp.Slug)
	}
}

// ── GetPublic ──

func TestGetPublic_VisibilityAndPassword(t *testing.T) {
	svc, m := setupTestWeddingService()

	req := validCreateRequest()
	req.AccessPassword = "hunter2"
	created, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}

	if _, err := svc.GetPublic(context.Background(), created.Slug, ""); !errors.Is(err, ErrWeddingPasswordRequired) {
		t.Errorf("期望 ErrWeddingPasswordRequired，实际: %v", err)
	}
	if _, err := svc.GetPublic(context.Background(), created.Slug, "wrong"); !errors.Is(err, ErrWeddingPasswordInvalid) {
		t.Errorf("期望 ErrWeddingPasswordInvalid，实际: %v", err)
	}
	pub, err := svc.GetPublic(context.Background(), created.Slug, "hunter2")
	if err != nil {
		t.Fatalf("正确密码应成功: %v", err)
	}
	if pub.Wedding.PartnerOneName != "Alice" {
		t.Errorf("公开信息错误: %+v", pub.Wedding)
	}

	m.wedding.weddings[created.WeddingID].IsPublic = false
	if _, err := svc.GetPublic(context.Background(), created.Slug, "hunter2"); !errors.Is(err, ErrWeddingNotFound) {
		t.Errorf("非公开婚礼应返回 ErrWeddingNotFound，实际: %v", err)
	}
	if _, err := svc.GetPublic(context.Background(), "nope", ""); !errors.Is(err, ErrWeddingNotFound) {
		t.Errorf("期望 ErrWeddingNotFound，实际: %v", err)
	}
}

func TestGetPublic_HidesPrivateEvents(t *testing.T) {
	svc, m := setupTestWeddingService()
	w, events := seedWedding(m, "仪式", "家宴")
	m.event.events[events[1]].IsPrivate = true

	pub, err := svc.GetPublic(context.Background(), w.Slug, "")
	if err != nil {
		t.Fatalf("GetPublic 应成功: %v", err)
	}
	if len(pub.Events) != 1 || pub.Events[0].Name != "仪式" {
		t.Errorf("私密活动不应公开，实际 %+v", pub.Events)
	}
}

// ── Update ──

func TestUpdateWedding_OptimisticLock(t *testing.T) {
	svc, m := setupTestWeddingService()
	w, _ := seedWedding(m)

	resp, err := svc.Update(context.Background(), w.WeddingID, &dto.UpdateWeddingRequest{
		VenueName: strPtr("山顶酒店"),
		MaxGuests: intPtr(120),
		Version:   1,
	})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if resp.VenueName != "山顶酒店" || resp.Version != 2 || resp.MaxGuests == nil || *resp.MaxGuests != 120 {
		t.Errorf("更新结果错误: %+v", resp)
	}

	_, err = svc.Update(context.Background(), w.WeddingID, &dto.UpdateWeddingRequest{VenueName: strPtr("x"), Version: 1})
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("过期版本应返回 ErrOptimisticLock，实际: %v", err)
	}

	resp, err = svc.Update(context.Background(), w.WeddingID, &dto.UpdateWeddingRequest{MaxGuests: intPtr(0), Version: 2})
	if err != nil {
		t.Fatalf("取消上限应成功: %v", err)
	}
	if resp.MaxGuests != nil {
		t.Error("max_guests=0 应取消上限")
	}
}

func TestUpdateWedding_KeepsSecret(t *testing.T) {
	svc, m := setupTestWeddingService()
	w, _ := seedWedding(m)

	if _, err := svc.Update(context.Background(), w.WeddingID, &dto.UpdateWeddingRequest{
		AccessPassword: strPtr("letmein"),
		Version:        1,
	}); err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	stored := m.wedding.weddings[w.WeddingID]
	if stored.SecretToken != w.SecretToken {
		t.Error("更新婚礼不应改变管理密钥")
	}
	if stored.AccessPasswordHash == "" || stored.AccessPasswordHash == "letmein" {
		t.Error("访问密码应以哈希保存")
	}
}

// ── RotateSecret ──

func TestRotateSecret(t *testing.T) {
	svc, m := setupTestWeddingService()
	w, _ := seedWedding(m)

	resp, err := svc.RotateSecret(context.Background(), w.WeddingID)
	if err != nil {
		t.Fatalf("RotateSecret 应成功: %v", err)
	}
	stored := m.wedding.weddings[w.WeddingID]
	if resp.AdminSecret == w.SecretToken || stored.SecretToken != resp.AdminSecret {
		t.Error("轮换后应使用新密钥")
	}
	if !stored.SecretIssuedAt.After(w.SecretIssuedAt) {
		t.Error("签发时间应更新")
	}

	if _, err := svc.RotateSecret(context.Background(), "missing"); !errors.Is(err, ErrWeddingNotFound) {
		t.Errorf("期望 ErrWeddingNotFound，实际: %v", err)
	}
}

// ── Events ──

func TestAddEvent_DateWarning(t *testing.T) {
	svc, m := setupTestWeddingService()
	w, _ := seedWedding(m)

	near, err := svc.AddEvent(context.Background(), w.WeddingID, &dto.EventRequest{
		Name:     "仪式",
		StartsAt: "2027-05-20T10:00:00+08:00",
		EndsAt:   "2027-05-20T12:00:00+08:00",
	})
	if err != nil {
		t.Fatalf("AddEvent 应成功: %v", err)
	}
	if len(near.Warnings) != 0 {
		t.Errorf("婚期当天不应有警告: %v", near.Warnings)
	}

	far, err := svc.AddEvent(context.Background(), w.WeddingID, &dto.EventRequest{
		Name:     "答谢宴",
		StartsAt: "2027-07-01T18:00:00Z",
	})
	if err != nil {
		t.Fatalf("偏离婚期的活动仍应创建: %v", err)
	}
	if len(far.Warnings) != 1 {
		t.Errorf("期望 1 条警告，实际 %v", far.Warnings)
	}
	if len(m.event.events) != 2 {
		t.Errorf("期望 2 个活动，实际 %d", len(m.event.events))
	}
}

func TestAddEvent_Validation(t *testing.T) {
	svc, m := setupTestWeddingService()
	w, _ := seedWedding(m)

	_, err := svc.AddEvent(context.Background(), w.WeddingID, &dto.EventRequest{
		Name:     "仪式",
		StartsAt: "2027-05-20T10:00:00Z",
		EndsAt:   "2027-05-20T09:00:00Z",
	})
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("结束早于开始应校验失败，实际: %v", err)
	}

	_, err = svc.AddEvent(context.Background(), w.WeddingID, &dto.EventRequest{Name: "仪式", StartsAt: "tomorrow"})
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("非法时间应校验失败，实际: %v", err)
	}
}

func TestUpdateAndRemoveEvent(t *testing.T) {
	svc, m := setupTestWeddingService()
	w, events := seedWedding(m, "仪式")

	resp, err := svc.UpdateEvent(context.Background(), w.WeddingID, events[0], &dto.EventRequest{
		Name:      "教堂仪式",
		StartsAt:  "2027-05-20T09:00:00Z",
		IsPrivate: true,
	})
	if err != nil {
		t.Fatalf("UpdateEvent 应成功: %v", err)
	}
	if resp.Event.Name != "教堂仪式" || !resp.Event.IsPrivate {
		t.Errorf("更新结果错误: %+v", resp.Event)
	}

	if _, err := svc.UpdateEvent(context.Background(), "other", events[0], &dto.EventRequest{Name: "x", StartsAt: "2027-05-20T09:00:00Z"}); !errors.Is(err, ErrWeddingNotFound) {
		t.Errorf("期望 ErrWeddingNotFound，实际: %v", err)
	}

	if err := svc.RemoveEvent(context.Background(), w.WeddingID, events[0]); err != nil {
		t.Fatalf("RemoveEvent 应成功: %v", err)
	}
	if err := svc.RemoveEvent(context.Background(), w.WeddingID, events[0]); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("重复删除应返回 ErrEventNotFound，实际: %v", err)
	}
}

func TestImportEventsFromICS(t *testing.T) {
	svc, m := setupTestWeddingService()
	w, _ := seedWedding(m, "已有活动")

	resp, err := svc.ImportEventsFromICS(context.Background(), w.WeddingID, strings.NewReader(sampleICS))
	if err != nil {
		t.Fatalf("导入应成功: %v", err)
	}
	if len(resp.Imported) != 2 || resp.Skipped != 1 {
		t.Fatalf("期望导入 2 跳过 1，实际 %d/%d", len(resp.Imported), resp.Skipped)
	}
	if resp.Imported[0].DisplayOrder != 1 || resp.Imported[1].DisplayOrder != 2 {
		t.Errorf("导入的活动应排在已有活动之后: %+v", resp.Imported)
	}

	_, err = svc.ImportEventsFromICS(context.Background(), w.WeddingID, strings.NewReader("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("空日历应校验失败，实际: %v", err)
	}
}

func TestSlugify(t *testing.T) {
	date := time.Date(2027, 5, 20, 0, 0, 0, 0, time.UTC)
	cases := map[[2]string]string{
		{"Alice", "Bob"}:           "alice-bob-20270520",
		{"Zoë O'Neil", "Li Wei 2"}: "zoeoneil-liwei2-20270520",
		{"José", "Chloé"}:          "jose-chloe-20270520",
		{"张伟", "Bob"}:              "bob-20270520",
	}
	for in, want := range cases {
		if got := slugify(in[0], in[1], date); got != want {
			t.Errorf("slugify(%q,%q)=%s，期望 %s", in[0], in[1], got, want)
		}
	}
}
