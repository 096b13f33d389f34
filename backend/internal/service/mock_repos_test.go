package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"wedly/backend/internal/model"
	"wedly/backend/internal/repository"
	pkgerrors "wedly/backend/pkg/errors"
)

// ── Mock WeddingRepository ──

type mockWeddingRepo struct {
	mu       sync.Mutex
	weddings map[string]*model.Wedding
	seq      int
}

func newMockWeddingRepo() *mockWeddingRepo {
	return &mockWeddingRepo{weddings: make(map[string]*model.Wedding)}
}

func (m *mockWeddingRepo) Create(_ context.Context, w *model.Wedding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.weddings {
		if existing.Slug == w.Slug || existing.SecretToken == w.SecretToken {
			return gorm.ErrDuplicatedKey
		}
	}
	if w.WeddingID == "" {
		m.seq++
		w.WeddingID = fmt.Sprintf("wedding-%d", m.seq)
	}
	if w.Status == "" {
		w.Status = model.WeddingStatusActive
	}
	if w.Version == 0 {
		w.Version = 1
	}
	w.CreatedAt = time.Now()
	cp := *w
	m.weddings[w.WeddingID] = &cp
	return nil
}

func (m *mockWeddingRepo) GetByID(_ context.Context, id string) (*model.Wedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.weddings[id]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWeddingRepo) GetBySlug(_ context.Context, slug string) (*model.Wedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.weddings {
		if w.Slug == slug {
			cp := *w
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWeddingRepo) GetBySecret(_ context.Context, secret string) (*model.Wedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.weddings {
		if w.SecretToken == secret {
			cp := *w
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWeddingRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.weddings {
		if w.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockWeddingRepo) Update(_ context.Context, w *model.Wedding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.weddings[w.WeddingID]
	if !ok || existing.Version != w.Version {
		return pkgerrors.ErrOptimisticLock
	}
	w.Version++
	cp := *w
	cp.SecretToken = existing.SecretToken
	cp.SecretIssuedAt = existing.SecretIssuedAt
	m.weddings[w.WeddingID] = &cp
	return nil
}

func (m *mockWeddingRepo) RotateSecret(_ context.Context, id, secret string, issuedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.weddings[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	w.SecretToken = secret
	w.SecretIssuedAt = issuedAt
	return nil
}

// ── Mock EventRepository ──

type mockEventRepo struct {
	mu     sync.Mutex
	events map[string]*model.WeddingEvent
	seq    int
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{events: make(map[string]*model.WeddingEvent)}
}

func (m *mockEventRepo) Create(_ context.Context, e *model.WeddingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.EventID == "" {
		m.seq++
		e.EventID = fmt.Sprintf("event-%d", m.seq)
	}
	cp := *e
	m.events[e.EventID] = &cp
	return nil
}

func (m *mockEventRepo) GetByID(_ context.Context, weddingID, eventID string) (*model.WeddingEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.events[eventID]; ok && e.WeddingID == weddingID {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEventRepo) ListByWedding(_ context.Context, weddingID string) ([]model.WeddingEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.WeddingEvent
	for _, e := range m.events {
		if e.WeddingID == weddingID {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DisplayOrder != result[j].DisplayOrder {
			return result[i].DisplayOrder < result[j].DisplayOrder
		}
		return result[i].StartsAt.Before(result[j].StartsAt)
	})
	return result, nil
}

func (m *mockEventRepo) Update(_ context.Context, e *model.WeddingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.events[e.EventID] = &cp
	return nil
}

func (m *mockEventRepo) Delete(_ context.Context, weddingID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[eventID]
	if !ok || e.WeddingID != weddingID {
		return gorm.ErrRecordNotFound
	}
	delete(m.events, eventID)
	return nil
}

// ── Mock InvitationRepository ──

type mockInvitationRepo struct {
	mu          sync.Mutex
	invitations map[string]*model.Invitation
	seq         int
	// raceCodes 中的邀请码在 ExistsByCode 时报告不存在、Create 时报告唯一约束冲突，模拟并发抢占
	raceCodes map[string]bool
	// codeLookups 按邀请码查询的次数
	codeLookups int
}

func newMockInvitationRepo() *mockInvitationRepo {
	return &mockInvitationRepo{
		invitations: make(map[string]*model.Invitation),
		raceCodes:   make(map[string]bool),
	}
}

func (m *mockInvitationRepo) Create(_ context.Context, inv *model.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raceCodes[inv.Code] {
		return gorm.ErrDuplicatedKey
	}
	for _, existing := range m.invitations {
		if existing.Code == inv.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	m.seq++
	if inv.InvitationID == "" {
		inv.InvitationID = fmt.Sprintf("inv-%d", m.seq)
	}
	if inv.Status == "" {
		inv.Status = model.InvitationStatusSent
	}
	inv.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	cp := *inv
	m.invitations[inv.InvitationID] = &cp
	return nil
}

func (m *mockInvitationRepo) ExistsByCode(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codeLookups++
	for _, inv := range m.invitations {
		if inv.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockInvitationRepo) GetByCode(_ context.Context, code string) (*model.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invitations {
		if inv.Code == code {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInvitationRepo) GetByID(_ context.Context, weddingID, id string) (*model.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv, ok := m.invitations[id]; ok && inv.WeddingID == weddingID {
		cp := *inv
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInvitationRepo) List(ctx context.Context, weddingID string, filter repository.InvitationFilter, offset, limit int) ([]model.Invitation, int64, error) {
	all, _ := m.ListByWedding(ctx, weddingID)
	var filtered []model.Invitation
	for _, inv := range all {
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.Keyword != "" &&
			!strings.Contains(strings.ToLower(inv.GuestName), strings.ToLower(filter.Keyword)) &&
			!strings.Contains(strings.ToLower(inv.GuestEmail), strings.ToLower(filter.Keyword)) {
			continue
		}
		filtered = append(filtered, inv)
	}
	total := int64(len(filtered))
	if offset >= len(filtered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

func (m *mockInvitationRepo) ListByWedding(_ context.Context, weddingID string) ([]model.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Invitation
	for _, inv := range m.invitations {
		if inv.WeddingID == weddingID {
			result = append(result, *inv)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *mockInvitationRepo) Update(_ context.Context, inv *model.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.invitations[inv.InvitationID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	existing.GuestName = inv.GuestName
	existing.GuestEmail = inv.GuestEmail
	existing.MaxGuests = inv.MaxGuests
	existing.AllowPlusOne = inv.AllowPlusOne
	existing.InvitedEventIDs = inv.InvitedEventIDs
	existing.IsFamily = inv.IsFamily
	return nil
}

func (m *mockInvitationRepo) MarkViewed(_ context.Context, code string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codeLookups++
	for _, inv := range m.invitations {
		if inv.Code == code && inv.Status == model.InvitationStatusSent {
			inv.Status = model.InvitationStatusViewed
			inv.ViewedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (m *mockInvitationRepo) MarkResponded(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv, ok := m.invitations[id]; ok {
		inv.Status = model.InvitationStatusResponded
		inv.RespondedAt = &at
	}
	return nil
}

func (m *mockInvitationRepo) CountByStatus(_ context.Context, weddingID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, inv := range m.invitations {
		if inv.WeddingID == weddingID {
			counts[inv.Status]++
		}
	}
	return counts, nil
}

func (m *mockInvitationRepo) SumMaxGuests(_ context.Context, weddingID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := 0
	for _, inv := range m.invitations {
		if inv.WeddingID == weddingID {
			sum += inv.MaxGuests
		}
	}
	return sum, nil
}

// ── Mock RSVPRepository / ResponseRepository ──

type mockRSVPRepo struct {
	mu        sync.Mutex
	rsvps     map[string]*model.RSVP // key: invitation_id
	responses map[string][]model.RSVPResponse
	seq       int
	upserts   int
}

func newMockRSVPRepo() *mockRSVPRepo {
	return &mockRSVPRepo{
		rsvps:     make(map[string]*model.RSVP),
		responses: make(map[string][]model.RSVPResponse),
	}
}

func (m *mockRSVPRepo) Upsert(_ context.Context, rsvp *model.RSVP) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	inserted := false
	if existing, ok := m.rsvps[rsvp.InvitationID]; ok {
		rsvp.RSVPID = existing.RSVPID
		rsvp.CreatedAt = existing.CreatedAt
	} else {
		m.seq++
		rsvp.RSVPID = fmt.Sprintf("rsvp-%d", m.seq)
		rsvp.CreatedAt = time.Now()
		inserted = true
	}
	cp := *rsvp
	cp.Responses = nil
	m.rsvps[rsvp.InvitationID] = &cp
	return inserted, nil
}

func (m *mockRSVPRepo) withResponses(r *model.RSVP) model.RSVP {
	cp := *r
	cp.Responses = append([]model.RSVPResponse(nil), m.responses[r.RSVPID]...)
	return cp
}

func (m *mockRSVPRepo) GetByInvitation(_ context.Context, invitationID string) (*model.RSVP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rsvps[invitationID]; ok {
		cp := m.withResponses(r)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRSVPRepo) List(ctx context.Context, weddingID string, attending *bool, offset, limit int) ([]model.RSVP, int64, error) {
	all, _ := m.ListByWedding(ctx, weddingID)
	var filtered []model.RSVP
	for _, r := range all {
		if attending != nil && r.IsAttending() != *attending {
			continue
		}
		filtered = append(filtered, r)
	}
	total := int64(len(filtered))
	if offset >= len(filtered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

func (m *mockRSVPRepo) ListByWedding(_ context.Context, weddingID string) ([]model.RSVP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.RSVP
	for _, r := range m.rsvps {
		if r.WeddingID == weddingID {
			result = append(result, m.withResponses(r))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RSVPID < result[j].RSVPID })
	return result, nil
}

type mockResponseRepo struct {
	rsvp *mockRSVPRepo
}

func (m *mockResponseRepo) ReplaceForRSVP(_ context.Context, rsvpID string, responses []model.RSVPResponse) error {
	m.rsvp.mu.Lock()
	defer m.rsvp.mu.Unlock()
	for i := range responses {
		responses[i].RSVPID = rsvpID
		responses[i].ResponseID = fmt.Sprintf("%s-resp-%d", rsvpID, i)
	}
	m.rsvp.responses[rsvpID] = append([]model.RSVPResponse(nil), responses...)
	return nil
}

// ── Mock QuestionRepository ──

type mockQuestionRepo struct {
	mu        sync.Mutex
	questions map[string]*model.RSVPQuestion
	seq       int
}

func newMockQuestionRepo() *mockQuestionRepo {
	return &mockQuestionRepo{questions: make(map[string]*model.RSVPQuestion)}
}

func (m *mockQuestionRepo) Create(_ context.Context, q *model.RSVPQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.QuestionID == "" {
		m.seq++
		q.QuestionID = fmt.Sprintf("question-%d", m.seq)
	}
	cp := *q
	m.questions[q.QuestionID] = &cp
	return nil
}

func (m *mockQuestionRepo) GetByID(_ context.Context, weddingID, id string) (*model.RSVPQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.questions[id]; ok && q.WeddingID == weddingID {
		cp := *q
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockQuestionRepo) ListByWedding(_ context.Context, weddingID string) ([]model.RSVPQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.RSVPQuestion
	for _, q := range m.questions {
		if q.WeddingID == weddingID {
			result = append(result, *q)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DisplayOrder != result[j].DisplayOrder {
			return result[i].DisplayOrder < result[j].DisplayOrder
		}
		return result[i].QuestionID < result[j].QuestionID
	})
	return result, nil
}

func (m *mockQuestionRepo) Update(_ context.Context, q *model.RSVPQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *q
	m.questions[q.QuestionID] = &cp
	return nil
}

func (m *mockQuestionRepo) Delete(_ context.Context, weddingID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok || q.WeddingID != weddingID {
		return gorm.ErrRecordNotFound
	}
	delete(m.questions, id)
	return nil
}

// ── 测试辅助 ──

type mockRepos struct {
	wedding    *mockWeddingRepo
	event      *mockEventRepo
	invitation *mockInvitationRepo
	rsvp       *mockRSVPRepo
	question   *mockQuestionRepo
}

func newMockRepository() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		wedding:    newMockWeddingRepo(),
		event:      newMockEventRepo(),
		invitation: newMockInvitationRepo(),
		rsvp:       newMockRSVPRepo(),
		question:   newMockQuestionRepo(),
	}
	repo := &repository.Repository{
		Wedding:    m.wedding,
		Event:      m.event,
		Invitation: m.invitation,
		RSVP:       m.rsvp,
		Question:   m.question,
		Response:   &mockResponseRepo{rsvp: m.rsvp},
	}
	return repo, m
}

func intPtr(v int) *int { return &v }

// seedWedding 写入一场婚礼及若干活动，返回婚礼与活动 ID（按传入顺序）
func seedWedding(m *mockRepos, eventNames ...string) (*model.Wedding, []string) {
	w := &model.Wedding{
		Slug:           "alice-bob",
		PartnerOneName: "Alice",
		PartnerTwoName: "Bob",
		WeddingDate:    time.Date(2027, 5, 20, 0, 0, 0, 0, time.UTC),
		VenueName:      "湖畔花园",
		VenueAddress:   "西湖路 1 号",
		ContactEmail:   "couple@example.com",
		SecretToken:    "secret-token-for-tests",
		SecretIssuedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		IsPublic:       true,
		Status:         model.WeddingStatusActive,
	}
	_ = m.wedding.Create(context.Background(), w)

	ids := make([]string, 0, len(eventNames))
	for i, name := range eventNames {
		e := &model.WeddingEvent{
			WeddingID:    w.WeddingID,
			Name:         name,
			StartsAt:     w.WeddingDate.Add(time.Duration(10+i*4) * time.Hour),
			DisplayOrder: i,
		}
		_ = m.event.Create(context.Background(), e)
		ids = append(ids, e.EventID)
	}
	return w, ids
}

// seedInvitation 直接写入一个邀请
func seedInvitation(m *mockRepos, weddingID, code, guest string, maxGuests int, eventIDs ...string) *model.Invitation {
	inv := &model.Invitation{
		WeddingID:       weddingID,
		GuestName:       guest,
		Code:            code,
		MaxGuests:       maxGuests,
		InvitedEventIDs: model.StringArray(eventIDs),
	}
	_ = m.invitation.Create(context.Background(), inv)
	return inv
}
