package dto

// ── RSVP 模块 DTO ──

// AnswerPayload 自定义问题回答
// text 类型填写 text，选择类填写 choices
type AnswerPayload struct {
	QuestionID string   `json:"question_id" binding:"required"`
	Text       string   `json:"text"`
	Choices    []string `json:"choices"`
}

// SubmitRSVPRequest 提交 RSVP 请求
type SubmitRSVPRequest struct {
	GuestName         string          `json:"guest_name" binding:"required,max=100"`
	GuestEmail        string          `json:"guest_email" binding:"omitempty,email,max=255"`
	GuestPhone        string          `json:"guest_phone" binding:"omitempty,max=30"`
	AttendingEventIDs []string        `json:"attending_event_ids"`
	NumberOfGuests    int             `json:"number_of_guests"`
	PlusOneName       string          `json:"plus_one_name" binding:"omitempty,max=100"`
	DietaryNotes      string          `json:"dietary_notes" binding:"omitempty,max=2000"`
	Message           string          `json:"message" binding:"omitempty,max=4000"`
	Answers           []AnswerPayload `json:"answers"`
}

// SubmitRSVPResponse 提交 RSVP 响应
type SubmitRSVPResponse struct {
	RSVPID    string `json:"rsvp_id"`
	Updated   bool   `json:"updated"` // true 表示覆盖了之前的回复
	Message   string `json:"message"`
	Attending bool   `json:"attending"`
}

// AnswerResponse 回答响应
type AnswerResponse struct {
	QuestionID string   `json:"question_id"`
	AnswerType string   `json:"answer_type"`
	Text       string   `json:"text,omitempty"`
	Choices    []string `json:"choices,omitempty"`
	NonBinding bool     `json:"non_binding"`
}

// RSVPResponse RSVP 详情响应
type RSVPResponse struct {
	RSVPID            string           `json:"rsvp_id"`
	InvitationID      string           `json:"invitation_id"`
	GuestName         string           `json:"guest_name"`
	GuestEmail        string           `json:"guest_email,omitempty"`
	GuestPhone        string           `json:"guest_phone,omitempty"`
	AttendingEventIDs []string         `json:"attending_event_ids"`
	NumberOfGuests    int              `json:"number_of_guests"`
	PlusOneName       string           `json:"plus_one_name,omitempty"`
	DietaryNotes      string           `json:"dietary_notes,omitempty"`
	Message           string           `json:"message,omitempty"`
	SubmittedAt       string           `json:"submitted_at"`
	Answers           []AnswerResponse `json:"answers"`
}

// RSVPListRequest RSVP 列表查询参数
type RSVPListRequest struct {
	Attending *bool `form:"attending"`
	Page      int   `form:"page,default=1" binding:"min=1"`
	PageSize  int   `form:"page_size,default=50" binding:"min=1,max=500"`
}

// ── 自定义问题 ──

// QuestionRequest 创建/更新问题请求
type QuestionRequest struct {
	Text         string   `json:"text" binding:"required,max=500"`
	AnswerType   string   `json:"answer_type" binding:"required,oneof=single_choice multi_choice text"`
	Options      []string `json:"options"`
	Required     bool     `json:"required"`
	EventIDs     []string `json:"event_ids"`
	DisplayOrder int      `json:"display_order"`
}

// QuestionResponse 问题响应
type QuestionResponse struct {
	QuestionID   string   `json:"question_id"`
	Text         string   `json:"text"`
	AnswerType   string   `json:"answer_type"`
	Options      []string `json:"options"`
	Required     bool     `json:"required"`
	EventIDs     []string `json:"event_ids"`
	DisplayOrder int      `json:"display_order"`
}

// ── 看板 ──

// EventHeadcount 单个活动的出席统计
type EventHeadcount struct {
	EventID      string `json:"event_id"`
	Name         string `json:"name"`
	Headcount    int    `json:"headcount"`
	RSVPCount    int    `json:"rsvp_count"`
	MaxGuests    *int   `json:"max_guests,omitempty"`
	OverCapacity bool   `json:"over_capacity"`
}

// DietaryNote 饮食备注
type DietaryNote struct {
	GuestName string `json:"guest_name"`
	Notes     string `json:"notes"`
}

// DashboardResponse 婚礼看板
type DashboardResponse struct {
	TotalInvitations  int              `json:"total_invitations"`
	TotalResponded    int              `json:"total_responded"`
	ResponseRate      float64          `json:"response_rate"` // 百分比，保留一位小数
	AttendingRSVPs    int              `json:"attending_rsvps"`
	DeclinedRSVPs     int              `json:"declined_rsvps"`
	AttendingGuests   int              `json:"attending_guests"`
	PendingInvites    int              `json:"pending_invitations"`
	StatusBreakdown   map[string]int   `json:"status_breakdown"`
	InvitedGuestSlots int              `json:"invited_guest_slots"`
	Events            []EventHeadcount `json:"events"`
	DietaryNotes      []DietaryNote    `json:"dietary_notes"`
}
