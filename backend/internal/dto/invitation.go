package dto

// ── 邀请模块 DTO ──

// GuestEntry 批量创建中的单个宾客条目
type GuestEntry struct {
	GuestName       string   `json:"guest_name"`
	GuestEmail      string   `json:"guest_email"`
	MaxGuests       int      `json:"max_guests"`
	AllowPlusOne    bool     `json:"allow_plus_one"`
	InvitedEventIDs []string `json:"invited_event_ids"`
	IsFamily        bool     `json:"is_family"`
}

// CreateInvitationsRequest 批量创建邀请请求
// 单条目校验在服务层逐条进行，某条失败不影响其余条目
type CreateInvitationsRequest struct {
	Guests []GuestEntry `json:"guests" binding:"required,min=1"`
}

// InvitationResult 批量创建中单条目的结果
type InvitationResult struct {
	Index        int                 `json:"index"`
	GuestName    string              `json:"guest_name"`
	Success      bool                `json:"success"`
	InvitationID string              `json:"invitation_id,omitempty"`
	Code         string              `json:"code,omitempty"`
	RSVPLink     string              `json:"rsvp_link,omitempty"`
	QRTargetURL  string              `json:"qr_target_url,omitempty"`
	ErrorCode    int                 `json:"error_code,omitempty"`
	Error        string              `json:"error,omitempty"`
	FieldErrors  []FieldErrorPayload `json:"field_errors,omitempty"`
}

// FieldErrorPayload 字段错误
type FieldErrorPayload struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CreateInvitationsResponse 批量创建响应
type CreateInvitationsResponse struct {
	Total     int                `json:"total"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Results   []InvitationResult `json:"results"`
}

// UpdateInvitationRequest 更新邀请请求；邀请码不可修改
type UpdateInvitationRequest struct {
	GuestName       *string   `json:"guest_name" binding:"omitempty,max=100"`
	GuestEmail      *string   `json:"guest_email" binding:"omitempty,max=255"`
	MaxGuests       *int      `json:"max_guests" binding:"omitempty,min=1"`
	AllowPlusOne    *bool     `json:"allow_plus_one"`
	InvitedEventIDs *[]string `json:"invited_event_ids"`
	IsFamily        *bool     `json:"is_family"`
}

// InvitationListRequest 邀请列表查询参数
type InvitationListRequest struct {
	Status   string `form:"status" binding:"omitempty,oneof=sent viewed responded"`
	Keyword  string `form:"keyword"`
	Page     int    `form:"page,default=1" binding:"min=1"`
	PageSize int    `form:"page_size,default=20" binding:"min=1,max=200"`
}

// InvitationResponse 邀请信息响应（主人视图）
type InvitationResponse struct {
	InvitationID    string   `json:"invitation_id"`
	GuestName       string   `json:"guest_name"`
	GuestEmail      string   `json:"guest_email,omitempty"`
	Code            string   `json:"code"`
	RSVPLink        string   `json:"rsvp_link"`
	QRTargetURL     string   `json:"qr_target_url"`
	MaxGuests       int      `json:"max_guests"`
	AllowPlusOne    bool     `json:"allow_plus_one"`
	InvitedEventIDs []string `json:"invited_event_ids"`
	IsFamily        bool     `json:"is_family"`
	Status          string   `json:"status"`
	ViewedAt        string   `json:"viewed_at,omitempty"`
	RespondedAt     string   `json:"responded_at,omitempty"`
	CreatedAt       string   `json:"created_at"`
}

// ResolvedInvitationResponse 宾客打开邀请链接时的响应
type ResolvedInvitationResponse struct {
	GuestName    string             `json:"guest_name"`
	MaxGuests    int                `json:"max_guests"`
	AllowPlusOne bool               `json:"allow_plus_one"`
	IsFamily     bool               `json:"is_family"`
	Status       string             `json:"status"`
	Wedding      WeddingSummary     `json:"wedding"`
	Events       []EventResponse    `json:"events"`
	Questions    []QuestionResponse `json:"questions"`
	ExistingRSVP *RSVPResponse      `json:"existing_rsvp,omitempty"`
}
