package dto

// ── 婚礼模块 DTO ──

// CreateWeddingRequest 创建婚礼请求
type CreateWeddingRequest struct {
	Slug           string `json:"slug" binding:"omitempty,min=3,max=120"`
	PartnerOneName string `json:"partner_one_name" binding:"required,max=100"`
	PartnerTwoName string `json:"partner_two_name" binding:"required,max=100"`
	WeddingDate    string `json:"wedding_date" binding:"required"` // YYYY-MM-DD
	VenueName      string `json:"venue_name" binding:"required,max=200"`
	VenueAddress   string `json:"venue_address" binding:"required,max=300"`
	CeremonyTime   string `json:"ceremony_time" binding:"omitempty,len=5"`  // HH:MM
	ReceptionTime  string `json:"reception_time" binding:"omitempty,len=5"` // HH:MM
	ContactEmail   string `json:"contact_email" binding:"required,email"`
	ContactPhone   string `json:"contact_phone" binding:"omitempty,max=30"`
	IsPublic       bool   `json:"is_public"`
	AccessPassword string `json:"access_password" binding:"omitempty,min=4,max=72"`
	MaxGuests      *int   `json:"max_guests" binding:"omitempty,min=1"`
}

// CreateWeddingResponse 创建婚礼响应，管理链接仅在此返回一次
type CreateWeddingResponse struct {
	WeddingID   string `json:"wedding_id"`
	Slug        string `json:"slug"`
	AdminLink   string `json:"admin_link"`
	AdminSecret string `json:"admin_secret"`
}

// UpdateWeddingRequest 更新婚礼请求（部分字段）
type UpdateWeddingRequest struct {
	PartnerOneName *string `json:"partner_one_name" binding:"omitempty,max=100"`
	PartnerTwoName *string `json:"partner_two_name" binding:"omitempty,max=100"`
	WeddingDate    *string `json:"wedding_date"`
	VenueName      *string `json:"venue_name" binding:"omitempty,max=200"`
	VenueAddress   *string `json:"venue_address" binding:"omitempty,max=300"`
	CeremonyTime   *string `json:"ceremony_time" binding:"omitempty,len=5"`
	ReceptionTime  *string `json:"reception_time" binding:"omitempty,len=5"`
	ContactEmail   *string `json:"contact_email" binding:"omitempty,email"`
	ContactPhone   *string `json:"contact_phone" binding:"omitempty,max=30"`
	IsPublic       *bool   `json:"is_public"`
	AccessPassword *string `json:"access_password" binding:"omitempty,max=72"` // 空字符串表示移除密码
	MaxGuests      *int    `json:"max_guests" binding:"omitempty,min=0"`       // 0 表示取消上限
	Status         *string `json:"status" binding:"omitempty,oneof=active archived"`
	Version        int     `json:"version" binding:"required,min=1"`
}

// WeddingResponse 婚礼信息响应（主人视图）
type WeddingResponse struct {
	WeddingID      string          `json:"wedding_id"`
	Slug           string          `json:"slug"`
	PartnerOneName string          `json:"partner_one_name"`
	PartnerTwoName string          `json:"partner_two_name"`
	WeddingDate    string          `json:"wedding_date"`
	VenueName      string          `json:"venue_name"`
	VenueAddress   string          `json:"venue_address"`
	CeremonyTime   string          `json:"ceremony_time,omitempty"`
	ReceptionTime  string          `json:"reception_time,omitempty"`
	ContactEmail   string          `json:"contact_email"`
	ContactPhone   string          `json:"contact_phone,omitempty"`
	IsPublic       bool            `json:"is_public"`
	HasPassword    bool            `json:"has_password"`
	MaxGuests      *int            `json:"max_guests,omitempty"`
	Status         string          `json:"status"`
	Version        int             `json:"version"`
	Events         []EventResponse `json:"events"`
}

// WeddingSummary 宾客可见的婚礼摘要
type WeddingSummary struct {
	Slug           string `json:"slug"`
	PartnerOneName string `json:"partner_one_name"`
	PartnerTwoName string `json:"partner_two_name"`
	WeddingDate    string `json:"wedding_date"`
	VenueName      string `json:"venue_name"`
	VenueAddress   string `json:"venue_address"`
	CeremonyTime   string `json:"ceremony_time,omitempty"`
	ReceptionTime  string `json:"reception_time,omitempty"`
}

// PublicWeddingResponse 公开婚礼页响应
type PublicWeddingResponse struct {
	Wedding WeddingSummary  `json:"wedding"`
	Events  []EventResponse `json:"events"`
}

// RotateSecretResponse 轮换管理密钥响应
type RotateSecretResponse struct {
	AdminLink   string `json:"admin_link"`
	AdminSecret string `json:"admin_secret"`
}

// ── 主人会话 ──

// OwnerSessionRequest 以管理密钥换取会话
type OwnerSessionRequest struct {
	Secret string `json:"secret" binding:"required"`
}

// OwnerSessionResponse 主人会话响应
type OwnerSessionResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"` // 秒
	WeddingID   string `json:"wedding_id"`
}

// ── 子活动 ──

// EventRequest 新增/更新子活动请求
type EventRequest struct {
	Name         string `json:"name" binding:"required,max=100"`
	Description  string `json:"description" binding:"omitempty,max=2000"`
	StartsAt     string `json:"starts_at" binding:"required"` // RFC3339
	EndsAt       string `json:"ends_at"`                      // RFC3339，可选
	VenueName    string `json:"venue_name" binding:"omitempty,max=200"`
	VenueAddress string `json:"venue_address" binding:"omitempty,max=300"`
	DressCode    string `json:"dress_code" binding:"omitempty,max=100"`
	IsPrivate    bool   `json:"is_private"`
	MaxGuests    *int   `json:"max_guests" binding:"omitempty,min=1"`
	DisplayOrder int    `json:"display_order"`
}

// EventResponse 子活动响应
type EventResponse struct {
	EventID      string `json:"event_id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	StartsAt     string `json:"starts_at"`
	EndsAt       string `json:"ends_at,omitempty"`
	VenueName    string `json:"venue_name,omitempty"`
	VenueAddress string `json:"venue_address,omitempty"`
	DressCode    string `json:"dress_code,omitempty"`
	IsPrivate    bool   `json:"is_private"`
	MaxGuests    *int   `json:"max_guests,omitempty"`
	DisplayOrder int    `json:"display_order"`
}

// EventMutationResponse 子活动写操作响应，附带日期偏离警告
type EventMutationResponse struct {
	Event    EventResponse `json:"event"`
	Warnings []string      `json:"warnings,omitempty"`
}

// ImportEventsResponse 日历导入结果
type ImportEventsResponse struct {
	Imported []EventResponse `json:"imported"`
	Skipped  int             `json:"skipped"`
	Warnings []string        `json:"warnings,omitempty"`
}

// ImportEventsRequest 通过日历订阅地址导入（支持 webcal://）
type ImportEventsRequest struct {
	URL string `json:"url" binding:"required,max=2048"`
}
