package model

import "time"

// 婚礼状态（软状态，不做物理删除）
const (
	WeddingStatusActive   = "active"
	WeddingStatusArchived = "archived"
)

// Wedding 婚礼，对应 weddings
type Wedding struct {
	WeddingID          string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"wedding_id"`
	Slug               string    `gorm:"type:varchar(120);not null;uniqueIndex"         json:"slug"`
	PartnerOneName     string    `gorm:"type:varchar(100);not null"                     json:"partner_one_name"`
	PartnerTwoName     string    `gorm:"type:varchar(100);not null"                     json:"partner_two_name"`
	WeddingDate        time.Time `gorm:"type:date;not null"                             json:"wedding_date"`
	VenueName          string    `gorm:"type:varchar(200);not null"                     json:"venue_name"`
	VenueAddress       string    `gorm:"type:varchar(300);not null"                     json:"venue_address"`
	CeremonyTime       string    `gorm:"type:varchar(5)"                                json:"ceremony_time,omitempty"`
	ReceptionTime      string    `gorm:"type:varchar(5)"                                json:"reception_time,omitempty"`
	ContactEmail       string    `gorm:"type:varchar(255);not null"                     json:"contact_email"`
	ContactPhone       string    `gorm:"type:varchar(30)"                               json:"contact_phone,omitempty"`
	SecretToken        string    `gorm:"type:varchar(64);not null;uniqueIndex"          json:"-"`
	SecretIssuedAt     time.Time `gorm:"not null"                                       json:"-"`
	AccessPasswordHash string    `gorm:"type:varchar(255)"                              json:"-"`
	IsPublic           bool      `gorm:"not null;default:false"                         json:"is_public"`
	MaxGuests          *int      `gorm:""                                               json:"max_guests,omitempty"`
	Status             string    `gorm:"type:varchar(20);not null;default:active"       json:"status"`
	VersionedModel

	Events []WeddingEvent `gorm:"foreignKey:WeddingID" json:"events,omitempty"`
}

// TableName 指定表名
func (Wedding) TableName() string { return "weddings" }

// CoupleNames 新人称呼，用于提示语与日历标题
func (w *Wedding) CoupleNames() string {
	return w.PartnerOneName + " & " + w.PartnerTwoName
}

// SecretVersion 会话中携带的密钥版本
func (w *Wedding) SecretVersion() int64 {
	return w.SecretIssuedAt.UnixMicro()
}

// WeddingEvent 婚礼子活动（仪式、晚宴、婚前活动等），对应 wedding_events
type WeddingEvent struct {
	EventID      string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"event_id"`
	WeddingID    string     `gorm:"type:uuid;not null;index"                       json:"wedding_id"`
	Name         string     `gorm:"type:varchar(100);not null"                     json:"name"`
	Description  string     `gorm:"type:text"                                      json:"description,omitempty"`
	StartsAt     time.Time  `gorm:"not null"                                       json:"starts_at"`
	EndsAt       *time.Time `gorm:""                                               json:"ends_at,omitempty"`
	VenueName    string     `gorm:"type:varchar(200)"                              json:"venue_name,omitempty"`
	VenueAddress string     `gorm:"type:varchar(300)"                              json:"venue_address,omitempty"`
	DressCode    string     `gorm:"type:varchar(100)"                              json:"dress_code,omitempty"`
	IsPrivate    bool       `gorm:"not null;default:false"                         json:"is_private"`
	MaxGuests    *int       `gorm:""                                               json:"max_guests,omitempty"`
	DisplayOrder int        `gorm:"not null;default:0"                             json:"display_order"`
	SoftDeleteModel
}

// TableName 指定表名
func (WeddingEvent) TableName() string { return "wedding_events" }
