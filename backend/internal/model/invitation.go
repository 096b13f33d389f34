package model

import "time"

// 邀请状态：sent → viewed → responded，仅作遥测，不参与一致性判断
const (
	InvitationStatusSent      = "sent"
	InvitationStatusViewed    = "viewed"
	InvitationStatusResponded = "responded"
)

// Invitation 宾客邀请，对应 rsvp_invitations
// Code 一经签发不可修改
type Invitation struct {
	InvitationID    string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"invitation_id"`
	WeddingID       string      `gorm:"type:uuid;not null;index"                       json:"wedding_id"`
	GuestName       string      `gorm:"type:varchar(100);not null"                     json:"guest_name"`
	GuestEmail      string      `gorm:"type:varchar(255)"                              json:"guest_email,omitempty"`
	Code            string      `gorm:"type:varchar(32);not null;uniqueIndex"          json:"code"`
	MaxGuests       int         `gorm:"not null"                                       json:"max_guests"`
	AllowPlusOne    bool        `gorm:"not null;default:false"                         json:"allow_plus_one"`
	InvitedEventIDs StringArray `gorm:"type:uuid[];not null;default:'{}'"              json:"invited_event_ids"`
	IsFamily        bool        `gorm:"not null;default:false"                         json:"is_family"`
	Status          string      `gorm:"type:varchar(20);not null;default:sent"         json:"status"`
	ViewedAt        *time.Time  `gorm:""                                               json:"viewed_at,omitempty"`
	RespondedAt     *time.Time  `gorm:""                                               json:"responded_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Invitation) TableName() string { return "rsvp_invitations" }
