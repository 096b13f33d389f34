package model

import "time"

// RSVP 宾客回复，对应 rsvps，每个邀请至多一条
type RSVP struct {
	RSVPID            string      `gorm:"column:rsvp_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"rsvp_id"`
	InvitationID      string      `gorm:"type:uuid;not null;uniqueIndex"                                json:"invitation_id"`
	WeddingID         string      `gorm:"type:uuid;not null;index"                                      json:"wedding_id"`
	GuestName         string      `gorm:"type:varchar(100);not null"                                    json:"guest_name"`
	GuestEmail        string      `gorm:"type:varchar(255)"                                             json:"guest_email,omitempty"`
	GuestPhone        string      `gorm:"type:varchar(30)"                                              json:"guest_phone,omitempty"`
	AttendingEventIDs StringArray `gorm:"type:uuid[];not null;default:'{}'"                             json:"attending_event_ids"`
	NumberOfGuests    int         `gorm:"not null"                                                      json:"number_of_guests"`
	PlusOneName       string      `gorm:"type:varchar(100)"                                             json:"plus_one_name,omitempty"`
	DietaryNotes      string      `gorm:"type:text"                                                     json:"dietary_notes,omitempty"`
	Message           string      `gorm:"type:text"                                                     json:"message,omitempty"`
	SubmittedAt       time.Time   `gorm:"not null"                                                      json:"submitted_at"`
	BaseModel

	Responses []RSVPResponse `gorm:"foreignKey:RSVPID;references:RSVPID" json:"responses,omitempty"`
}

// TableName 指定表名
func (RSVP) TableName() string { return "rsvps" }

// IsAttending 是否出席至少一个活动
func (r *RSVP) IsAttending() bool {
	return len(r.AttendingEventIDs) > 0
}
