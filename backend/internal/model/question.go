package model

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// 问题回答类型
const (
	AnswerTypeSingleChoice = "single_choice"
	AnswerTypeMultiChoice  = "multi_choice"
	AnswerTypeText         = "text"
)

// RSVPQuestion 婚礼自定义问题，对应 rsvp_questions
// EventIDs 为空表示适用于全部活动
type RSVPQuestion struct {
	QuestionID   string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"question_id"`
	WeddingID    string         `gorm:"type:uuid;not null;index"                       json:"wedding_id"`
	Text         string         `gorm:"column:question_text;type:varchar(500);not null" json:"text"`
	AnswerType   string         `gorm:"type:varchar(20);not null"                      json:"answer_type"`
	Options      datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"               json:"options"`
	Required     bool           `gorm:"column:is_required;not null;default:false"      json:"required"`
	EventIDs     StringArray    `gorm:"type:uuid[];not null;default:'{}'"              json:"event_ids"`
	DisplayOrder int            `gorm:"not null;default:0"                             json:"display_order"`
	SoftDeleteModel
}

// TableName 指定表名
func (RSVPQuestion) TableName() string { return "rsvp_questions" }

// OptionList 解析选项列表；格式异常时返回空
func (q *RSVPQuestion) OptionList() []string {
	var opts []string
	if len(q.Options) == 0 {
		return opts
	}
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil
	}
	return opts
}

// AnswerValue 带类型标签的回答值
// text 类型使用 Text，选择类使用 Choices
type AnswerValue struct {
	Type    string   `json:"type"`
	Text    string   `json:"text,omitempty"`
	Choices []string `json:"choices,omitempty"`
}

// RSVPResponse 自定义问题回答，对应 rsvp_responses，每个 (RSVP, 问题) 至多一条
type RSVPResponse struct {
	ResponseID string                          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"response_id"`
	RSVPID     string                          `gorm:"column:rsvp_id;type:uuid;not null"              json:"rsvp_id"`
	QuestionID string                          `gorm:"type:uuid;not null"                             json:"question_id"`
	AnswerType string                          `gorm:"type:varchar(20);not null"                      json:"answer_type"`
	Value      datatypes.JSONType[AnswerValue] `gorm:"type:jsonb;not null"                            json:"value"`
	NonBinding bool                            `gorm:"not null;default:false"                         json:"non_binding"`
	BaseModel
}

// TableName 指定表名
func (RSVPResponse) TableName() string { return "rsvp_responses" }
