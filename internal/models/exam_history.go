package models

import "time"

type ExamHistory struct {
	ID        uint       `gorm:"primaryKey" json:"-"`
	UserID    uint       `gorm:"not null;uniqueIndex:uidx_user_exam" json:"-"`
	ExamKey   string     `gorm:"not null;uniqueIndex:uidx_user_exam" json:"exam_key"`
	Done      bool       `gorm:"not null;default:false" json:"done"`
	LastDate  *time.Time `gorm:"type:date" json:"last_date"`
	CreatedAt time.Time  `json:"-"`
	UpdatedAt time.Time  `json:"updated_at"`
}
