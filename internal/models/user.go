package models

import "time"

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

const (
	SexFemale = "female"
	SexMale   = "male"
	SexOther  = "other"
)

type User struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Email              string     `gorm:"not null" json:"email"`
	PasswordHash       string     `gorm:"not null" json:"-"`
	MustChangePassword bool       `gorm:"not null;default:false" json:"-"`
	Role               string     `gorm:"not null;default:member" json:"role"`
	FullName           string     `gorm:"not null" json:"full_name"`
	CPF                string     `gorm:"column:cpf;not null" json:"cpf"`
	Phone              string     `gorm:"not null" json:"phone"`
	Sex                string     `gorm:"not null" json:"sex"`
	BirthDate          *time.Time `gorm:"type:date" json:"birth_date"`
	Address            Address    `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	RemindersEnabled   bool       `gorm:"not null;default:true" json:"reminders_enabled"`
	LastReminderAt     *time.Time `json:"-"`
	CreatedAt          time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type Address struct {
	ZipCode      string `json:"zip_code"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}
