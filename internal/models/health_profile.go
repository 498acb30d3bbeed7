package models

import "time"

const (
	SmokingNever   = "never"
	SmokingFormer  = "former"
	SmokingCurrent = "current"
)

// HealthProfile is the per-user input of the risk assessment. Absent answers
// are stored as false, never as NULL.
type HealthProfile struct {
	ID              uint          `gorm:"primaryKey" json:"-"`
	UserID          uint          `gorm:"not null;uniqueIndex" json:"-"`
	BirthDate       time.Time     `gorm:"-" json:"birth_date"`
	SmokingStatus   string        `gorm:"not null;default:never" json:"smoking_status"`
	HasDiabetes     bool          `gorm:"not null;default:false" json:"has_diabetes"`
	HasHypertension bool          `gorm:"not null;default:false" json:"has_hypertension"`
	HasHeartDisease bool          `gorm:"not null;default:false" json:"has_heart_disease"`
	HasObesity      bool          `gorm:"not null;default:false" json:"has_obesity"`
	OtherConditions string        `json:"other_conditions"`
	FamilyHistory   FamilyHistory `gorm:"embedded;embeddedPrefix:family_" json:"family_history"`
	CreatedAt       time.Time     `json:"-"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

type FamilyHistory struct {
	BreastCancer     bool   `gorm:"not null;default:false" json:"breast_cancer"`
	ColonCancer      bool   `gorm:"not null;default:false" json:"colon_cancer"`
	ProstateCancer   bool   `gorm:"not null;default:false" json:"prostate_cancer"`
	LungCancer       bool   `gorm:"not null;default:false" json:"lung_cancer"`
	SkinCancer       bool   `gorm:"not null;default:false" json:"skin_cancer"`
	Other            bool   `gorm:"not null;default:false" json:"other"`
	OtherDescription string `json:"other_description"`
}
