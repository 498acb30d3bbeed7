package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/terraincognita07/bemcuidar/internal/models"
)

var ErrInvalidProfile = errors.New("invalid health profile")

var (
	ErrInvalidSmokingStatus = fmt.Errorf("%w: smoking status is required", ErrInvalidProfile)
	ErrBirthDateRequired    = fmt.Errorf("%w: birth date is required", ErrInvalidProfile)
	ErrBirthDateInFuture    = fmt.Errorf("%w: birth date is in the future", ErrInvalidProfile)
)

// NormalizeSex maps the labels used by registration forms onto the stored values.
func NormalizeSex(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case models.SexFemale, "feminino", "f":
		return models.SexFemale
	case models.SexMale, "masculino", "m":
		return models.SexMale
	case models.SexOther, "outro":
		return models.SexOther
	default:
		return ""
	}
}

// NormalizeSmokingStatus accepts the stored values and their pt-BR labels.
func NormalizeSmokingStatus(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case models.SmokingNever, "nunca", "no", "nao", "não":
		return models.SmokingNever, nil
	case models.SmokingFormer, "ex-fumante", "ex":
		return models.SmokingFormer, nil
	case models.SmokingCurrent, "fumante", "yes", "sim":
		return models.SmokingCurrent, nil
	default:
		return "", ErrInvalidSmokingStatus
	}
}

func ValidateBirthDate(birthDate time.Time, now time.Time) error {
	if birthDate.IsZero() {
		return ErrBirthDateRequired
	}
	if DateAtLocation(birthDate, now.Location()).After(DateAtLocation(now, now.Location())) {
		return ErrBirthDateInFuture
	}
	return nil
}

// SanitizeHealthProfile normalizes free-text fields and clears descriptions
// that no flag supports.
func SanitizeHealthProfile(profile models.HealthProfile) (models.HealthProfile, error) {
	status, err := NormalizeSmokingStatus(profile.SmokingStatus)
	if err != nil {
		return models.HealthProfile{}, err
	}
	profile.SmokingStatus = status
	profile.OtherConditions = strings.TrimSpace(profile.OtherConditions)
	profile.FamilyHistory.OtherDescription = strings.TrimSpace(profile.FamilyHistory.OtherDescription)
	if !profile.FamilyHistory.Other {
		profile.FamilyHistory.OtherDescription = ""
	}
	return profile, nil
}
