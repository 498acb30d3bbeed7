package services

import (
	"context"
	"errors"
	"time"

	"github.com/terraincognita07/bemcuidar/internal/models"
)

type ProfileView struct {
	User          models.User          `json:"user"`
	HealthProfile models.HealthProfile `json:"health_profile"`
}

func (service *PreventiveService) Profile(userID uint) (ProfileView, error) {
	user, profile, err := service.loadProfile(userID)
	if err != nil {
		return ProfileView{}, err
	}
	return ProfileView{User: user, HealthProfile: profile}, nil
}

// UpdateProfile replaces the health answers of a user. A nil remindersEnabled
// leaves the reminder preference alone.
func (service *PreventiveService) UpdateProfile(ctx context.Context, userID uint, profile models.HealthProfile, remindersEnabled *bool, now time.Time) (ProfileView, error) {
	sanitized, err := SanitizeHealthProfile(profile)
	if err != nil {
		return ProfileView{}, err
	}
	if _, _, err := service.loadProfile(userID); err != nil && !errors.Is(err, ErrHealthProfileNotFound) {
		return ProfileView{}, err
	}

	sanitized.ID = 0
	sanitized.UserID = userID
	sanitized.CreatedAt = now
	sanitized.UpdatedAt = now
	if err := service.profiles.Upsert(&sanitized); err != nil {
		return ProfileView{}, err
	}

	if remindersEnabled != nil {
		if err := service.users.UpdateByID(userID, map[string]any{"reminders_enabled": *remindersEnabled}); err != nil {
			return ProfileView{}, err
		}
	}

	service.invalidateExams(ctx, userID, now)
	service.logger.WithField("user_id", userID).Info("health profile updated")
	return service.Profile(userID)
}
