package db

import (
	"github.com/terraincognita07/bemcuidar/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type HealthProfileRepository struct {
	database *gorm.DB
}

func NewHealthProfileRepository(database *gorm.DB) *HealthProfileRepository {
	return &HealthProfileRepository{database: database}
}

func (repo *HealthProfileRepository) FindByUserID(userID uint) (models.HealthProfile, error) {
	var profile models.HealthProfile
	if err := repo.database.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return models.HealthProfile{}, err
	}
	return profile, nil
}

// Upsert replaces every answer of the user's profile.
func (repo *HealthProfileRepository) Upsert(profile *models.HealthProfile) error {
	return repo.database.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"smoking_status",
			"has_diabetes",
			"has_hypertension",
			"has_heart_disease",
			"has_obesity",
			"other_conditions",
			"family_breast_cancer",
			"family_colon_cancer",
			"family_prostate_cancer",
			"family_lung_cancer",
			"family_skin_cancer",
			"family_other",
			"family_other_description",
			"updated_at",
		}),
	}).Create(profile).Error
}
