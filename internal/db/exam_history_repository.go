package db

import (
	"github.com/terraincognita07/bemcuidar/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExamHistoryRepository struct {
	database *gorm.DB
}

func NewExamHistoryRepository(database *gorm.DB) *ExamHistoryRepository {
	return &ExamHistoryRepository{database: database}
}

func (repo *ExamHistoryRepository) ListByUserID(userID uint) ([]models.ExamHistory, error) {
	entries := make([]models.ExamHistory, 0)
	if err := repo.database.
		Where("user_id = ?", userID).
		Order("exam_key ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (repo *ExamHistoryRepository) Upsert(entry *models.ExamHistory) error {
	return repo.database.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "exam_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"done", "last_date", "updated_at"}),
	}).Create(entry).Error
}
