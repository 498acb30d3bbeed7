package db

import "gorm.io/gorm"

type Repositories struct {
	Users          *UserRepository
	HealthProfiles *HealthProfileRepository
	ExamHistories  *ExamHistoryRepository
}

func NewRepositories(database *gorm.DB) *Repositories {
	return &Repositories{
		Users:          NewUserRepository(database),
		HealthProfiles: NewHealthProfileRepository(database),
		ExamHistories:  NewExamHistoryRepository(database),
	}
}
