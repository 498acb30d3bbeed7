package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/bemcuidar/internal/logging"
	"github.com/terraincognita07/bemcuidar/internal/models"
	"gorm.io/gorm"
)

var ErrHealthProfileNotFound = errors.New("health profile not found")

// ExamCache stores serialized exam lists per user and day.
type ExamCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// PreventiveObserver receives every freshly computed result. Metrics implement it.
type PreventiveObserver interface {
	ObserveExams(exams []CalculatedExam)
	ObserveRecommendations(recommendations []ExamRecommendation)
}

type PreventiveUserRepository interface {
	FindByID(userID uint) (models.User, error)
	UpdateByID(userID uint, updates map[string]any) error
	DeleteAccountAndRelatedData(userID uint) error
}

type HealthProfileRepository interface {
	FindByUserID(userID uint) (models.HealthProfile, error)
	Upsert(profile *models.HealthProfile) error
}

type PreventiveService struct {
	users      PreventiveUserRepository
	profiles   HealthProfileRepository
	history    ExamHistoryRepository
	guidelines *ExamGuidelines
	cache      ExamCache
	observer   PreventiveObserver
	logger     logrus.FieldLogger
}

type ExamSummary struct {
	Total    int `json:"total"`
	Overdue  int `json:"overdue"`
	Urgent   int `json:"urgent"`
	DueSoon  int `json:"due_soon"`
	UpToDate int `json:"up_to_date"`
}

type RecommendationList struct {
	Items   []ExamRecommendation `json:"items"`
	Total   int                  `json:"total"`
	Omitted int                  `json:"omitted"`
}

func NewPreventiveService(
	users PreventiveUserRepository,
	profiles HealthProfileRepository,
	history ExamHistoryRepository,
	guidelines *ExamGuidelines,
	cache ExamCache,
	observer PreventiveObserver,
	logger logrus.FieldLogger,
) *PreventiveService {
	if guidelines == nil {
		guidelines = DefaultExamGuidelines()
	}
	if cache == nil {
		cache = noopExamCache{}
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &PreventiveService{
		users:      users,
		profiles:   profiles,
		history:    history,
		guidelines: guidelines,
		cache:      cache,
		observer:   observer,
		logger:     logger,
	}
}

func (service *PreventiveService) Guidelines() *ExamGuidelines {
	return service.guidelines
}

// loadProfile returns the user's health profile with the birth date taken
// from the account.
func (service *PreventiveService) loadProfile(userID uint) (models.User, models.HealthProfile, error) {
	user, err := service.users.FindByID(userID)
	if err != nil {
		return models.User{}, models.HealthProfile{}, err
	}
	if user.BirthDate == nil || user.BirthDate.IsZero() {
		return models.User{}, models.HealthProfile{}, ErrBirthDateRequired
	}

	profile, err := service.profiles.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, models.HealthProfile{}, ErrHealthProfileNotFound
		}
		return models.User{}, models.HealthProfile{}, err
	}
	profile.BirthDate = *user.BirthDate
	return user, profile, nil
}

// Exams returns the applicable exams of a user in table order. Results are
// cached until the end of the day or the next profile or history change.
func (service *PreventiveService) Exams(ctx context.Context, userID uint, now time.Time) ([]CalculatedExam, error) {
	key := examCacheKey(userID, now)
	if raw, ok, err := service.cache.Get(ctx, key); err != nil {
		service.logger.WithField("user_id", userID).WithError(err).Warn("exam cache read failed")
	} else if ok {
		exams := make([]CalculatedExam, 0)
		if err := json.Unmarshal(raw, &exams); err == nil {
			return exams, nil
		}
		service.logger.WithField("user_id", userID).Warn("discarding undecodable exam cache entry")
	}

	user, profile, err := service.loadProfile(userID)
	if err != nil {
		return nil, err
	}
	records, err := service.history.ListByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("load exam history: %w", err)
	}

	age := CompletedYears(profile.BirthDate, now)
	exams := service.guidelines.GenerateUserExams(ExamHistoryFromRecords(records), age, user.Sex, profile.HasHypertension, now)
	service.observer.ObserveExams(exams)

	if raw, err := json.Marshal(exams); err == nil {
		if err := service.cache.Set(ctx, key, raw); err != nil {
			service.logger.WithField("user_id", userID).WithError(err).Warn("exam cache write failed")
		}
	}
	return exams, nil
}

func (service *PreventiveService) Alerts(ctx context.Context, userID uint, now time.Time) ([]CalculatedExam, error) {
	exams, err := service.Exams(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	return FilterExamAlerts(exams), nil
}

func (service *PreventiveService) Summary(ctx context.Context, userID uint, now time.Time) (ExamSummary, error) {
	exams, err := service.Exams(ctx, userID, now)
	if err != nil {
		return ExamSummary{}, err
	}
	return SummarizeExams(exams), nil
}

func SummarizeExams(exams []CalculatedExam) ExamSummary {
	summary := ExamSummary{Total: len(exams)}
	for _, exam := range exams {
		switch exam.Status {
		case ExamStatusOverdue:
			summary.Overdue++
			if exam.Priority == ExamPriorityUrgent {
				summary.Urgent++
			}
		case ExamStatusDueSoon:
			summary.DueSoon++
		case ExamStatusOK:
			summary.UpToDate++
		}
	}
	return summary
}

// Recommendations runs the risk assessment for the user's current profile.
// A positive limit truncates the list and reports how many were left out.
func (service *PreventiveService) Recommendations(userID uint, limit int, now time.Time) (RecommendationList, error) {
	_, profile, err := service.loadProfile(userID)
	if err != nil {
		return RecommendationList{}, err
	}

	recommendations := AssessHealthRisks(profile, now)
	service.observer.ObserveRecommendations(recommendations)

	items, omitted := TruncateRecommendations(recommendations, limit)
	return RecommendationList{Items: items, Total: len(recommendations), Omitted: omitted}, nil
}

// DeleteAccount removes the user with their profile and history, then drops
// today's cached exam list.
func (service *PreventiveService) DeleteAccount(ctx context.Context, userID uint, now time.Time) error {
	if err := service.users.DeleteAccountAndRelatedData(userID); err != nil {
		return err
	}
	service.invalidateExams(ctx, userID, now)
	service.logger.WithField("user_id", userID).Info("account deleted")
	return nil
}

func (service *PreventiveService) invalidateExams(ctx context.Context, userID uint, now time.Time) {
	if err := service.cache.Delete(ctx, examCacheKey(userID, now)); err != nil {
		service.logger.WithField("user_id", userID).WithError(err).Warn("exam cache invalidation failed")
	}
}

func examCacheKey(userID uint, now time.Time) string {
	return fmt.Sprintf("exams:%d:%s", userID, now.Format("2006-01-02"))
}

type noopExamCache struct{}

func (noopExamCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (noopExamCache) Set(context.Context, string, []byte) error {
	return nil
}

func (noopExamCache) Delete(context.Context, string) error {
	return nil
}

type noopObserver struct{}

func (noopObserver) ObserveExams([]CalculatedExam) {}

func (noopObserver) ObserveRecommendations([]ExamRecommendation) {}
