package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/terraincognita07/bemcuidar/internal/models"
)

var (
	ErrInvalidExamHistory = errors.New("invalid exam history")
	ErrExamDateInFuture   = fmt.Errorf("%w: exam date is in the future", ErrInvalidExamHistory)
)

type ExamHistoryRepository interface {
	ListByUserID(userID uint) ([]models.ExamHistory, error)
	Upsert(entry *models.ExamHistory) error
}

// NormalizeExamHistoryEntry clears the date of exams marked as not done and
// rejects dates after today.
func NormalizeExamHistoryEntry(entry ExamHistoryEntry, now time.Time) (ExamHistoryEntry, error) {
	if !entry.Done || entry.LastDate == nil || entry.LastDate.IsZero() {
		return ExamHistoryEntry{Done: entry.Done}, nil
	}

	day := DateAtLocation(*entry.LastDate, now.Location())
	if day.After(DateAtLocation(now, now.Location())) {
		return ExamHistoryEntry{}, ErrExamDateInFuture
	}
	return ExamHistoryEntry{Done: true, LastDate: &day}, nil
}

// HistoryRecords validates answers keyed by exam and turns them into rows in
// table order. Unknown keys are rejected.
func (table *ExamGuidelines) HistoryRecords(history map[string]ExamHistoryEntry, now time.Time) ([]models.ExamHistory, error) {
	for key := range history {
		if _, ok := table.Lookup(key); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownExam, key)
		}
	}

	records := make([]models.ExamHistory, 0, len(history))
	for _, guideline := range table.exams {
		entry, ok := history[guideline.Key]
		if !ok {
			continue
		}
		normalized, err := NormalizeExamHistoryEntry(entry, now)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", guideline.Key, err)
		}
		records = append(records, models.ExamHistory{
			ExamKey:  guideline.Key,
			Done:     normalized.Done,
			LastDate: normalized.LastDate,
		})
	}
	return records, nil
}

// RecordExamHistory stores the user's answer for one exam and drops their
// cached exam list.
func (service *PreventiveService) RecordExamHistory(ctx context.Context, userID uint, examKey string, entry ExamHistoryEntry, now time.Time) (models.ExamHistory, error) {
	if _, ok := service.guidelines.Lookup(examKey); !ok {
		return models.ExamHistory{}, fmt.Errorf("%w: %s", ErrUnknownExam, examKey)
	}
	normalized, err := NormalizeExamHistoryEntry(entry, now)
	if err != nil {
		return models.ExamHistory{}, err
	}

	record := models.ExamHistory{
		UserID:    userID,
		ExamKey:   examKey,
		Done:      normalized.Done,
		LastDate:  normalized.LastDate,
		UpdatedAt: now,
	}
	if err := service.history.Upsert(&record); err != nil {
		return models.ExamHistory{}, err
	}
	service.invalidateExams(ctx, userID, now)
	return record, nil
}
