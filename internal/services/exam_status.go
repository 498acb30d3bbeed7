package services

import (
	"fmt"
	"time"

	"github.com/terraincognita07/bemcuidar/internal/models"
)

const dueSoonWindowMonths = 3

type ExamStatusResult struct {
	Status   ExamStatus   `json:"status"`
	Priority ExamPriority `json:"priority"`
	NextDue  string       `json:"next_due"`
}

// ExamHistoryEntry is a user's answer for one exam. A nil LastDate or Done=false means never performed.
type ExamHistoryEntry struct {
	Done     bool       `json:"done"`
	LastDate *time.Time `json:"last_date"`
}

type CalculatedExam struct {
	ID                int          `json:"id"`
	Key               string       `json:"key"`
	Name              string       `json:"name"`
	Status            ExamStatus   `json:"status"`
	LastDone          *time.Time   `json:"last_done"`
	NextDue           string       `json:"next_due"`
	Frequency         string       `json:"frequency"`
	AgeRecommendation string       `json:"age_recommendation"`
	Details           string       `json:"details"`
	Priority          ExamPriority `json:"priority"`
}

// CalculateExamStatus classifies one exam from its last date. A nil lastDate
// means the exam was never performed.
func CalculateExamStatus(guideline ExamGuideline, lastDate *time.Time, userAge int, hasOverridingCondition bool, now time.Time) ExamStatusResult {
	if userAge < guideline.MinAge && !hasOverridingCondition {
		return ExamStatusResult{
			Status:   ExamStatusNotApplicable,
			Priority: ExamPriorityLow,
			NextDue:  fmt.Sprintf("Recomendado a partir dos %d anos", guideline.MinAge),
		}
	}

	if lastDate == nil || lastDate.IsZero() {
		return ExamStatusResult{
			Status:   ExamStatusOverdue,
			Priority: ExamPriorityUrgent,
			NextDue:  "Recomendado agora",
		}
	}

	monthsSinceLastExam := monthsBetween(*lastDate, now)
	nextExamDate := lastDate.AddDate(0, guideline.FrequencyMonths, 0)

	if monthsSinceLastExam < guideline.FrequencyMonths {
		if monthsBetween(now, nextExamDate) <= dueSoonWindowMonths {
			return ExamStatusResult{
				Status:   ExamStatusDueSoon,
				Priority: ExamPriorityMedium,
				NextDue:  FormatMonthYear(nextExamDate),
			}
		}
		return ExamStatusResult{
			Status:   ExamStatusOK,
			Priority: ExamPriorityLow,
			NextDue:  FormatMonthYear(nextExamDate),
		}
	}

	priority := ExamPriorityHigh
	if monthsSinceLastExam-guideline.FrequencyMonths >= guideline.UrgencyThresholdMonths {
		priority = ExamPriorityUrgent
	}
	return ExamStatusResult{
		Status:   ExamStatusOverdue,
		Priority: priority,
		NextDue:  "Atrasado desde " + FormatMonthYear(nextExamDate),
	}
}

// StatusFor resolves examKey in the table before classifying it.
func (table *ExamGuidelines) StatusFor(examKey string, lastDate *time.Time, userAge int, hasOverridingCondition bool, now time.Time) (ExamStatusResult, error) {
	guideline, ok := table.Lookup(examKey)
	if !ok {
		return ExamStatusResult{}, fmt.Errorf("%w: %s", ErrUnknownExam, examKey)
	}
	return CalculateExamStatus(guideline, lastDate, userAge, hasOverridingCondition, now), nil
}

// GenerateUserExams evaluates every configured exam in table order, drops the
// ones that do not apply and numbers the rest from 1.
func (table *ExamGuidelines) GenerateUserExams(history map[string]ExamHistoryEntry, userAge int, sex string, hasHypertension bool, now time.Time) []CalculatedExam {
	exams := make([]CalculatedExam, 0, len(table.exams))
	nextID := 1

	for _, guideline := range table.exams {
		var lastDate *time.Time
		if entry, ok := history[guideline.Key]; ok && entry.Done && entry.LastDate != nil && !entry.LastDate.IsZero() {
			lastDate = entry.LastDate
		}

		// The blood-test floor is age 0, so this override has no effect with the default table.
		hasOverridingCondition := guideline.Key == ExamKeyBloodTests && hasHypertension

		result := CalculateExamStatus(guideline, lastDate, userAge, hasOverridingCondition, now)
		if result.Status == ExamStatusNotApplicable {
			continue
		}

		exams = append(exams, CalculatedExam{
			ID:                nextID,
			Key:               guideline.Key,
			Name:              guideline.Name,
			Status:            result.Status,
			LastDone:          lastDate,
			NextDue:           result.NextDue,
			Frequency:         FormatExamFrequency(guideline.FrequencyMonths),
			AgeRecommendation: FormatAgeRecommendation(guideline.MinAge, sex),
			Details:           guideline.Details,
			Priority:          result.Priority,
		})
		nextID++
	}

	return exams
}

// ExamHistoryFromRecords indexes stored rows by exam key.
func ExamHistoryFromRecords(records []models.ExamHistory) map[string]ExamHistoryEntry {
	history := make(map[string]ExamHistoryEntry, len(records))
	for _, record := range records {
		history[record.ExamKey] = ExamHistoryEntry{
			Done:     record.Done,
			LastDate: record.LastDate,
		}
	}
	return history
}

// FilterExamAlerts keeps overdue and due-soon exams, preserving order.
func FilterExamAlerts(exams []CalculatedExam) []CalculatedExam {
	alerts := make([]CalculatedExam, 0, len(exams))
	for _, exam := range exams {
		if exam.Status.NeedsAttention() {
			alerts = append(alerts, exam)
		}
	}
	return alerts
}

func FormatExamFrequency(months int) string {
	switch months {
	case 3:
		return "A cada 3 meses"
	case 12:
		return "Anual"
	case 24:
		return "A cada 2 anos"
	case 36:
		return "A cada 3 anos"
	case 60:
		return "A cada 5-10 anos"
	default:
		return fmt.Sprintf("A cada %d meses", months)
	}
}

func FormatAgeRecommendation(minAge int, sex string) string {
	female := NormalizeSex(sex) == models.SexFemale
	switch {
	case minAge == 0:
		return "Todas as idades"
	case minAge == 40 && female:
		return "A partir dos 40 anos"
	case minAge == 50 && female:
		return "Mulheres a partir dos 50 anos"
	case minAge == 25:
		return "25 a 64 anos"
	default:
		return fmt.Sprintf("A partir dos %d anos", minAge)
	}
}
