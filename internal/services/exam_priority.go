package services

import (
	"fmt"
	"strings"
)

// RecommendationPriority orders risk-assessment output. Lower values sort first.
type RecommendationPriority int

const (
	RecommendationPriorityHigh RecommendationPriority = iota
	RecommendationPriorityMedium
	RecommendationPriorityLow
)

var recommendationPriorityNames = map[RecommendationPriority]string{
	RecommendationPriorityHigh:   "high",
	RecommendationPriorityMedium: "medium",
	RecommendationPriorityLow:    "low",
}

func (priority RecommendationPriority) String() string {
	if name, ok := recommendationPriorityNames[priority]; ok {
		return name
	}
	return fmt.Sprintf("RecommendationPriority(%d)", int(priority))
}

func (priority RecommendationPriority) MarshalText() ([]byte, error) {
	name, ok := recommendationPriorityNames[priority]
	if !ok {
		return nil, fmt.Errorf("unknown recommendation priority %d", int(priority))
	}
	return []byte(name), nil
}

func (priority *RecommendationPriority) UnmarshalText(text []byte) error {
	raw := strings.ToLower(strings.TrimSpace(string(text)))
	for value, name := range recommendationPriorityNames {
		if name == raw {
			*priority = value
			return nil
		}
	}
	return fmt.Errorf("unknown recommendation priority %q", raw)
}

// ExamPriority ranks a computed exam from low to urgent.
type ExamPriority int

const (
	ExamPriorityLow ExamPriority = iota
	ExamPriorityMedium
	ExamPriorityHigh
	ExamPriorityUrgent
)

var examPriorityNames = map[ExamPriority]string{
	ExamPriorityLow:    "low",
	ExamPriorityMedium: "medium",
	ExamPriorityHigh:   "high",
	ExamPriorityUrgent: "urgent",
}

func (priority ExamPriority) String() string {
	if name, ok := examPriorityNames[priority]; ok {
		return name
	}
	return fmt.Sprintf("ExamPriority(%d)", int(priority))
}

func (priority ExamPriority) MarshalText() ([]byte, error) {
	name, ok := examPriorityNames[priority]
	if !ok {
		return nil, fmt.Errorf("unknown exam priority %d", int(priority))
	}
	return []byte(name), nil
}

func (priority *ExamPriority) UnmarshalText(text []byte) error {
	raw := strings.ToLower(strings.TrimSpace(string(text)))
	for value, name := range examPriorityNames {
		if name == raw {
			*priority = value
			return nil
		}
	}
	return fmt.Errorf("unknown exam priority %q", raw)
}

type ExamStatus string

const (
	ExamStatusOK            ExamStatus = "ok"
	ExamStatusDueSoon       ExamStatus = "due-soon"
	ExamStatusOverdue       ExamStatus = "overdue"
	ExamStatusNotApplicable ExamStatus = "not-applicable"
)

// NeedsAttention reports whether the status belongs in the alert list.
func (status ExamStatus) NeedsAttention() bool {
	return status == ExamStatusOverdue || status == ExamStatusDueSoon
}
