package services

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/terraincognita07/bemcuidar/guidelines"
	"gopkg.in/yaml.v3"
)

const (
	ExamKeyMammography = "mammography"
	ExamKeyPapSmear    = "papSmear"
	ExamKeyColonoscopy = "colonoscopy"
	ExamKeyBloodTests  = "bloodTests"
	ExamKeyBoneDensity = "boneDensity"
)

var (
	ErrUnknownExam       = errors.New("unknown exam")
	ErrInvalidGuidelines = errors.New("invalid exam guidelines")
)

type ExamGuideline struct {
	Key                    string `yaml:"key" json:"key"`
	Name                   string `yaml:"name" json:"name"`
	FrequencyMonths        int    `yaml:"frequency_months" json:"frequency_months"`
	MinAge                 int    `yaml:"min_age" json:"min_age"`
	UrgencyThresholdMonths int    `yaml:"urgency_threshold_months" json:"urgency_threshold_months"`
	Details                string `yaml:"details" json:"details"`
}

// ExamGuidelines is an immutable, ordered exam configuration table.
type ExamGuidelines struct {
	exams []ExamGuideline
	byKey map[string]int
}

type guidelineDocument struct {
	Version int             `yaml:"version"`
	Exams   []ExamGuideline `yaml:"exams"`
}

var (
	defaultGuidelinesOnce sync.Once
	defaultGuidelines     *ExamGuidelines
)

// DefaultExamGuidelines returns the embedded table. It panics if the embedded
// document is invalid, which only a broken build can cause.
func DefaultExamGuidelines() *ExamGuidelines {
	defaultGuidelinesOnce.Do(func() {
		parsed, err := LoadExamGuidelines(guidelines.Exams)
		if err != nil {
			panic(fmt.Sprintf("embedded exam guidelines: %v", err))
		}
		defaultGuidelines = parsed
	})
	return defaultGuidelines
}

func LoadExamGuidelinesFile(path string) (*ExamGuidelines, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read exam guidelines %s: %w", path, err)
	}
	return LoadExamGuidelines(raw)
}

func LoadExamGuidelines(raw []byte) (*ExamGuidelines, error) {
	var document guidelineDocument
	if err := yaml.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGuidelines, err)
	}
	return NewExamGuidelines(document.Exams)
}

func NewExamGuidelines(exams []ExamGuideline) (*ExamGuidelines, error) {
	if len(exams) == 0 {
		return nil, fmt.Errorf("%w: no exams configured", ErrInvalidGuidelines)
	}

	table := &ExamGuidelines{
		exams: make([]ExamGuideline, 0, len(exams)),
		byKey: make(map[string]int, len(exams)),
	}
	for index, exam := range exams {
		exam.Key = strings.TrimSpace(exam.Key)
		exam.Name = strings.TrimSpace(exam.Name)
		exam.Details = strings.TrimSpace(exam.Details)

		switch {
		case exam.Key == "":
			return nil, fmt.Errorf("%w: exam #%d has no key", ErrInvalidGuidelines, index+1)
		case exam.Name == "":
			return nil, fmt.Errorf("%w: exam %s has no name", ErrInvalidGuidelines, exam.Key)
		case exam.FrequencyMonths <= 0:
			return nil, fmt.Errorf("%w: exam %s frequency must be positive", ErrInvalidGuidelines, exam.Key)
		case exam.MinAge < 0:
			return nil, fmt.Errorf("%w: exam %s min age must not be negative", ErrInvalidGuidelines, exam.Key)
		case exam.UrgencyThresholdMonths < 0:
			return nil, fmt.Errorf("%w: exam %s urgency threshold must not be negative", ErrInvalidGuidelines, exam.Key)
		}
		if _, exists := table.byKey[exam.Key]; exists {
			return nil, fmt.Errorf("%w: duplicate exam key %s", ErrInvalidGuidelines, exam.Key)
		}

		table.byKey[exam.Key] = len(table.exams)
		table.exams = append(table.exams, exam)
	}
	return table, nil
}

// All returns a copy of the table in configuration order.
func (table *ExamGuidelines) All() []ExamGuideline {
	result := make([]ExamGuideline, len(table.exams))
	copy(result, table.exams)
	return result
}

func (table *ExamGuidelines) Lookup(key string) (ExamGuideline, bool) {
	index, ok := table.byKey[key]
	if !ok {
		return ExamGuideline{}, false
	}
	return table.exams[index], true
}

func (table *ExamGuidelines) Keys() []string {
	keys := make([]string, 0, len(table.exams))
	for _, exam := range table.exams {
		keys = append(keys, exam.Key)
	}
	return keys
}
