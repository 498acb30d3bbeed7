package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"
)

const exportDateLayout = "2006-01-02"

var ExportCSVHeaders = []string{
	"Exame",
	"Status",
	"Prioridade",
	"Última realização",
	"Próxima data",
	"Frequência",
	"Recomendação de idade",
}

var exportStatusLabels = map[ExamStatus]string{
	ExamStatusOK:      "Em dia",
	ExamStatusDueSoon: "Próximo do vencimento",
	ExamStatusOverdue: "Atrasado",
}

var exportPriorityLabels = map[ExamPriority]string{
	ExamPriorityLow:    "Baixa",
	ExamPriorityMedium: "Média",
	ExamPriorityHigh:   "Alta",
	ExamPriorityUrgent: "Urgente",
}

type ExportSource interface {
	Exams(ctx context.Context, userID uint, now time.Time) ([]CalculatedExam, error)
	Recommendations(userID uint, limit int, now time.Time) (RecommendationList, error)
}

type ExportService struct {
	source ExportSource
}

type ExportDocument struct {
	ExportedAt      string               `json:"exported_at"`
	Summary         ExamSummary          `json:"summary"`
	Exams           []CalculatedExam     `json:"exams"`
	Recommendations []ExamRecommendation `json:"recommendations"`
}

type ExportCSVRow struct {
	Exam              string
	Status            string
	Priority          string
	LastDone          string
	NextDue           string
	Frequency         string
	AgeRecommendation string
}

func NewExportService(source ExportSource) *ExportService {
	return &ExportService{source: source}
}

func (service *ExportService) BuildDocument(ctx context.Context, userID uint, now time.Time) (ExportDocument, error) {
	var (
		exams           []CalculatedExam
		recommendations RecommendationList
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		exams, err = service.source.Exams(groupCtx, userID, now)
		return err
	})
	group.Go(func() error {
		var err error
		recommendations, err = service.source.Recommendations(userID, 0, now)
		return err
	})
	if err := group.Wait(); err != nil {
		return ExportDocument{}, err
	}

	return ExportDocument{
		ExportedAt:      now.Format(time.RFC3339),
		Summary:         SummarizeExams(exams),
		Exams:           exams,
		Recommendations: recommendations.Items,
	}, nil
}

func (service *ExportService) BuildJSON(ctx context.Context, userID uint, now time.Time) ([]byte, error) {
	document, err := service.BuildDocument(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(document, "", "  ")
}

func (service *ExportService) BuildCSV(ctx context.Context, userID uint, now time.Time) ([]byte, error) {
	exams, err := service.source.Exams(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	var output bytes.Buffer
	writer := csv.NewWriter(&output)
	if err := writer.Write(ExportCSVHeaders); err != nil {
		return nil, err
	}
	for _, exam := range exams {
		if err := writer.Write(BuildExportCSVRow(exam).Columns()); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

func BuildExportCSVRow(exam CalculatedExam) ExportCSVRow {
	lastDone := "Nunca realizado"
	if exam.LastDone != nil {
		lastDone = exam.LastDone.Format(exportDateLayout)
	}
	return ExportCSVRow{
		Exam:              exam.Name,
		Status:            exportStatusLabels[exam.Status],
		Priority:          exportPriorityLabels[exam.Priority],
		LastDone:          lastDone,
		NextDue:           exam.NextDue,
		Frequency:         exam.Frequency,
		AgeRecommendation: exam.AgeRecommendation,
	}
}

func (row ExportCSVRow) Columns() []string {
	return []string{
		row.Exam,
		row.Status,
		row.Priority,
		row.LastDone,
		row.NextDue,
		row.Frequency,
		row.AgeRecommendation,
	}
}

func BuildExportFilename(now time.Time, extension string) string {
	return "bemcuidar-exames-" + now.Format(exportDateLayout) + "." + extension
}
