package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	xlsxExamsSheet           = "Exames"
	xlsxRecommendationsSheet = "Recomendações"
)

var xlsxRecommendationHeaders = []string{
	"Exame",
	"Prioridade",
	"Motivo",
	"Frequência",
	"Idade inicial",
}

var xlsxRecommendationPriorityLabels = map[RecommendationPriority]string{
	RecommendationPriorityHigh:   "Alta",
	RecommendationPriorityMedium: "Média",
	RecommendationPriorityLow:    "Baixa",
}

// BuildXLSX writes the exam list and the recommendations as two sheets.
func (service *ExportService) BuildXLSX(ctx context.Context, userID uint, now time.Time) ([]byte, error) {
	document, err := service.BuildDocument(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	examRows := make([][]any, 0, len(document.Exams))
	for _, exam := range document.Exams {
		columns := BuildExportCSVRow(exam).Columns()
		row := make([]any, len(columns))
		for index, value := range columns {
			row[index] = value
		}
		examRows = append(examRows, row)
	}

	recommendationRows := make([][]any, 0, len(document.Recommendations))
	for _, recommendation := range document.Recommendations {
		var startAge any
		if recommendation.StartAge != nil {
			startAge = *recommendation.StartAge
		}
		recommendationRows = append(recommendationRows, []any{
			recommendation.Exam,
			xlsxRecommendationPriorityLabels[recommendation.Priority],
			recommendation.Reason,
			recommendation.Frequency,
			startAge,
		})
	}

	f := excelize.NewFile()
	if err := writeXLSXSheet(f, xlsxExamsSheet, ExportCSVHeaders, []float64{40, 22, 12, 18, 28, 18, 28}, examRows); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeXLSXSheet(f, xlsxRecommendationsSheet, xlsxRecommendationHeaders, []float64{32, 12, 60, 18, 14}, recommendationRows); err != nil {
		f.Close()
		return nil, err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex(xlsxExamsSheet); err == nil {
		f.SetActiveSheet(index)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeXLSXSheet(f *excelize.File, sheetName string, headers []string, widths []float64, rows [][]any) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for index, width := range widths {
		col, err := excelize.ColumnNumberToName(index + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for rowIndex, row := range rows {
		for colIndex, value := range row {
			if value == nil || value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIndex+1, rowIndex+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}
