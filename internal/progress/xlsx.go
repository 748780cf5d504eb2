package progress

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const (
	progressSheet = "Progress"
	feedbackSheet = "Feedback"
)

var bucketFill = map[string]string{
	BucketGrey:   "D9D9D9",
	BucketGreen:  "C6EFCE",
	BucketYellow: "FFEB9C",
	BucketRed:    "FFC7CE",
}

// WriteXLSX writes the report as a workbook with a score grid colored by
// bucket and a sheet of per-question feedback.
func WriteXLSX(w io.Writer, report Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", progressSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(feedbackSheet); err != nil {
		return fmt.Errorf("create feedback sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	fills := make(map[string]int, len(bucketFill))
	for bucket, color := range bucketFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return fmt.Errorf("create %s style: %w", bucket, err)
		}
		fills[bucket] = id
	}

	questions := questionCount(report)

	cols := []any{"Student", "Completed"}
	for i := 0; i < questions; i++ {
		cols = append(cols, "Q"+strconv.Itoa(i+1))
	}
	cols = append(cols, "Total", "Max")
	if err := f.SetSheetRow(progressSheet, "A1", &cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(cols), 1)
	if err := f.SetCellStyle(progressSheet, "A1", lastHeader, header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for r, student := range report.Progress {
		row := r + 2
		values := make([]any, len(cols))
		values[0] = student.StudentName
		values[1] = student.Completed
		for _, q := range student.Questions {
			if q.QuestionIndex < questions {
				values[2+q.QuestionIndex] = q.Score
			}
		}
		if student.TotalScore != nil {
			values[len(cols)-2] = *student.TotalScore
			values[len(cols)-1] = *student.MaxTotal
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(progressSheet, start, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		for _, q := range student.Questions {
			if q.QuestionIndex >= questions {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(3+q.QuestionIndex, row)
			if err := f.SetCellStyle(progressSheet, cell, cell, fills[q.Bucket]); err != nil {
				return fmt.Errorf("style %s: %w", cell, err)
			}
		}
	}
	if err := f.SetColWidth(progressSheet, "A", "A", 24); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := writeFeedback(f, report, header); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeFeedback(f *excelize.File, report Report, header int) error {
	cols := []any{"Student", "Question", "Score", "Max", "Bucket", "Rubric Version", "Feedback"}
	if err := f.SetSheetRow(feedbackSheet, "A1", &cols); err != nil {
		return fmt.Errorf("write feedback header: %w", err)
	}
	if err := f.SetCellStyle(feedbackSheet, "A1", "G1", header); err != nil {
		return fmt.Errorf("style feedback header: %w", err)
	}

	row := 2
	for _, student := range report.Progress {
		for _, q := range student.Questions {
			values := []any{student.StudentName, q.QuestionIndex + 1, q.Score, q.Max, q.Bucket, q.RubricVersion, q.Feedback}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(feedbackSheet, cell, &values); err != nil {
				return fmt.Errorf("write feedback row %d: %w", row, err)
			}
			row++
		}
	}
	return f.SetColWidth(feedbackSheet, "G", "G", 60)
}

func questionCount(report Report) int {
	n := report.QuestionCount
	for _, student := range report.Progress {
		for _, q := range student.Questions {
			if q.QuestionIndex+1 > n {
				n = q.QuestionIndex + 1
			}
		}
	}
	return n
}
