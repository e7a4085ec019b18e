// Package excel moves trial records in and out of spreadsheet files.
// The extension selects the format: .csv is plain CSV, anything else is
// an Excel workbook.
package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/dpx/internal/task"
)

// Sheet names used in exported workbooks
const (
	TrialsSheet  = "trials"
	SummarySheet = "summary"
)

// Header is the column layout of the trials sheet and CSV export
var Header = []string{
	"trial_index", "trial_id", "exp_stage", "condition", "trial_num", "block",
	"practice_repeat", "stimulus", "key_press", "rt", "scored", "correct", "correct_response",
}

var summaryHeader = []string{
	"stage", "condition", "trials", "correct", "omissions", "accuracy", "mean_rt", "median_rt", "sd_rt",
}

// Export writes records to path. Workbooks also get a summary sheet
// covering both stages.
func Export(path string, records []task.Record) error {
	if isCSV(path) {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create CSV file: %w", err)
		}
		if err := WriteCSV(file, records); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	}

	f, err := workbook(records)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

// WriteCSV writes the header and one row per record
func WriteCSV(w io.Writer, records []task.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func workbook(records []task.Record) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", TrialsSheet)

	if err := setRow(f, TrialsSheet, 1, Header); err != nil {
		f.Close()
		return nil, err
	}
	for i, r := range records {
		if err := setRow(f, TrialsSheet, i+2, cells(r)); err != nil {
			f.Close()
			return nil, err
		}
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := setRow(f, SummarySheet, 1, summaryHeader); err != nil {
		f.Close()
		return nil, err
	}
	line := 2
	for _, stage := range []task.Stage{task.StagePractice, task.StageTest} {
		s := task.Summarize(records, stage)
		for _, cs := range s.Conditions {
			values := []interface{}{
				string(stage), string(cs.Condition), cs.Trials, cs.Correct, cs.Omissions,
				cs.Accuracy, cs.MeanRT, cs.MedianRT, cs.SDRT,
			}
			if err := setRow(f, SummarySheet, line, values); err != nil {
				f.Close()
				return nil, err
			}
			line++
		}
	}

	test := task.Summarize(records, task.StageTest)
	if test.DPrimeDefined {
		if err := setRow(f, SummarySheet, line+1, []interface{}{"test", "dprime_context", test.DPrimeContext}); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func setRow[T any](f *excelize.File, sheet string, line int, values []T) error {
	cell, err := excelize.CoordinatesToCellName(1, line)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, line, err)
	}
	return nil
}

// cells is the typed form of row for workbooks
func cells(r task.Record) []interface{} {
	return []interface{}{
		r.Index, string(r.Kind), string(r.Stage), string(r.Condition), r.TrialNum, r.Block,
		r.PracticeRepeat, r.Stimulus, int(r.KeyPress), rtMillis(r.RT), r.Scored, r.Correct, int(r.CorrectResponse),
	}
}

func row(r task.Record) []string {
	return []string{
		strconv.Itoa(r.Index),
		string(r.Kind),
		string(r.Stage),
		string(r.Condition),
		strconv.Itoa(r.TrialNum),
		strconv.Itoa(r.Block),
		strconv.Itoa(r.PracticeRepeat),
		r.Stimulus,
		strconv.Itoa(int(r.KeyPress)),
		strconv.FormatInt(rtMillis(r.RT), 10),
		strconv.FormatBool(r.Scored),
		strconv.FormatBool(r.Correct),
		strconv.Itoa(int(r.CorrectResponse)),
	}
}

func rtMillis(d time.Duration) int64 {
	if d < 0 {
		return -1
	}
	return d.Milliseconds()
}

func isCSV(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".csv"
}
