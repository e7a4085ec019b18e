package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/dpx/internal/task"
)

// ImportResult holds the records read back from an export and the rows
// that could not be parsed
type ImportResult struct {
	Records []task.Record
	Skipped int
	Errors  []string
}

// Import reads trial records from a file produced by Export
func Import(path string) (*ImportResult, error) {
	if isCSV(path) {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer file.Close()
		return ReadCSV(file)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(TrialsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s sheet: %w", TrialsSheet, err)
	}
	return parseRows(rows)
}

// ReadCSV reads trial records from CSV produced by WriteCSV
func ReadCSV(r io.Reader) (*ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return parseRows(rows)
}

func parseRows(rows [][]string) (*ImportResult, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("file is empty")
	}
	cols := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range Header {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	result := &ImportResult{}
	for i, row := range rows[1:] {
		rec, err := parseRecord(cols, row)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+2, err))
			continue
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

func parseRecord(cols map[string]int, row []string) (task.Record, error) {
	p := fieldParser{cols: cols, row: row}
	rec := task.Record{
		Index:           p.asInt("trial_index"),
		Kind:            task.Kind(p.asString("trial_id")),
		Stage:           task.Stage(p.asString("exp_stage")),
		Condition:       task.Condition(p.asString("condition")),
		TrialNum:        p.asInt("trial_num"),
		Block:           p.asInt("block"),
		PracticeRepeat:  p.asInt("practice_repeat"),
		Stimulus:        p.asString("stimulus"),
		KeyPress:        task.Key(p.asInt("key_press")),
		RT:              time.Duration(-1),
		Scored:          p.asBool("scored"),
		Correct:         p.asBool("correct"),
		CorrectResponse: task.Key(p.asInt("correct_response")),
	}
	if rt := p.asInt("rt"); rt >= 0 {
		rec.RT = time.Duration(rt) * time.Millisecond
	}
	if p.err != nil {
		return task.Record{}, p.err
	}
	if rec.Condition != "" && !rec.Condition.Valid() {
		return task.Record{}, fmt.Errorf("unknown condition %q", rec.Condition)
	}
	return rec, nil
}

// fieldParser keeps the first conversion error
type fieldParser struct {
	cols map[string]int
	row  []string
	err  error
}

func (p *fieldParser) asString(name string) string {
	i := p.cols[name]
	if i >= len(p.row) {
		return ""
	}
	return strings.TrimSpace(p.row[i])
}

func (p *fieldParser) asInt(name string) int {
	v, err := strconv.Atoi(p.asString(name))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", name, err)
	}
	return v
}

func (p *fieldParser) asBool(name string) bool {
	v, err := strconv.ParseBool(strings.ToLower(p.asString(name)))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", name, err)
	}
	return v
}
