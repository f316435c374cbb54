package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Row summarises one course's outcomes for a run.
type Row struct {
	CourseID       int
	GroupsCreated  int
	MembersAdded   int
	MembersRemoved int
	FoldersCreated int
	ItemsCloned    int
	ClonesSkipped  int
}

var headers = []string{
	"course_id",
	"groups_created",
	"members_added",
	"members_removed",
	"folders_created",
	"items_cloned",
	"clones_skipped",
}

// Summary accumulates per-course outcome counts over a run.
type Summary struct {
	rows map[int]*Row
}

// NewSummary builds an empty run summary.
func NewSummary() *Summary {
	return &Summary{rows: make(map[int]*Row)}
}

// Course returns the row for a course, creating it on first use.
func (s *Summary) Course(courseID int) *Row {
	row, ok := s.rows[courseID]
	if !ok {
		row = &Row{CourseID: courseID}
		s.rows[courseID] = row
	}
	return row
}

// Rows returns the accumulated rows ordered by course ID.
func (s *Summary) Rows() []Row {
	rows := make([]Row, 0, len(s.rows))
	for _, row := range s.rows {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CourseID < rows[j].CourseID })
	return rows
}

// RenderCSV produces the CSV encoding of the summary.
func (s *Summary) RenderCSV() ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range s.Rows() {
		record := []string{
			strconv.Itoa(row.CourseID),
			strconv.Itoa(row.GroupsCreated),
			strconv.Itoa(row.MembersAdded),
			strconv.Itoa(row.MembersRemoved),
			strconv.Itoa(row.FoldersCreated),
			strconv.Itoa(row.ItemsCloned),
			strconv.Itoa(row.ClonesSkipped),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename derives the summary file name for a run.
func Filename(runStart time.Time) string {
	return "run-" + runStart.UTC().Format("20060102150405") + ".csv"
}
