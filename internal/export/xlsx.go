package export

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/shrimpsizemoose/kardemumma/internal/models"
)

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]string
}

// BuildWorkbook renders sheets with a bold autofiltered header row and
// width heuristics based on content length.
func BuildWorkbook(sheets []SheetSpec) (*excelize.File, error) {
	f := excelize.NewFile()

	bold, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	for i, s := range sheets {
		name := s.Title
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("new sheet: %w", err)
			}
		}

		for col, h := range s.Header {
			cell := fmt.Sprintf("%s1", colName(col+1))
			if err := f.SetCellStr(name, cell, h); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
		end := colName(len(s.Header)) + "1"
		_ = f.SetCellStyle(name, "A1", end, bold)
		_ = f.AutoFilter(name, "A1:"+end, nil)

		for r, row := range s.Rows {
			for c, val := range row {
				cell := fmt.Sprintf("%s%d", colName(c+1), r+2)
				if err := f.SetCellStr(name, cell, val); err != nil {
					return nil, fmt.Errorf("set cell %s: %w", cell, err)
				}
			}
		}

		for c := 1; c <= len(s.Header); c++ {
			width := len(s.Header[c-1])
			for r := 0; r < len(s.Rows) && r < 50; r++ {
				if l := len(s.Rows[r][c-1]); l > width {
					width = l
				}
			}
			w := float64(width) * 0.9
			if w < 10 {
				w = 10
			}
			_ = f.SetColWidth(name, colName(c), colName(c), w)
		}
	}

	return f, nil
}

func colName(n int) string {
	name, err := excelize.ColumnNumberToName(n)
	if err != nil {
		return "A"
	}
	return name
}

// CourseWorkbook assembles the teacher export: an attendance grid (dates
// down, students across) and the latest-grade summary per student.
func CourseWorkbook(attendance map[string]map[string]bool, progress []models.ProgressSummary) (*excelize.File, error) {
	students := make(map[string]bool)
	dates := make([]string, 0, len(attendance))
	for date, byStudent := range attendance {
		dates = append(dates, date)
		for username := range byStudent {
			students[username] = true
		}
	}
	sort.Strings(dates)

	usernames := make([]string, 0, len(students))
	for username := range students {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	attendanceHeader := append([]string{"date"}, usernames...)
	attendanceRows := make([][]string, 0, len(dates))
	for _, date := range dates {
		row := []string{date}
		for _, username := range usernames {
			mark := ""
			if present, ok := attendance[date][username]; ok {
				mark = "-"
				if present {
					mark = "+"
				}
			}
			row = append(row, mark)
		}
		attendanceRows = append(attendanceRows, row)
	}

	gradeHeader := []string{"username", "test 1", "test 2", "test 3", "test 4", "final project"}
	gradeRows := make([][]string, 0, len(progress))
	for _, p := range progress {
		gradeRows = append(gradeRows, []string{
			p.Username,
			formatPoints(p.Test1),
			formatPoints(p.Test2),
			formatPoints(p.Test3),
			formatPoints(p.Test4),
			formatPoints(p.AssignmentFinalPoints),
		})
	}

	return BuildWorkbook([]SheetSpec{
		{Title: "Attendance", Header: attendanceHeader, Rows: attendanceRows},
		{Title: "Grades", Header: gradeHeader, Rows: gradeRows},
	})
}

func formatPoints(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
