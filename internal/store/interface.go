package store

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/shrimpsizemoose/kardemumma/internal/models"
)

type GradeStore interface {
	Close() error
	Ping() error
	ApplyMigrations(dir string) error

	UpsertAttendance(date string, present map[string]bool) error
	FetchAttendance(date string) (map[string]bool, error)
	FetchAttendanceOverview() (map[string]map[string]bool, error)
	FetchStudentAttendance(username string) (map[string]bool, error)

	RecordGrade(grade *models.GradeRecord) error
	FetchLatestGrade(username string, testNumber int) (*models.GradeRecord, error)
	FetchLatestGrades(username string) (map[int]models.GradeRecord, error)
	FetchLatestGradesForTest(testNumber int) ([]models.GradeRecord, error)
	UpdateLatestReasoning(username string, testNumber int, reasoning string) error

	FetchProgress(username string) (*models.ProgressSummary, error)
	ListProgress() ([]models.ProgressSummary, error)
	UpsertProgress(summary *models.ProgressSummary) error
}

// BaseStore provides common functionality for different DB implementations
type BaseStore struct {
	DB        *sqlx.DB
	Converter func(string) string
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

func (s *BaseStore) Ping() error {
	return s.DB.Ping()
}

// Migrate applies versioned goose migrations. Runs once at process start,
// request handlers assume a ready schema.
func (s *BaseStore) Migrate(dialect, dir string) error {
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(s.DB.DB, dir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// testColumn maps a test number to its mirrored progress column. The test
// number must be validated here because the column name is interpolated
// into SQL.
func testColumn(testNumber int) (string, error) {
	if testNumber < models.MinTestNumber || testNumber > models.MaxTestNumber {
		return "", fmt.Errorf("unknown test number %d", testNumber)
	}
	return fmt.Sprintf("test%d", testNumber), nil
}

func (s *BaseStore) UpsertAttendance(date string, present map[string]bool) error {
	query := s.Converter(`
		INSERT INTO attendance (date, username, present)
		VALUES (?, ?, ?)
		ON CONFLICT (date, username) DO UPDATE SET present = EXCLUDED.present
	`)

	// Per-row upserts, deliberately not wrapped in a transaction: a failure
	// partway through the batch leaves earlier rows applied.
	for username, p := range present {
		if _, err := s.DB.Exec(query, date, username, p); err != nil {
			return fmt.Errorf("failed to upsert attendance for %s: %w", username, err)
		}
	}
	return nil
}

func (s *BaseStore) FetchAttendance(date string) (map[string]bool, error) {
	var records []models.AttendanceRecord
	query := s.Converter(`
		SELECT date, username, present
		FROM attendance
		WHERE date = ?
		ORDER BY username
	`)

	if err := s.DB.Select(&records, query, date); err != nil {
		return nil, fmt.Errorf("failed to fetch attendance: %w", err)
	}

	result := make(map[string]bool, len(records))
	for _, r := range records {
		result[r.Username] = r.Present
	}
	return result, nil
}

func (s *BaseStore) FetchAttendanceOverview() (map[string]map[string]bool, error) {
	var records []models.AttendanceRecord
	err := s.DB.Select(&records, `
		SELECT date, username, present
		FROM attendance
		ORDER BY date, username
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attendance overview: %w", err)
	}

	overview := make(map[string]map[string]bool)
	for _, r := range records {
		if overview[r.Date] == nil {
			overview[r.Date] = make(map[string]bool)
		}
		overview[r.Date][r.Username] = r.Present
	}
	return overview, nil
}

func (s *BaseStore) FetchStudentAttendance(username string) (map[string]bool, error) {
	var records []models.AttendanceRecord
	query := s.Converter(`
		SELECT date, username, present
		FROM attendance
		WHERE username = ?
		ORDER BY date
	`)

	if err := s.DB.Select(&records, query, username); err != nil {
		return nil, fmt.Errorf("failed to fetch student attendance: %w", err)
	}

	result := make(map[string]bool, len(records))
	for _, r := range records {
		result[r.Date] = r.Present
	}
	return result, nil
}

// RecordGrade appends a grade history row and mirrors its points into the
// matching progress column in a single transaction.
func (s *BaseStore) RecordGrade(grade *models.GradeRecord) error {
	column, err := testColumn(grade.TestNumber)
	if err != nil {
		return err
	}

	tx, err := s.DB.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin grade transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExec(`
		INSERT INTO test_grades (username, test_number, points, reasoning, images_count, source, needs_review, graded_at)
		VALUES (:username, :test_number, :points, :reasoning, :images_count, :source, :needs_review, :graded_at)
	`, grade); err != nil {
		return fmt.Errorf("failed to insert grade: %w", err)
	}

	mirror := s.Converter(fmt.Sprintf(`
		INSERT INTO progress (username, %[1]s)
		VALUES (?, ?)
		ON CONFLICT (username) DO UPDATE SET %[1]s = EXCLUDED.%[1]s
	`, column))
	if _, err := tx.Exec(mirror, grade.Username, grade.Points); err != nil {
		return fmt.Errorf("failed to mirror grade into progress: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit grade transaction: %w", err)
	}
	return nil
}

func (s *BaseStore) FetchLatestGrade(username string, testNumber int) (*models.GradeRecord, error) {
	var grade models.GradeRecord
	query := s.Converter(`
		SELECT id, username, test_number, points, reasoning, images_count, source, needs_review, graded_at
		FROM test_grades
		WHERE username = ?
		AND test_number = ?
		ORDER BY graded_at DESC, id DESC
		LIMIT 1
	`)

	err := s.DB.Get(&grade, query, username, testNumber)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest grade: %w", err)
	}
	return &grade, nil
}

func (s *BaseStore) FetchLatestGrades(username string) (map[int]models.GradeRecord, error) {
	var grades []models.GradeRecord
	query := s.Converter(`
		WITH ranked AS (
			SELECT
				id, username, test_number, points, reasoning, images_count, source, needs_review, graded_at,
				ROW_NUMBER() OVER (PARTITION BY test_number ORDER BY graded_at DESC, id DESC) AS rn
			FROM test_grades
			WHERE username = ?
		)
		SELECT id, username, test_number, points, reasoning, images_count, source, needs_review, graded_at
		FROM ranked
		WHERE rn = 1
		ORDER BY test_number
	`)

	if err := s.DB.Select(&grades, query, username); err != nil {
		return nil, fmt.Errorf("failed to fetch latest grades: %w", err)
	}

	result := make(map[int]models.GradeRecord, len(grades))
	for _, g := range grades {
		result[g.TestNumber] = g
	}
	return result, nil
}

func (s *BaseStore) FetchLatestGradesForTest(testNumber int) ([]models.GradeRecord, error) {
	var grades []models.GradeRecord
	query := s.Converter(`
		WITH ranked AS (
			SELECT
				id, username, test_number, points, reasoning, images_count, source, needs_review, graded_at,
				ROW_NUMBER() OVER (PARTITION BY username ORDER BY graded_at DESC, id DESC) AS rn
			FROM test_grades
			WHERE test_number = ?
		)
		SELECT id, username, test_number, points, reasoning, images_count, source, needs_review, graded_at
		FROM ranked
		WHERE rn = 1
		ORDER BY username
	`)

	if err := s.DB.Select(&grades, query, testNumber); err != nil {
		return nil, fmt.Errorf("failed to fetch latest grades for test: %w", err)
	}
	return grades, nil
}

// UpdateLatestReasoning edits the reasoning text of the most recent grade
// row only. Older history rows are never touched.
func (s *BaseStore) UpdateLatestReasoning(username string, testNumber int, reasoning string) error {
	query := s.Converter(`
		UPDATE test_grades
		SET reasoning = ?
		WHERE id = (
			SELECT id FROM test_grades
			WHERE username = ?
			AND test_number = ?
			ORDER BY graded_at DESC, id DESC
			LIMIT 1
		)
	`)

	if _, err := s.DB.Exec(query, reasoning, username, testNumber); err != nil {
		return fmt.Errorf("failed to update reasoning: %w", err)
	}
	return nil
}

func (s *BaseStore) FetchProgress(username string) (*models.ProgressSummary, error) {
	var summary models.ProgressSummary
	query := s.Converter(`
		SELECT username, test1, test2, test3, test4,
		       assignment_task_checked, assignment_midterm_ok, assignment_topic,
		       assignment_partner, assignment_final_points, auth_code
		FROM progress
		WHERE username = ?
	`)

	err := s.DB.Get(&summary, query, username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch progress: %w", err)
	}
	return &summary, nil
}

func (s *BaseStore) ListProgress() ([]models.ProgressSummary, error) {
	var summaries []models.ProgressSummary
	err := s.DB.Select(&summaries, `
		SELECT username, test1, test2, test3, test4,
		       assignment_task_checked, assignment_midterm_ok, assignment_topic,
		       assignment_partner, assignment_final_points, auth_code
		FROM progress
		ORDER BY username
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return summaries, nil
}

// UpsertProgress writes one summary row per username. COALESCE keeps every
// column the payload left null, so partial updates never erase other fields.
func (s *BaseStore) UpsertProgress(summary *models.ProgressSummary) error {
	_, err := s.DB.NamedExec(`
		INSERT INTO progress (username, test1, test2, test3, test4,
			assignment_task_checked, assignment_midterm_ok, assignment_topic,
			assignment_partner, assignment_final_points, auth_code)
		VALUES (:username, :test1, :test2, :test3, :test4,
			:assignment_task_checked, :assignment_midterm_ok, :assignment_topic,
			:assignment_partner, :assignment_final_points, :auth_code)
		ON CONFLICT (username) DO UPDATE SET
			test1 = COALESCE(EXCLUDED.test1, progress.test1),
			test2 = COALESCE(EXCLUDED.test2, progress.test2),
			test3 = COALESCE(EXCLUDED.test3, progress.test3),
			test4 = COALESCE(EXCLUDED.test4, progress.test4),
			assignment_task_checked = COALESCE(EXCLUDED.assignment_task_checked, progress.assignment_task_checked),
			assignment_midterm_ok = COALESCE(EXCLUDED.assignment_midterm_ok, progress.assignment_midterm_ok),
			assignment_topic = COALESCE(EXCLUDED.assignment_topic, progress.assignment_topic),
			assignment_partner = COALESCE(EXCLUDED.assignment_partner, progress.assignment_partner),
			assignment_final_points = COALESCE(EXCLUDED.assignment_final_points, progress.assignment_final_points),
			auth_code = COALESCE(EXCLUDED.auth_code, progress.auth_code)
	`, summary)
	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return nil
}
