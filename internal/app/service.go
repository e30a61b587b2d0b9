package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shrimpsizemoose/kardemumma/internal/grader"
	"github.com/shrimpsizemoose/kardemumma/internal/metrics"
	"github.com/shrimpsizemoose/kardemumma/internal/models"
	"github.com/shrimpsizemoose/kardemumma/internal/store"
)

type Service struct {
	Config          *Config
	Store           store.GradeStore
	Grader          *grader.Client
	TeacherSessions *SessionScheme
	StudentSessions *SessionScheme
	Throttle        *LoginThrottle
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	gradeStore, err := NewStore(config.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	throttle, err := NewLoginThrottle(config)
	if err != nil {
		return nil, fmt.Errorf("failed to init login throttle: %w", err)
	}

	ttl := time.Duration(config.Auth.SessionTTLHours) * time.Hour

	return &Service{
		Config:          config,
		Store:           gradeStore,
		Grader:          grader.NewClient(config.Grader.APIKey, config.Grader.Model, config.Grader.BaseURL),
		TeacherSessions: NewSessionScheme(TeacherCookieName, config.Auth.TeacherSecret, ttl),
		StudentSessions: NewSessionScheme(StudentCookieName, config.Auth.StudentSecret, ttl),
		Throttle:        throttle,
	}, nil
}

// GradeSubmission runs one AI grading call and records the outcome: a new
// history row plus the mirrored summary column, in one transaction. A model
// call failure writes nothing; a parse glitch still writes a row, flagged
// needs_review so it cannot masquerade as an earned zero.
func (s *Service) GradeSubmission(ctx context.Context, username string, testNumber int, images []string, maxPoints int, criteria string) (*models.GradeRecord, error) {
	result, err := s.Grader.GradeSubmission(ctx, grader.Submission{
		Username:   username,
		TestNumber: testNumber,
		Images:     images,
		MaxPoints:  maxPoints,
		Criteria:   criteria,
	})
	if err != nil {
		return nil, err
	}

	record := &models.GradeRecord{
		Username:    username,
		TestNumber:  testNumber,
		Points:      result.Points,
		Reasoning:   result.Reasoning,
		ImagesCount: len(images),
		Source:      models.GradeSourceAI,
		NeedsReview: result.NeedsReview,
		GradedAt:    time.Now().Unix(),
	}
	if err := s.Store.RecordGrade(record); err != nil {
		return nil, fmt.Errorf("failed to record grade: %w", err)
	}

	metrics.GradingCallsTotal.WithLabelValues(
		strconv.Itoa(testNumber),
		models.GradeSourceAI,
		strconv.FormatBool(result.NeedsReview),
	).Inc()
	metrics.GradePoints.WithLabelValues(strconv.Itoa(testNumber)).Observe(float64(result.Points))

	return record, nil
}

type NormalizationPreview struct {
	Username     string `json:"username"`
	OldPoints    int    `json:"old_points"`
	NewPoints    int    `json:"new_points"`
	ModelMissing bool   `json:"model_missing,omitempty"`
}

type NormalizationReport struct {
	Total   int                    `json:"total"`
	Updated int                    `json:"updated"`
	Preview []NormalizationPreview `json:"preview"`
}

// NormalizeGrades re-scores the latest grade of every student for one test
// through a single model call. Students the model omits keep their original
// points and are only flagged in the preview; the silent-zero behavior of
// the old pipeline was a bug, not a feature. dryRun computes the preview
// without writing anything.
func (s *Service) NormalizeGrades(ctx context.Context, testNumber, maxPoints int, dryRun bool) (*NormalizationReport, error) {
	current, err := s.Store.FetchLatestGradesForTest(testNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to collect grades: %w", err)
	}

	report := &NormalizationReport{
		Total:   len(current),
		Preview: []NormalizationPreview{},
	}
	if len(current) == 0 {
		return report, nil
	}

	roster := make([]grader.StudentGrade, 0, len(current))
	for _, rec := range current {
		roster = append(roster, grader.StudentGrade{
			Username:  rec.Username,
			Points:    rec.Points,
			Reasoning: rec.Reasoning,
		})
	}

	normalized, err := s.Grader.NormalizeGrades(ctx, maxPoints, roster)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	for _, rec := range current {
		ng, ok := normalized[rec.Username]
		if !ok {
			report.Preview = append(report.Preview, NormalizationPreview{
				Username:     rec.Username,
				OldPoints:    rec.Points,
				NewPoints:    rec.Points,
				ModelMissing: true,
			})
			continue
		}

		report.Preview = append(report.Preview, NormalizationPreview{
			Username:  rec.Username,
			OldPoints: rec.Points,
			NewPoints: ng.Points,
		})
		if dryRun {
			continue
		}

		reasoning := ng.Reasoning
		if reasoning == "" {
			reasoning = rec.Reasoning
		}
		record := &models.GradeRecord{
			Username:   rec.Username,
			TestNumber: testNumber,
			Points:     ng.Points,
			Reasoning:  reasoning,
			Source:     models.GradeSourceNormalization,
			GradedAt:   now,
		}
		if err := s.Store.RecordGrade(record); err != nil {
			return nil, fmt.Errorf("failed to record normalized grade for %s: %w", rec.Username, err)
		}
		report.Updated++

		metrics.GradingCallsTotal.WithLabelValues(
			strconv.Itoa(testNumber),
			models.GradeSourceNormalization,
			"false",
		).Inc()
	}

	return report, nil
}

func (s *Service) Close() error {
	var errs []error

	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := s.Throttle.Close(); err != nil {
		errs = append(errs, fmt.Errorf("throttle: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
