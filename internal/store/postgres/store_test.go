package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/shrimpsizemoose/kardemumma/internal/models"
)

func setupTestDB(t *testing.T) (*PostgresStore, func()) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcpostgres.WithDatabase("kardemumma_test"),
		tcpostgres.WithUsername("kardemumma"),
		tcpostgres.WithPassword("kardemumma"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "Failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := NewPostgresStore(dsn)
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, s.ApplyMigrations("../../../migrations"), "Failed to apply migrations")

	cleanup := func() {
		_ = s.Close()
		_ = container.Terminate(ctx)
	}

	return s, cleanup
}

func intPtr(v int) *int { return &v }

func TestPostgresStore(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	at := time.Now().Unix()

	t.Run("attendance round trip", func(t *testing.T) {
		require.NoError(t, s.UpsertAttendance("2025-10-01", map[string]bool{"alice": true, "bob": false}))
		require.NoError(t, s.UpsertAttendance("2025-10-01", map[string]bool{"bob": true}))

		got, err := s.FetchAttendance("2025-10-01")
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"alice": true, "bob": true}, got)
	})

	t.Run("grade history and summary mirror", func(t *testing.T) {
		require.NoError(t, s.RecordGrade(&models.GradeRecord{
			Username: "alice", TestNumber: 1, Points: 7, Reasoning: "first pass",
			Source: models.GradeSourceAI, GradedAt: at,
		}))
		require.NoError(t, s.RecordGrade(&models.GradeRecord{
			Username: "alice", TestNumber: 1, Points: 9, Reasoning: "regraded",
			Source: models.GradeSourceNormalization, GradedAt: at + 60,
		}))

		latest, err := s.FetchLatestGrade("alice", 1)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, 9, latest.Points)

		progress, err := s.FetchProgress("alice")
		require.NoError(t, err)
		require.NotNil(t, progress)
		require.NotNil(t, progress.Test1)
		assert.Equal(t, 9, *progress.Test1)

		var count int
		require.NoError(t, s.DB.Get(&count, "SELECT COUNT(*) FROM test_grades"))
		assert.Equal(t, 2, count, "history keeps every row")
	})

	t.Run("same timestamp resolves by insertion order", func(t *testing.T) {
		require.NoError(t, s.RecordGrade(&models.GradeRecord{
			Username: "bob", TestNumber: 2, Points: 5, Source: models.GradeSourceAI, GradedAt: at,
		}))
		require.NoError(t, s.RecordGrade(&models.GradeRecord{
			Username: "bob", TestNumber: 2, Points: 8, Source: models.GradeSourceAI, GradedAt: at,
		}))

		latest, err := s.FetchLatestGrade("bob", 2)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, 8, latest.Points)
	})

	t.Run("progress partial upsert", func(t *testing.T) {
		require.NoError(t, s.UpsertProgress(&models.ProgressSummary{
			Username: "charlie",
			Test3:    intPtr(6),
		}))
		require.NoError(t, s.UpsertProgress(&models.ProgressSummary{
			Username:              "charlie",
			AssignmentFinalPoints: intPtr(25),
		}))

		p, err := s.FetchProgress("charlie")
		require.NoError(t, err)
		require.NotNil(t, p)
		require.NotNil(t, p.Test3)
		assert.Equal(t, 6, *p.Test3)
		require.NotNil(t, p.AssignmentFinalPoints)
		assert.Equal(t, 25, *p.AssignmentFinalPoints)
	})

	t.Run("latest grades for a test, one row per student", func(t *testing.T) {
		grades, err := s.FetchLatestGradesForTest(1)
		require.NoError(t, err)
		require.Len(t, grades, 1)
		assert.Equal(t, "alice", grades[0].Username)
		assert.Equal(t, 9, grades[0].Points)
	})
}
