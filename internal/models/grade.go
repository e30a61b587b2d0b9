package models

import (
	"github.com/go-playground/validator/v10"
)

const (
	MinTestNumber = 1
	MaxTestNumber = 4

	DefaultMaxPoints          = 10
	DefaultNormalizeMaxPoints = 12
)

const (
	GradeSourceAI            = "ai"
	GradeSourceNormalization = "normalization"
)

// GradeRecord is one historical grading event for a (student, test) pair.
// The history is append-only: the current grade is the row with the highest
// graded_at, ties broken by id descending.
type GradeRecord struct {
	ID          int64  `db:"id" json:"id"`
	Username    string `db:"username" json:"username" validate:"required"`
	TestNumber  int    `db:"test_number" json:"test_number" validate:"required,min=1,max=4"`
	Points      int    `db:"points" json:"points" validate:"min=0"`
	Reasoning   string `db:"reasoning" json:"reasoning"`
	ImagesCount int    `db:"images_count" json:"images_count"`
	Source      string `db:"source" json:"source"`
	NeedsReview bool   `db:"needs_review" json:"needs_review"`
	GradedAt    int64  `db:"graded_at" json:"graded_at"`
}

func (g *GradeRecord) Validate() error {
	validate := validator.New()
	return validate.Struct(g)
}
