package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ProgressSummary is the single denormalized per-student rollup row. All
// fields except username are nullable so that a partial upsert only touches
// the fields the caller actually sent.
type ProgressSummary struct {
	Username              string  `db:"username" json:"username" validate:"required"`
	Test1                 *int    `db:"test1" json:"test1,omitempty"`
	Test2                 *int    `db:"test2" json:"test2,omitempty"`
	Test3                 *int    `db:"test3" json:"test3,omitempty"`
	Test4                 *int    `db:"test4" json:"test4,omitempty"`
	AssignmentTaskChecked *bool   `db:"assignment_task_checked" json:"assignment_task_checked,omitempty"`
	AssignmentMidtermOK   *bool   `db:"assignment_midterm_ok" json:"assignment_midterm_ok,omitempty"`
	AssignmentTopic       *string `db:"assignment_topic" json:"assignment_topic,omitempty"`
	AssignmentPartner     *string `db:"assignment_partner" json:"assignment_partner,omitempty"`
	AssignmentFinalPoints *int    `db:"assignment_final_points" json:"assignment_final_points,omitempty"`
	AuthCode              *string `db:"auth_code" json:"auth_code,omitempty"`
}

func (p *ProgressSummary) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// TestPoints returns the mirrored points column for a test number.
func (p *ProgressSummary) TestPoints(testNumber int) (*int, error) {
	switch testNumber {
	case 1:
		return p.Test1, nil
	case 2:
		return p.Test2, nil
	case 3:
		return p.Test3, nil
	case 4:
		return p.Test4, nil
	default:
		return nil, fmt.Errorf("unknown test number %d", testNumber)
	}
}
