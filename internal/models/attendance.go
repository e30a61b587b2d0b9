package models

import (
	"github.com/go-playground/validator/v10"
)

// AttendanceRecord is one presence mark for a student on a calendar day.
// The store keeps at most one row per (date, username); re-submission
// overwrites present.
type AttendanceRecord struct {
	Date     string `db:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Username string `db:"username" json:"username" validate:"required"`
	Present  bool   `db:"present" json:"present"`
}

func (a *AttendanceRecord) Validate() error {
	validate := validator.New()
	return validate.Struct(a)
}
