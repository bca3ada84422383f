package reviews

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrEmptyText      = errors.New("review text is empty")
	ErrReviewNotFound = errors.New("performance review not found")
)

// Entry is a skill rating composed in a draft. TempID identifies the row in
// the draft only and never reaches the backend.
type Entry struct {
	TempID    string  `json:"tempId"`
	SkillID   int64   `json:"skillId"`
	SkillName string  `json:"skillName"`
	Rating    float64 `json:"rating"`
}

// Header holds the review fields sent on submit.
type Header struct {
	EmployeeID    int64    `json:"employeeId" validate:"required,gt=0"`
	ReporterID    int64    `json:"reporterId" validate:"omitempty,gt=0"`
	RawText       string   `json:"rawText"`
	Comments      string   `json:"comments"`
	OverallRating *float64 `json:"overallRating" validate:"omitempty,gte=0,lte=5"`
	ReviewDate    string   `json:"reviewDate" validate:"omitempty,datetime=2006-01-02"`
}

// SubmitError reports the step at which a multi-step submit stopped. Steps
// completed before it are not rolled back.
type SubmitError struct {
	Step     string
	ReviewID int64
	Err      error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit review %d failed at %s: %v", e.ReviewID, e.Step, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}
