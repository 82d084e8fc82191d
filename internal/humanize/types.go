// Package humanize submits text to the upstream humanization service and
// polls it until the rewritten output is ready.
package humanize

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Status is a workflow state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusPolling    Status = "polling"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Readability is the target reading level, passed through to the service.
type Readability string

const (
	ReadabilityHighSchool Readability = "High School"
	ReadabilityUniversity Readability = "University"
	ReadabilityDoctorate  Readability = "Doctorate"
	ReadabilityJournalist Readability = "Journalist"
	ReadabilityMarketing  Readability = "Marketing"
)

var readabilities = []Readability{
	ReadabilityHighSchool,
	ReadabilityUniversity,
	ReadabilityDoctorate,
	ReadabilityJournalist,
	ReadabilityMarketing,
}

func (r Readability) Valid() bool {
	for _, v := range readabilities {
		if v == r {
			return true
		}
	}
	return false
}

// Purpose is the kind of document being rewritten.
type Purpose string

const (
	PurposeGeneral   Purpose = "General Writing"
	PurposeEssay     Purpose = "Essay"
	PurposeArticle   Purpose = "Article"
	PurposeMarketing Purpose = "Marketing Material"
	PurposeStory     Purpose = "Story"
)

var purposes = []Purpose{
	PurposeGeneral,
	PurposeEssay,
	PurposeArticle,
	PurposeMarketing,
	PurposeStory,
}

func (p Purpose) Valid() bool {
	for _, v := range purposes {
		if v == p {
			return true
		}
	}
	return false
}

// Readabilities lists the accepted reading levels.
func Readabilities() []Readability { return append([]Readability(nil), readabilities...) }

// Purposes lists the accepted document purposes.
func Purposes() []Purpose { return append([]Purpose(nil), purposes...) }

var (
	ErrTextTooShort       = errors.New("text is too short")
	ErrInvalidReadability = errors.New("unknown readability level")
	ErrInvalidPurpose     = errors.New("unknown purpose")
	ErrUpstreamQuota      = errors.New("humanization service quota exceeded")
	ErrSubmitFailed       = errors.New("failed to submit text for humanization")
	ErrPollFailed         = errors.New("failed to check document status")
	ErrPollTimeout        = errors.New("document was not ready in time")
	ErrWorkflowUsed       = errors.New("workflow already started")
)

// Request is one user submission.
type Request struct {
	Text        string
	Readability Readability
	Purpose     Purpose
}

// Validate fills defaults and checks the request. It never touches the network.
func (r *Request) Validate(minLength int) error {
	if r.Readability == "" {
		r.Readability = ReadabilityHighSchool
	}
	if r.Purpose == "" {
		r.Purpose = PurposeGeneral
	}
	if n := utf8.RuneCountInString(r.Text); n < minLength {
		return fmt.Errorf("%w: %d characters, need at least %d", ErrTextTooShort, n, minLength)
	}
	if !r.Readability.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidReadability, r.Readability)
	}
	if !r.Purpose.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPurpose, r.Purpose)
	}
	return nil
}

// SubmitRequest is the create-job body.
type SubmitRequest struct {
	Content     string      `json:"content"`
	Readability Readability `json:"readability"`
	Purpose     Purpose     `json:"purpose"`
	Strength    string      `json:"strength"`
	Model       string      `json:"model"`
}

// SubmitResponse is the create-job answer.
type SubmitResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// Document is the status-poll answer. Output stays empty until the job is done.
type Document struct {
	ID          string `json:"id"`
	Output      string `json:"output"`
	Input       string `json:"input"`
	Readability string `json:"readability"`
	CreatedDate string `json:"createdDate"`
	Purpose     string `json:"purpose"`
}

// Job is a point-in-time view of a tracked submission.
type Job struct {
	ID          string      `json:"id"`
	UserID      int64       `json:"-"`
	ExternalID  string      `json:"externalId,omitempty"`
	Status      Status      `json:"status"`
	Readability Readability `json:"readability"`
	Purpose     Purpose     `json:"purpose"`
	Words       int64       `json:"words"`
	Output      string      `json:"output,omitempty"`
	Error       string      `json:"error,omitempty"`
	ErrorCode   string      `json:"errorCode,omitempty"`
	Polls       int         `json:"polls"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	FinishedAt  *time.Time  `json:"finishedAt,omitempty"`
}
