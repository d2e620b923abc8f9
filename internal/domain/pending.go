package domain

import (
	"errors"
	"time"
)

// JobStatus is the queue state of a pending row. There is no terminal
// status: rows are deleted on success or once the attempt cap is exhausted.
type JobStatus string

// Possible job status values
const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
)

// Common validation errors for pending rows
var (
	ErrEmptyPendingOwner   = errors.New("pending meal owner ID cannot be empty")
	ErrEmptyPendingPayload = errors.New("pending meal has neither image nor description")
	ErrEmptyClarifyNote    = errors.New("clarification note cannot be empty")
	ErrEmptyClarifyMeal    = errors.New("clarification meal ID cannot be empty")
)

// PendingMeal is a queued unit of analysis work: a photo or a free-text meal
// description waiting for the analysis collaborator.
type PendingMeal struct {
	ID      int64      `json:"id"`
	OwnerID int64      `json:"owner_id"`
	Source  MealSource `json:"source"`

	ImageBytes  []byte `json:"-"`
	ImageMime   string `json:"image_mime,omitempty"`
	Description string `json:"description,omitempty"`

	// ClarifyNote optionally accompanies a fresh photo so the first
	// analysis pass already sees the user's hint.
	ClarifyNote string `json:"clarify_note,omitempty"`

	// DesiredAt is the logical time the resulting meal should be
	// attributed to. Defaults to CreatedAt on enqueue.
	DesiredAt time.Time `json:"desired_at"`

	Status    JobStatus `json:"status"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPendingPhotoMeal creates a queued photo analysis job.
func NewPendingPhotoMeal(ownerID int64, image []byte, mime, clarifyNote string) (*PendingMeal, error) {
	now := time.Now().UTC()
	p := &PendingMeal{
		OwnerID:     ownerID,
		Source:      MealSourcePhoto,
		ImageBytes:  image,
		ImageMime:   mime,
		ClarifyNote: clarifyNote,
		DesiredAt:   now,
		Status:      JobStatusQueued,
		CreatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewPendingTextMeal creates a queued text analysis job.
func NewPendingTextMeal(ownerID int64, description string) (*PendingMeal, error) {
	now := time.Now().UTC()
	p := &PendingMeal{
		OwnerID:     ownerID,
		Source:      MealSourceText,
		Description: description,
		DesiredAt:   now,
		Status:      JobStatusQueued,
		CreatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks if the PendingMeal has valid data.
func (p *PendingMeal) Validate() error {
	if p.OwnerID == 0 {
		return ErrEmptyPendingOwner
	}
	switch p.Source {
	case MealSourcePhoto:
		if len(p.ImageBytes) == 0 {
			return ErrEmptyPendingPayload
		}
	case MealSourceText:
		if p.Description == "" {
			return ErrEmptyPendingPayload
		}
	default:
		return ErrInvalidMealSource
	}
	return nil
}

// Clarification is a queued correction against an existing meal. If the
// referenced meal has been deleted the clarification is discarded, since
// there is nothing left to correct.
type Clarification struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"owner_id"`
	MealID  int64  `json:"meal_id"`
	Note    string `json:"note"`

	// NewTime optionally moves the meal to a different logical time.
	NewTime *time.Time `json:"new_time,omitempty"`

	Status    JobStatus `json:"status"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}

// NewClarification creates a queued clarification for the given meal.
func NewClarification(ownerID, mealID int64, note string, newTime *time.Time) (*Clarification, error) {
	c := &Clarification{
		OwnerID:   ownerID,
		MealID:    mealID,
		Note:      note,
		NewTime:   newTime,
		Status:    JobStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks if the Clarification has valid data.
func (c *Clarification) Validate() error {
	if c.OwnerID == 0 {
		return ErrEmptyPendingOwner
	}
	if c.MealID == 0 {
		return ErrEmptyClarifyMeal
	}
	if c.Note == "" {
		return ErrEmptyClarifyNote
	}
	return nil
}
