// Package service implements the request-path operations: enqueueing
// analysis work, the checksum-deduplicated report cache, and export job
// submission. Workers drain what these services enqueue.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/nutrilog/nutrilog-api/internal/store"
)

// Waker nudges an idle worker loop so fresh work is picked up without
// waiting out the poll interval.
type Waker interface {
	Wake()
}

// NoopWaker satisfies Waker where no loop is attached (tests, tooling).
type NoopWaker struct{}

func (NoopWaker) Wake() {}

// MealService handles meal submission and queries. Submissions only insert
// queue rows; the analysis workers produce the actual meals.
type MealService struct {
	meals          store.MealStore
	pendings       store.PendingMealStore
	clarifications store.ClarificationStore
	photoWaker     Waker
	textWaker      Waker
	logger         *slog.Logger
}

// NewMealService creates a MealService. The two wakers belong to the photo
// and text analysis loops.
func NewMealService(
	meals store.MealStore,
	pendings store.PendingMealStore,
	clarifications store.ClarificationStore,
	photoWaker Waker,
	textWaker Waker,
	logger *slog.Logger,
) *MealService {
	return &MealService{
		meals:          meals,
		pendings:       pendings,
		clarifications: clarifications,
		photoWaker:     photoWaker,
		textWaker:      textWaker,
		logger:         logger,
	}
}

// SubmitPhoto enqueues a meal photo for analysis.
func (s *MealService) SubmitPhoto(ctx context.Context, ownerID int64, image []byte, mime, note string) (*domain.PendingMeal, error) {
	pending, err := domain.NewPendingPhotoMeal(ownerID, image, mime, note)
	if err != nil {
		return nil, err
	}
	if err := s.pendings.Enqueue(ctx, pending); err != nil {
		return nil, fmt.Errorf("failed to enqueue photo: %w", err)
	}

	s.logger.Info("photo queued for analysis",
		slog.Int64("pending_id", pending.ID),
		slog.Int64("owner_id", ownerID),
		slog.Int("image_bytes", len(image)))
	s.photoWaker.Wake()
	return pending, nil
}

// SubmitText enqueues a free-text meal description for analysis.
func (s *MealService) SubmitText(ctx context.Context, ownerID int64, description string) (*domain.PendingMeal, error) {
	pending, err := domain.NewPendingTextMeal(ownerID, description)
	if err != nil {
		return nil, err
	}
	if err := s.pendings.Enqueue(ctx, pending); err != nil {
		return nil, fmt.Errorf("failed to enqueue description: %w", err)
	}

	s.logger.Info("description queued for analysis",
		slog.Int64("pending_id", pending.ID),
		slog.Int64("owner_id", ownerID))
	s.textWaker.Wake()
	return pending, nil
}

// SubmitClarification enqueues a correction against an existing meal. The
// meal must still exist at submission time; a delete racing with the queued
// clarification is handled by the worker, which discards the orphan.
func (s *MealService) SubmitClarification(ctx context.Context, ownerID, mealID int64, note string, newTime *time.Time) (*domain.Clarification, error) {
	meal, err := s.meals.GetByID(ctx, ownerID, mealID)
	if err != nil {
		return nil, fmt.Errorf("failed to load meal %d: %w", mealID, err)
	}

	clarification, err := domain.NewClarification(ownerID, mealID, note, newTime)
	if err != nil {
		return nil, err
	}
	if err := s.clarifications.Enqueue(ctx, clarification); err != nil {
		return nil, fmt.Errorf("failed to enqueue clarification: %w", err)
	}

	s.logger.Info("clarification queued",
		slog.Int64("clarification_id", clarification.ID),
		slog.Int64("meal_id", mealID),
		slog.Int64("owner_id", ownerID))
	// Clarifications drain through the loop matching the meal's source.
	if meal.Source == domain.MealSourcePhoto {
		s.photoWaker.Wake()
	} else {
		s.textWaker.Wake()
	}
	return clarification, nil
}

// ListMeals returns the owner's meals in [from, to], oldest first. A zero
// `to` means "until now".
func (s *MealService) ListMeals(ctx context.Context, ownerID int64, from, to time.Time) ([]*domain.Meal, error) {
	return s.meals.ListBetween(ctx, ownerID, from, to)
}

// GetMeal returns one meal owned by ownerID.
func (s *MealService) GetMeal(ctx context.Context, ownerID, id int64) (*domain.Meal, error) {
	return s.meals.GetByID(ctx, ownerID, id)
}

// DeleteMeal removes a meal. Clarifications already queued against it are
// discarded by the worker when it finds the meal gone.
func (s *MealService) DeleteMeal(ctx context.Context, ownerID, id int64) error {
	if err := s.meals.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.logger.Info("meal deleted",
		slog.Int64("meal_id", id),
		slog.Int64("owner_id", ownerID))
	return nil
}
