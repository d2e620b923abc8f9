package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nutrilog/nutrilog-api/internal/analysis"
	"github.com/nutrilog/nutrilog-api/internal/domain"
	"github.com/nutrilog/nutrilog-api/internal/notify"
	"github.com/nutrilog/nutrilog-api/internal/store"
)

// AnalysisWorker drains the pending-meal and clarification queues for one
// meal source. Photo and text run as two independent instances so a burst
// of photos never starves text analysis. Within one instance the two queues
// interleave oldest-first.
type AnalysisWorker struct {
	source         domain.MealSource
	pendings       store.PendingMealStore
	clarifications store.ClarificationStore
	meals          store.MealStore
	analyzer       analysis.MealAnalyzer
	notifier       notify.Notifier
	maxAttempts    int
	logger         *slog.Logger
}

// NewAnalysisWorker creates a worker for the given source.
func NewAnalysisWorker(
	source domain.MealSource,
	pendings store.PendingMealStore,
	clarifications store.ClarificationStore,
	meals store.MealStore,
	analyzer analysis.MealAnalyzer,
	notifier notify.Notifier,
	maxAttempts int,
	logger *slog.Logger,
) *AnalysisWorker {
	return &AnalysisWorker{
		source:         source,
		pendings:       pendings,
		clarifications: clarifications,
		meals:          meals,
		analyzer:       analyzer,
		notifier:       notifier,
		maxAttempts:    maxAttempts,
		logger:         logger,
	}
}

// Step processes the oldest row across the two queues.
func (w *AnalysisWorker) Step(ctx context.Context) (bool, error) {
	pending, err := w.pendings.PeekOldest(ctx, w.source)
	if err != nil && !store.IsNotFoundError(err) {
		return false, fmt.Errorf("failed to peek pending queue: %w", err)
	}
	clarification, err := w.clarifications.PeekOldest(ctx, w.source)
	if err != nil && !store.IsNotFoundError(err) {
		return false, fmt.Errorf("failed to peek clarification queue: %w", err)
	}

	switch {
	case pending == nil && clarification == nil:
		return false, nil
	case clarification == nil || (pending != nil && !pending.CreatedAt.After(clarification.CreatedAt)):
		return w.processPending(ctx, pending)
	default:
		return w.processClarification(ctx, clarification)
	}
}

func (w *AnalysisWorker) processPending(ctx context.Context, pending *domain.PendingMeal) (bool, error) {
	status, err := w.pendings.Claim(ctx, pending.ID)
	if err != nil {
		return false, fmt.Errorf("failed to claim pending meal %d: %w", pending.ID, err)
	}
	if status != store.ClaimWon {
		w.logger.Debug("lost claim race for pending meal",
			slog.Int64("pending_id", pending.ID),
			slog.String("claim_status", status.String()))
		return true, nil
	}

	var result *domain.MealAnalysis
	switch w.source {
	case domain.MealSourcePhoto:
		result, err = w.analyzer.AnalyzePhoto(ctx, pending.ImageBytes, pending.ImageMime, pending.ClarifyNote)
	default:
		result, err = w.analyzer.AnalyzeText(ctx, pending.Description)
	}
	if err != nil {
		if isCancellation(ctx, err) {
			// Shutdown, not a failure. Return the row untouched so the
			// next process picks it up without burning an attempt.
			if reqErr := w.pendings.Requeue(ctx, pending.ID, pending.Attempts); reqErr != nil {
				w.logger.Error("failed to requeue pending meal on shutdown",
					slog.Int64("pending_id", pending.ID),
					slog.String("error", reqErr.Error()))
			}
			return false, err
		}
		return true, w.failPending(ctx, pending, err)
	}
	if result == nil {
		w.logger.Warn("analysis produced no usable result",
			slog.Int64("pending_id", pending.ID),
			slog.String("source", string(w.source)),
			slog.Int("attempts", pending.Attempts+1))
		return true, w.resolveNoResultPending(ctx, pending)
	}

	meal := &domain.Meal{
		OwnerID:     pending.OwnerID,
		Source:      pending.Source,
		CreatedAt:   pending.DesiredAt,
		ClarifyNote: pending.ClarifyNote,
		ImageBytes:  pending.ImageBytes,
		ImageMime:   pending.ImageMime,
	}
	meal.ApplyAnalysis(result)

	if err := w.meals.Create(ctx, meal); err != nil {
		return true, w.failPending(ctx, pending, fmt.Errorf("failed to create meal: %w", err))
	}
	if err := w.pendings.Delete(ctx, pending.ID); err != nil {
		return true, fmt.Errorf("failed to delete drained pending meal %d: %w", pending.ID, err)
	}

	w.logger.Info("pending meal materialized",
		slog.Int64("pending_id", pending.ID),
		slog.Int64("meal_id", meal.ID),
		slog.Int64("owner_id", meal.OwnerID),
		slog.String("source", string(w.source)))
	w.notifier.MealUpdated(ctx, meal.OwnerID, meal, pending.ID)
	return true, nil
}

// failPending applies the shared retry policy after a handler error and
// returns an error so the loop pauses.
func (w *AnalysisWorker) failPending(ctx context.Context, pending *domain.PendingMeal, cause error) error {
	if err := w.retryOrDropPending(ctx, pending); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// resolveNoResultPending applies the same retry policy without surfacing an
// error, so the loop keeps its normal cadence.
func (w *AnalysisWorker) resolveNoResultPending(ctx context.Context, pending *domain.PendingMeal) error {
	return w.retryOrDropPending(ctx, pending)
}

func (w *AnalysisWorker) retryOrDropPending(ctx context.Context, pending *domain.PendingMeal) error {
	attempts := pending.Attempts + 1
	if attempts >= w.maxAttempts {
		// Text descriptions still materialize on the last attempt so the
		// user's own words survive even when analysis never produced
		// nutrition values. Photos have nothing legible to keep.
		if pending.Source == domain.MealSourceText && pending.Description != "" {
			return w.materializeTextFallback(ctx, pending)
		}
		w.logger.Warn("dropping pending meal after exhausted attempts",
			slog.Int64("pending_id", pending.ID),
			slog.Int64("owner_id", pending.OwnerID),
			slog.Int("attempts", attempts))
		return w.pendings.Delete(ctx, pending.ID)
	}
	return w.pendings.Requeue(ctx, pending.ID, attempts)
}

// materializeTextFallback converts an exhausted text row into a meal with
// the raw description and zero nutrition.
func (w *AnalysisWorker) materializeTextFallback(ctx context.Context, pending *domain.PendingMeal) error {
	meal := &domain.Meal{
		OwnerID:   pending.OwnerID,
		Source:    pending.Source,
		CreatedAt: pending.DesiredAt,
		DishName:  pending.Description,
	}
	if err := w.meals.Create(ctx, meal); err != nil {
		return fmt.Errorf("failed to create fallback meal: %w", err)
	}
	if err := w.pendings.Delete(ctx, pending.ID); err != nil {
		return fmt.Errorf("failed to delete drained pending meal %d: %w", pending.ID, err)
	}

	w.logger.Warn("materialized text meal without analysis after exhausted attempts",
		slog.Int64("pending_id", pending.ID),
		slog.Int64("meal_id", meal.ID),
		slog.Int64("owner_id", meal.OwnerID))
	w.notifier.MealUpdated(ctx, meal.OwnerID, meal, pending.ID)
	return nil
}

func (w *AnalysisWorker) processClarification(ctx context.Context, c *domain.Clarification) (bool, error) {
	status, err := w.clarifications.Claim(ctx, c.ID)
	if err != nil {
		return false, fmt.Errorf("failed to claim clarification %d: %w", c.ID, err)
	}
	if status != store.ClaimWon {
		w.logger.Debug("lost claim race for clarification",
			slog.Int64("clarification_id", c.ID),
			slog.String("claim_status", status.String()))
		return true, nil
	}

	meal, err := w.meals.GetByID(ctx, c.OwnerID, c.MealID)
	if store.IsNotFoundError(err) {
		// The meal was deleted while the clarification waited. Nothing
		// left to correct: discard without counting an attempt.
		w.logger.Warn("discarding clarification for deleted meal",
			slog.Int64("clarification_id", c.ID),
			slog.Int64("meal_id", c.MealID),
			slog.Int64("owner_id", c.OwnerID))
		if delErr := w.clarifications.Delete(ctx, c.ID); delErr != nil {
			return true, fmt.Errorf("failed to discard orphaned clarification %d: %w", c.ID, delErr)
		}
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("failed to load meal %d for clarification: %w", c.MealID, err)
	}

	result, err := w.reanalyze(ctx, meal, c.Note)
	if err != nil {
		if isCancellation(ctx, err) {
			if reqErr := w.clarifications.Requeue(ctx, c.ID, c.Attempts); reqErr != nil {
				w.logger.Error("failed to requeue clarification on shutdown",
					slog.Int64("clarification_id", c.ID),
					slog.String("error", reqErr.Error()))
			}
			return false, err
		}
		return true, w.failClarification(ctx, c, err)
	}
	if result == nil {
		w.logger.Warn("clarification produced no usable result",
			slog.Int64("clarification_id", c.ID),
			slog.Int("attempts", c.Attempts+1))
		return true, w.retryOrDropClarification(ctx, c)
	}

	meal.ApplyAnalysis(result)
	meal.ClarifyNote = c.Note
	if c.NewTime != nil {
		meal.CreatedAt = *c.NewTime
	}
	if err := w.meals.Update(ctx, meal); err != nil {
		return true, w.failClarification(ctx, c, fmt.Errorf("failed to update meal: %w", err))
	}
	if err := w.clarifications.Delete(ctx, c.ID); err != nil {
		return true, fmt.Errorf("failed to delete drained clarification %d: %w", c.ID, err)
	}

	w.logger.Info("meal clarified in place",
		slog.Int64("clarification_id", c.ID),
		slog.Int64("meal_id", meal.ID),
		slog.Int64("owner_id", meal.OwnerID))
	w.notifier.MealUpdated(ctx, meal.OwnerID, meal, 0)
	return true, nil
}

// reanalyze prefers the stored analysis snapshot, which is cheaper and does
// not need the raw payload, falling back to the original input.
func (w *AnalysisWorker) reanalyze(ctx context.Context, meal *domain.Meal, note string) (*domain.MealAnalysis, error) {
	switch {
	case meal.SnapshotJSON != "":
		return w.analyzer.ClarifyFromSnapshot(ctx, meal.SnapshotJSON, note)
	case meal.Source == domain.MealSourcePhoto && len(meal.ImageBytes) > 0:
		return w.analyzer.AnalyzePhoto(ctx, meal.ImageBytes, meal.ImageMime, note)
	default:
		return w.analyzer.AnalyzeText(ctx, meal.DishName+". Correction: "+note)
	}
}

func (w *AnalysisWorker) failClarification(ctx context.Context, c *domain.Clarification, cause error) error {
	if err := w.retryOrDropClarification(ctx, c); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (w *AnalysisWorker) retryOrDropClarification(ctx context.Context, c *domain.Clarification) error {
	attempts := c.Attempts + 1
	if attempts >= w.maxAttempts {
		w.logger.Warn("dropping clarification after exhausted attempts",
			slog.Int64("clarification_id", c.ID),
			slog.Int64("owner_id", c.OwnerID),
			slog.Int("attempts", attempts))
		return w.clarifications.Delete(ctx, c.ID)
	}
	return w.clarifications.Requeue(ctx, c.ID, attempts)
}

// isCancellation distinguishes a shutdown signal from a handler failure so
// cancellations never count against the attempt cap.
func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
