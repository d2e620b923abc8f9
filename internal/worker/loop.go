// Package worker contains the polling loops that drain the durable job
// queues: photo and text analysis (each folding in clarifications), report
// generation, and document export. All loops share the same engine and a
// single cancellation context.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Step processes at most one job row. It reports worked=true when a row was
// handled (successfully or not) so the loop polls again immediately instead
// of sleeping. A nil *MealAnalysis-style "no usable result" is resolved
// inside the step and is not an error here.
type Step func(ctx context.Context) (worked bool, err error)

// Loop runs a Step until the context is cancelled. Idle polls sleep for the
// poll interval unless woken earlier; step errors pause the loop briefly so
// a systemic failure does not hot-loop.
type Loop struct {
	name         string
	step         Step
	pollInterval time.Duration
	errorPause   time.Duration
	wake         chan struct{}
	logger       *slog.Logger
}

// NewLoop creates a loop around the given step.
func NewLoop(name string, step Step, pollInterval, errorPause time.Duration, logger *slog.Logger) *Loop {
	return &Loop{
		name:         name,
		step:         step,
		pollInterval: pollInterval,
		errorPause:   errorPause,
		wake:         make(chan struct{}, 1),
		logger:       logger,
	}
}

// Wake nudges an idle loop to poll immediately. Called by the enqueue path
// so fresh work does not wait out the poll interval. Never blocks.
func (l *Loop) Wake() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled. A cancellation observed mid-step exits
// the loop without treating the step as failed.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("worker loop started",
		slog.String("worker", l.name),
		slog.Duration("poll_interval", l.pollInterval))

	for {
		if ctx.Err() != nil {
			l.logger.Info("worker loop stopped", slog.String("worker", l.name))
			return
		}

		worked, err := l.runStep(ctx)
		switch {
		case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
			l.logger.Info("worker loop stopped", slog.String("worker", l.name))
			return
		case err != nil:
			l.logger.Error("worker step failed",
				slog.String("worker", l.name),
				slog.String("error", err.Error()))
			if !l.sleep(ctx, l.errorPause) {
				l.logger.Info("worker loop stopped", slog.String("worker", l.name))
				return
			}
		case worked:
			// Drain the queue before going idle.
		default:
			select {
			case <-ctx.Done():
				l.logger.Info("worker loop stopped", slog.String("worker", l.name))
				return
			case <-l.wake:
			case <-time.After(l.pollInterval):
			}
		}
	}
}

// runStep shields the loop from a panicking step. A single bad row must
// delay and continue, never terminate the worker.
func (l *Loop) runStep(ctx context.Context) (worked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			worked = false
			err = fmt.Errorf("worker step panicked: %v", r)
		}
	}()
	return l.step(ctx)
}

// sleep waits for d or until cancellation, reporting false when cancelled.
func (l *Loop) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
