package service

import (
	"context"
	"time"

	appErr "codearena/pkg/errors"
)

func (s *Service) acquireSlot(ctx context.Context) error {
	wait := s.queueWait
	if wait <= 0 {
		wait = 2 * time.Second
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return contextError(ctx.Err())
	case <-timer.C:
		return appErr.New(appErr.JudgeQueueFull).WithMessage("judge pool is full")
	}
}

func (s *Service) releaseSlot() {
	select {
	case <-s.sem:
	default:
	}
}
