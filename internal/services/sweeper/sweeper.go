// Package sweeper периодически завершает простаивающие сессии и истекает просроченные коды.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/edu-identity/internal/lib/metrics"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
)

// Repository операции очистки.
type Repository interface {
	DeactivateIdleSessions(ctx context.Context, cutoff time.Time) (int64, error)
	ExpireStaleCodes(ctx context.Context, now time.Time) (int64, error)
}

// Report результат одного прохода.
type Report struct {
	IdleSessions int64
	StaleCodes   int64
}

// Service фоновая очистка.
type Service struct {
	repo        Repository
	idleTimeout time.Duration
	interval    time.Duration
	metrics     *metrics.Recorder
	log         *slog.Logger
	now         func() time.Time
}

// NewService создаёт Service.
func NewService(repo Repository, idleTimeout, interval time.Duration, m *metrics.Recorder, log *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		idleTimeout: idleTimeout,
		interval:    interval,
		metrics:     m,
		log:         log,
		now:         time.Now,
	}
}

// Run выполняет проход сразу и затем каждые interval до отмены ctx.
func (s *Service) Run(ctx context.Context) {
	s.log.Info("sweeper started", slog.Duration("interval", s.interval), slog.Duration("idle_timeout", s.idleTimeout))
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	report, err := s.Sweep(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.Error("sweep failed", sl.Err(err))
		}
		return
	}
	if report.IdleSessions > 0 || report.StaleCodes > 0 {
		s.log.Info("sweep finished",
			slog.Int64("idle_sessions", report.IdleSessions),
			slog.Int64("stale_codes", report.StaleCodes),
		)
	}
}

// Sweep выполняет один проход. Ошибка одного шага не отменяет второй.
func (s *Service) Sweep(ctx context.Context) (Report, error) {
	const op = "sweeper.Sweep"
	now := s.now().UTC()
	var report Report

	sessions, sessErr := s.repo.DeactivateIdleSessions(ctx, now.Add(-s.idleTimeout))
	if sessErr == nil {
		report.IdleSessions = sessions
		s.metrics.SweeperRows("sessions", sessions)
	}

	codes, codeErr := s.repo.ExpireStaleCodes(ctx, now)
	if codeErr == nil {
		report.StaleCodes = codes
		s.metrics.SweeperRows("codes", codes)
	}

	if err := errors.Join(sessErr, codeErr); err != nil {
		return report, fmt.Errorf("%s: %w", op, err)
	}
	return report, nil
}
