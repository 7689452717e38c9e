package services

import (
	"context"

	"log/slog"

	"github.com/robfig/cron/v3"
)

// SettlementScheduler periodically settles active games whose end time has
// passed, so expired raffles don't wait for a caller to trigger the draw.
type SettlementScheduler struct {
	gameService *GameService
	caller      string
	spec        string
	cron        *cron.Cron
}

// NewSettlementScheduler creates a scheduler that settles on behalf of the
// given caller (the registry owner, so owner-restricted settlement still
// passes).
func NewSettlementScheduler(gameService *GameService, caller, spec string) *SettlementScheduler {
	return &SettlementScheduler{
		gameService: gameService,
		caller:      caller,
		spec:        spec,
		cron:        cron.New(),
	}
}

// Start registers the sweep job and starts the cron runner.
func (s *SettlementScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		settled := s.gameService.SettleExpired(context.Background(), s.caller)
		if settled > 0 {
			slog.Info("auto settlement sweep finished", "settled", settled)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("settlement scheduler started", "spec", s.spec)
	return nil
}

// Stop stops the cron runner, waiting for a running sweep to finish.
func (s *SettlementScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
