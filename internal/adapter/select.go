package adapter

import (
	"context"
	"log/slog"
)

// Selector chooses between the live and simulated adapters. The decision is
// re-evaluated at the start of every export run, never cached, so a session
// moves to live as soon as real credentials respond.
type Selector struct {
	live      Adapter
	simulated Adapter
	logger    *slog.Logger
}

// NewSelector constructs a probe-based selector.
func NewSelector(live Adapter, simulated Adapter, logger *slog.Logger) *Selector {
	return &Selector{live: live, simulated: simulated, logger: logger}
}

// Pick probes the live backend and returns it only when the probe reports a
// connected, non-simulated company. Everything else falls back to simulation.
func (s *Selector) Pick(ctx context.Context) (Adapter, ConnectionStatus) {
	if s.live != nil {
		status, err := s.live.TestConnection(ctx)
		if err != nil {
			s.logger.Warn("live adapter probe failed", slog.Any("error", err))
		} else if status.Connected && status.Mode == ModeLive {
			return s.live, status
		}
	}
	status, err := s.simulated.TestConnection(ctx)
	if err != nil {
		// The simulated probe is in-process and cannot fail today.
		s.logger.Error("simulated adapter probe failed", slog.Any("error", err))
	}
	return s.simulated, status
}
