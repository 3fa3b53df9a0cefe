// Package screener is the entry point used by the HTTP API and the CLI: it
// acquires a profile and scores it.
package screener

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/profile-screener/internal/metrics"
	"github.com/JakeFAU/profile-screener/internal/profile"
	"github.com/JakeFAU/profile-screener/internal/scoring"
)

// Acquirer produces a normalized record for a profile URL.
type Acquirer interface {
	Acquire(ctx context.Context, url string, creds *profile.Credentials) (profile.Record, error)
}

// Service screens profiles.
type Service struct {
	acquirer Acquirer
	logger   *zap.Logger
}

// New creates a Service.
func New(acquirer Acquirer, logger *zap.Logger) (*Service, error) {
	if acquirer == nil {
		return nil, errors.New("acquirer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Service{acquirer: acquirer, logger: logger.Named("screener")}, nil
}

// Screen acquires and scores the profile at url without signing in.
func (s *Service) Screen(ctx context.Context, url string) (profile.Result, error) {
	return s.screen(ctx, url, nil)
}

// ScreenWithCredentials is Screen, signing in with creds if the page requires it.
func (s *Service) ScreenWithCredentials(ctx context.Context, url string, creds profile.Credentials) (profile.Result, error) {
	return s.screen(ctx, url, &creds)
}

func (s *Service) screen(ctx context.Context, url string, creds *profile.Credentials) (profile.Result, error) {
	rec, err := s.acquirer.Acquire(ctx, url, creds)
	if err != nil {
		return profile.Result{}, err
	}
	score := scoring.Score(rec)
	metrics.ObserveScore(score.Score)
	s.logger.Info("profile screened",
		zap.String("url", url),
		zap.Int("score", score.Score),
		zap.String("band", scoring.Band(score.Score)),
	)
	return profile.NewResult(rec, score), nil
}
