package review

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bryanwahyu/platecheck/internal/application"
	domain "github.com/bryanwahyu/platecheck/internal/domain/results"
)

// Service implements the review use-cases: aggregate, search, correct.
type Service struct {
	Repo       domain.Repository
	Clock      application.Clock
	ReviewedBy domain.ReviewedBy
	Logger     *zap.Logger
}

func NewService(repo domain.Repository, clock application.Clock, by domain.ReviewedBy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = application.SystemClock{}
	}
	if !by.Valid() {
		by = domain.ReviewedByCorrection
	}
	return &Service{Repo: repo, Clock: clock, ReviewedBy: by, Logger: logger}
}

// Dashboard is everything one search renders.
type Dashboard struct {
	Filter   domain.Filter
	Accuracy domain.Accuracy
	Results  []*domain.AnalysisResult
}

// SaveCommand carries one record's submitted form. Range is the search the
// form was rendered under, used to recompute the rate afterwards.
type SaveCommand struct {
	ID         domain.ID
	Correction domain.Correction
	IsCorrect  bool
	Range      domain.TimeRange
}

// SaveResult is what a committed save reports back. Result is nil when the
// row could not be read back; StaleAccuracy is set when the rate could not be
// recomputed.
type SaveResult struct {
	ID            domain.ID              `json:"id"`
	Accuracy      domain.Accuracy        `json:"accuracy"`
	StaleAccuracy bool                   `json:"stale_accuracy"`
	Result        *domain.AnalysisResult `json:"result"`
}

// Stats returns the recognition rate inputs for the range.
func (s *Service) Stats(ctx context.Context, tr domain.TimeRange) (domain.Accuracy, error) {
	return s.Repo.Stats(ctx, tr, s.ReviewedBy)
}

// Search returns at most domain.MaxResults rows, newest first.
func (s *Service) Search(ctx context.Context, f domain.Filter) ([]*domain.AnalysisResult, error) {
	return s.Repo.Search(ctx, f, domain.MaxResults)
}

// Load runs the stats and record queries for one explicit search.
func (s *Service) Load(ctx context.Context, f domain.Filter) (Dashboard, error) {
	acc, err := s.Stats(ctx, f.Range)
	if err != nil {
		return Dashboard{}, err
	}
	list, err := s.Search(ctx, f)
	if err != nil {
		return Dashboard{}, err
	}
	s.Logger.Debug("search",
		zap.Time("start", f.Range.Start),
		zap.Time("end", f.Range.End),
		zap.Bool("unchecked_only", f.UncheckedOnly),
		zap.Int("results", len(list)),
	)
	return Dashboard{Filter: f, Accuracy: acc, Results: list}, nil
}

// SaveCorrection stores one record's correction, reads the row back and
// recomputes the rate for the range the reviewer is looking at.
func (s *Service) SaveCorrection(ctx context.Context, cmd SaveCommand) (SaveResult, error) {
	at := s.Clock.Now()
	if err := s.Repo.UpdateCorrection(ctx, cmd.ID, cmd.Correction, cmd.IsCorrect, at); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.Logger.Warn("correction matched no row", zap.Int64("id", int64(cmd.ID)))
			return SaveResult{ID: cmd.ID}, err
		}
		return SaveResult{ID: cmd.ID}, fmt.Errorf("save correction: %w", err)
	}
	s.Logger.Info("correction saved",
		zap.Int64("id", int64(cmd.ID)),
		zap.Bool("is_correct", cmd.IsCorrect),
	)

	// The row is committed from here on; read-back failures only cost the
	// caller the fresh row and rate.
	res := SaveResult{ID: cmd.ID}
	saved, err := s.Repo.Get(ctx, cmd.ID)
	if err != nil {
		s.Logger.Warn("reload after save failed", zap.Int64("id", int64(cmd.ID)), zap.Error(err))
	} else {
		res.Result = saved
	}
	acc, err := s.Stats(ctx, cmd.Range)
	if err != nil {
		s.Logger.Warn("recompute stats after save failed", zap.Int64("id", int64(cmd.ID)), zap.Error(err))
		res.StaleAccuracy = true
	} else {
		res.Accuracy = acc
	}
	return res, nil
}
