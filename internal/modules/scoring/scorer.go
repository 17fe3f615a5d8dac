package scoring

import (
	"context"
	"fmt"
	"sync"

	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/aristath/sentinel-futures/internal/modules/features"
	"github.com/rs/zerolog"
)

// Scorer produces a relative score per symbol. Higher ranks first.
type Scorer interface {
	Score(ctx context.Context, table *features.Table) (map[string]float64, error)
}

// ModelScorer loads a LinearModel from an artifact source on first use and caches it
type ModelScorer struct {
	source ArtifactSource
	log    zerolog.Logger

	mu    sync.Mutex
	model *LinearModel
}

// NewModelScorer creates a scorer backed by source
func NewModelScorer(source ArtifactSource, log zerolog.Logger) *ModelScorer {
	return &ModelScorer{
		source: source,
		log:    log.With().Str("component", "model_scorer").Logger(),
	}
}

// Score loads the model if needed and scores every row
func (s *ModelScorer) Score(ctx context.Context, table *features.Table) (map[string]float64, error) {
	model, err := s.loaded(ctx)
	if err != nil {
		return nil, err
	}
	return model.Predict(table)
}

// Reload drops the cached model and loads the artifact again
func (s *ModelScorer) Reload(ctx context.Context) error {
	s.mu.Lock()
	s.model = nil
	s.mu.Unlock()
	_, err := s.loaded(ctx)
	return err
}

// Version returns the loaded model version, empty if nothing is loaded
func (s *ModelScorer) Version() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return ""
	}
	return s.model.Version
}

func (s *ModelScorer) loaded(ctx context.Context) (*LinearModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model != nil {
		return s.model, nil
	}
	if s.source == nil {
		return nil, fmt.Errorf("%w: no artifact source configured", domain.ErrModelUnavailable)
	}

	data, name, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	model, err := DecodeModel(name, data)
	if err != nil {
		return nil, err
	}

	s.model = model
	s.log.Info().
		Str("version", model.Version).
		Int("weights", len(model.Weights)).
		Msg("Loaded ranking model")
	return model, nil
}
