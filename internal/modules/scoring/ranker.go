package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/aristath/sentinel-futures/internal/modules/features"
	"github.com/rs/zerolog"
)

// DefaultTopK is the number of symbols held after each rebalance
const DefaultTopK = 3

// Ranked is one symbol with its model score. Score is NaN when the model gave none.
type Ranked struct {
	Symbol string  `json:"symbol"`
	Score  float64 `json:"score"`
}

// Ranker orders the universe by model score
type Ranker struct {
	scorer Scorer
	k      int
	log    zerolog.Logger
}

// NewRanker creates a ranker selecting k symbols. k < 1 uses DefaultTopK.
func NewRanker(scorer Scorer, k int, log zerolog.Logger) *Ranker {
	if k < 1 {
		k = DefaultTopK
	}
	return &Ranker{
		scorer: scorer,
		k:      k,
		log:    log.With().Str("component", "ranker").Logger(),
	}
}

// K returns the selection size
func (r *Ranker) K() int {
	return r.k
}

// Rank returns every table symbol by descending score. Ties keep table order
// and symbols without a finite score go last.
func (r *Ranker) Rank(ctx context.Context, table *features.Table) ([]Ranked, error) {
	if r.scorer == nil {
		return nil, fmt.Errorf("%w: no scorer configured", domain.ErrModelUnavailable)
	}
	if table == nil || len(table.Rows) == 0 {
		return nil, fmt.Errorf("%w: empty feature table", domain.ErrModelUnavailable)
	}

	scores, err := r.scorer.Score(ctx, table)
	if err != nil {
		if errors.Is(err, domain.ErrModelUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}

	ranked := make([]Ranked, len(table.Rows))
	for i, row := range table.Rows {
		score, ok := scores[row.Symbol]
		if !ok || math.IsInf(score, 0) {
			score = math.NaN()
		}
		ranked[i] = Ranked{Symbol: row.Symbol, Score: score}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Score, ranked[j].Score
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a > b
	})
	return ranked, nil
}

// SelectTop returns the K best symbols, or every symbol if the table is smaller
func (r *Ranker) SelectTop(ctx context.Context, table *features.Table) ([]string, error) {
	ranked, err := r.Rank(ctx, table)
	if err != nil {
		return nil, err
	}

	k := r.k
	if k > len(ranked) {
		k = len(ranked)
	}
	selection := make([]string, 0, k)
	for _, rk := range ranked[:k] {
		if math.IsNaN(rk.Score) {
			r.log.Warn().Str("symbol", rk.Symbol).Msg("Selected symbol has no model score")
		}
		selection = append(selection, rk.Symbol)
	}

	r.log.Info().Strs("selection", selection).Msg("Selected top symbols")
	return selection, nil
}
