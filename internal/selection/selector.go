package selection

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"assessment-service/internal/apperror"
	"assessment-service/internal/models"
	"assessment-service/internal/repository"

	"github.com/google/uuid"
)

// Selector assembles question sets from the active pool. It keeps no state
// between calls; every call draws from its own random source.
type Selector struct {
	pools   *PoolManager
	cfg     Config
	newRand func() *rand.Rand
	now     func() time.Time
}

// NewSelector creates a new selector
func NewSelector(questions repository.QuestionStore, cfg Config) *Selector {
	return &Selector{
		pools: NewPoolManager(questions),
		cfg:   cfg,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		now: time.Now,
	}
}

// WithRandSource makes every call draw from sources produced by newRand.
func (s *Selector) WithRandSource(newRand func() *rand.Rand) *Selector {
	s.newRand = newRand
	return s
}

// Config returns the selector configuration.
func (s *Selector) Config() Config {
	return s.cfg
}

// Inspect reports the per-tier size of the active pool for filter.
func (s *Selector) Inspect(ctx context.Context, filter models.QuestionFilter) (*PoolSummary, error) {
	summary, err := s.pools.Summary(ctx, filter)
	if err != nil {
		return nil, apperror.Internal("inspect", err)
	}
	return summary, nil
}

// Assemble draws a question set satisfying req. The set is not persisted.
func (s *Selector) Assemble(ctx context.Context, req Request) (*models.QuestionSet, error) {
	const op = "assemble"

	if req.QuestionCount == 0 {
		req.QuestionCount = s.cfg.DefaultQuestions
	}
	if req.Kind == "" {
		req.Kind = models.SetKindPractice
	}
	if req.PointsPolicy == "" {
		req.PointsPolicy = models.PointsEqual
	}
	if err := s.validate(op, &req); err != nil {
		return nil, err
	}

	rng := s.newRand()
	targets := s.targets(req)

	var drawn []models.Question
	if targets == nil {
		pool, err := s.pools.Pool(ctx, req.Filter)
		if err != nil {
			return nil, apperror.Internal(op, err)
		}
		if len(pool) == 0 {
			return nil, ErrEmptyPool.With(op, describeFilter(req.Filter))
		}
		if len(pool) < req.QuestionCount {
			return nil, ErrInsufficientPool.With(op,
				fmt.Sprintf("any: need %d, have %d", req.QuestionCount, len(pool)))
		}
		drawn = draw(rng, pool, req.QuestionCount)
	} else {
		pools, err := s.pools.TierPools(ctx, req.Filter, targets)
		if err != nil {
			return nil, apperror.Internal(op, err)
		}
		for _, tier := range models.Difficulties {
			need := targets[tier]
			if need == 0 {
				continue
			}
			if have := len(pools[tier]); have < need {
				empty, err := s.matchesNothing(ctx, req.Filter, pools)
				if err != nil {
					return nil, apperror.Internal(op, err)
				}
				if empty {
					return nil, ErrEmptyPool.With(op, describeFilter(req.Filter))
				}
				return nil, ErrInsufficientPool.With(op, fmt.Sprintf("%s: need %d, have %d", tier, need, have))
			}
		}
		for _, tier := range models.Difficulties {
			if targets[tier] > 0 {
				drawn = append(drawn, draw(rng, pools[tier], targets[tier])...)
			}
		}
	}

	if req.randomize() {
		rng.Shuffle(len(drawn), func(i, j int) { drawn[i], drawn[j] = drawn[j], drawn[i] })
	}

	items := s.assignPoints(req, drawn)
	set := &models.QuestionSet{
		ID:               uuid.NewString(),
		Title:            req.Title,
		Kind:             req.Kind,
		Items:            items,
		TimeLimitSeconds: req.TimeLimitSeconds,
		PassingScore:     req.PassingScore,
		CreatedBy:        req.CreatedBy,
		CreatedAt:        s.now().UTC(),
		Generation: &models.GenerationParams{
			Filter:             req.Filter,
			QuestionCount:      req.QuestionCount,
			Difficulty:         req.Difficulty,
			Distribution:       req.Distribution,
			PointsPolicy:       req.PointsPolicy,
			TotalPoints:        req.TotalPoints,
			RandomizeQuestions: req.randomize(),
			TierCounts:         tierCounts(drawn),
		},
	}
	set.TotalPoints = set.SumPoints()
	return set, nil
}

func (s *Selector) validate(op string, req *Request) error {
	if req.QuestionCount < 1 || (s.cfg.MaxQuestions > 0 && req.QuestionCount > s.cfg.MaxQuestions) {
		return ErrInvalidCount.With(op, fmt.Sprintf("got %d, max %d", req.QuestionCount, s.cfg.MaxQuestions))
	}
	if req.Difficulty != "" && req.Distribution != nil {
		return ErrConflictingPolicy.With(op, "")
	}
	if req.Difficulty != "" && !req.Difficulty.Valid() {
		return ErrUnknownDifficulty.With(op, string(req.Difficulty))
	}
	if d := req.Distribution; d != nil {
		if d.Easy < 0 || d.Medium < 0 || d.Hard < 0 {
			return ErrInvalidDistribution.With(op, "negative percentage")
		}
		if math.Abs(d.Sum()-100) > s.cfg.Tolerance {
			return ErrInvalidDistribution.With(op, fmt.Sprintf("sum is %g", d.Sum()))
		}
	}
	switch req.PointsPolicy {
	case models.PointsEqual, models.PointsByDifficulty:
	default:
		return ErrUnknownPointsPolicy.With(op, string(req.PointsPolicy))
	}
	if req.TotalPoints != 0 && req.TotalPoints < req.QuestionCount {
		return ErrInvalidTotalPoints.With(op, fmt.Sprintf("%d points for %d questions", req.TotalPoints, req.QuestionCount))
	}
	switch req.Kind {
	case models.SetKindPractice, models.SetKindQuiz:
	default:
		return ErrUnknownKind.With(op, string(req.Kind))
	}
	if p := req.PassingScore; p != nil && (*p < 0 || *p > 100) {
		return ErrInvalidPassingScore.With(op, fmt.Sprint(*p))
	}
	return nil
}

// targets returns the per-tier draw counts, or nil when the whole filtered
// pool is eligible.
func (s *Selector) targets(req Request) map[models.Difficulty]int {
	switch {
	case req.Difficulty != "":
		return map[models.Difficulty]int{req.Difficulty: req.QuestionCount}
	case req.Distribution != nil:
		return TierCounts(req.QuestionCount, *req.Distribution)
	}
	return nil
}

func (s *Selector) assignPoints(req Request, questions []models.Question) []models.SetItem {
	weights := make([]int, len(questions))
	for i, q := range questions {
		weights[i] = 1
		if req.PointsPolicy == models.PointsByDifficulty {
			if w, ok := s.cfg.Weights[q.Difficulty]; ok && w > 0 {
				weights[i] = w
			}
		}
	}
	points := weights
	if req.TotalPoints > 0 {
		points = ApportionPoints(weights, req.TotalPoints)
	}

	items := make([]models.SetItem, len(questions))
	for i, q := range questions {
		items[i] = models.SetItem{QuestionID: q.ID, Difficulty: q.Difficulty, Points: points[i]}
	}
	return items
}

// matchesNothing reports whether filter selects no active question in any
// tier. Only tiers with a target were fetched, so an all-empty fetch is
// confirmed with a count over every tier.
func (s *Selector) matchesNothing(ctx context.Context, filter models.QuestionFilter, pools map[models.Difficulty][]models.Question) (bool, error) {
	for _, pool := range pools {
		if len(pool) > 0 {
			return false, nil
		}
	}
	summary, err := s.pools.Summary(ctx, filter)
	if err != nil {
		return false, err
	}
	return summary.Total == 0, nil
}

// draw picks k questions uniformly without replacement using a partial
// Fisher-Yates shuffle over a copy of pool.
func draw(rng *rand.Rand, pool []models.Question, k int) []models.Question {
	picked := make([]models.Question, len(pool))
	copy(picked, pool)
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(picked)-i)
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked[:k]
}

func tierCounts(questions []models.Question) map[models.Difficulty]int {
	counts := make(map[models.Difficulty]int)
	for _, q := range questions {
		counts[q.Difficulty]++
	}
	return counts
}

func describeFilter(f models.QuestionFilter) string {
	return fmt.Sprintf("topics=%v tags=%v", f.TopicIDs, f.TagIDs)
}
