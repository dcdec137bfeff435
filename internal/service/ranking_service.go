package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/dcc-ufba/monitoria-api/internal/models"
	appErrors "github.com/dcc-ufba/monitoria-api/pkg/errors"
)

// Scorer combines the three evaluation components into a final score.
// The combination formula is an injectable policy.
type Scorer interface {
	Score(discipline, selection, coefficient float64) float64
}

// WeightedScorer computes a weighted average of the components.
type WeightedScorer struct {
	DisciplineWeight  float64
	SelectionWeight   float64
	CoefficientWeight float64
}

// Score returns the weighted average rounded to two decimal places.
func (s WeightedScorer) Score(discipline, selection, coefficient float64) float64 {
	total := s.DisciplineWeight + s.SelectionWeight + s.CoefficientWeight
	if total == 0 {
		return 0
	}
	raw := (discipline*s.DisciplineWeight + selection*s.SelectionWeight + coefficient*s.CoefficientWeight) / total
	return round2(raw)
}

// MeanScorer computes the arithmetic mean of the components.
type MeanScorer struct{}

// Score returns the mean rounded to two decimal places.
func (MeanScorer) Score(discipline, selection, coefficient float64) float64 {
	return round2((discipline + selection + coefficient) / 3)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type rankingApplicationLister interface {
	ListEvaluatedByProject(ctx context.Context, projectID string) ([]models.ApplicationDetail, error)
}

type rankingCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// RankingService orders evaluated candidates per project and vacancy type.
// It only orders and reports; selection is the sole status mutator.
type RankingService struct {
	applications rankingApplicationLister
	cache        rankingCache
	scorer       Scorer
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// NewRankingService constructs the ranking service.
func NewRankingService(applications rankingApplicationLister, cache rankingCache, scorer Scorer, cacheTTL time.Duration, logger *zap.Logger) *RankingService {
	if scorer == nil {
		scorer = MeanScorer{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankingService{
		applications: applications,
		cache:        cache,
		scorer:       scorer,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

// Score exposes the configured scoring policy.
func (s *RankingService) Score(discipline, selection, coefficient float64) float64 {
	return s.scorer.Score(discipline, selection, coefficient)
}

func rankingCacheKey(projectID string, vacancyType models.VacancyType) string {
	return fmt.Sprintf("ranking:%s:%s", projectID, vacancyType)
}

// RankCandidates returns the ordered candidate list for a vacancy type.
// Order: final score descending, academic coefficient descending, then
// submission order ascending.
func (s *RankingService) RankCandidates(ctx context.Context, projectID string, vacancyType models.VacancyType) (*models.Ranking, error) {
	key := rankingCacheKey(projectID, vacancyType)
	if s.cache != nil {
		var cached models.Ranking
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if err != appErrors.ErrCacheMiss {
			s.logger.Warn("ranking cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	applications, err := s.applications.ListEvaluatedByProject(ctx, projectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load candidates")
	}

	candidates := make([]models.RankedCandidate, 0, len(applications))
	for _, app := range applications {
		if !app.Preference.Accepts(vacancyType) {
			continue
		}
		score := s.scorer.Score(*app.DisciplineGrade, *app.SelectionGrade, *app.AcademicCoefficient)
		candidates = append(candidates, models.RankedCandidate{
			ApplicationID:       app.ID,
			StudentID:           app.StudentID,
			StudentName:         app.StudentName,
			StudentRegistration: app.StudentRegistration,
			Status:              app.Status,
			Preference:          app.Preference,
			DisciplineGrade:     *app.DisciplineGrade,
			SelectionGrade:      *app.SelectionGrade,
			AcademicCoefficient: *app.AcademicCoefficient,
			FinalScore:          score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].FinalScore != candidates[j].FinalScore {
			return candidates[i].FinalScore > candidates[j].FinalScore
		}
		if candidates[i].AcademicCoefficient != candidates[j].AcademicCoefficient {
			return candidates[i].AcademicCoefficient > candidates[j].AcademicCoefficient
		}
		return i < j
	})
	for i := range candidates {
		candidates[i].Position = i + 1
	}

	ranking := &models.Ranking{
		ProjectID:   projectID,
		VacancyType: vacancyType,
		Candidates:  candidates,
		GeneratedAt: time.Now().UTC(),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, ranking, s.cacheTTL); err != nil {
			s.logger.Warn("ranking cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return ranking, nil
}

// Invalidate drops cached rankings for a project after an evaluation write.
func (s *RankingService) Invalidate(ctx context.Context, projectID string) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("ranking:%s:*", projectID)
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("ranking cache invalidation failed", zap.String("project_id", projectID), zap.Error(err))
	}
}
