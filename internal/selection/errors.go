package selection

import "assessment-service/internal/apperror"

var (
	ErrInvalidCount = apperror.New(apperror.KindConfiguration, "invalid_question_count",
		"question count is out of range")
	ErrConflictingPolicy = apperror.New(apperror.KindConfiguration, "conflicting_difficulty_policy",
		"difficulty and distribution are mutually exclusive")
	ErrInvalidDistribution = apperror.New(apperror.KindConfiguration, "invalid_distribution",
		"distribution must sum to 100")
	ErrUnknownDifficulty = apperror.New(apperror.KindConfiguration, "unknown_difficulty",
		"unknown difficulty")
	ErrUnknownPointsPolicy = apperror.New(apperror.KindConfiguration, "unknown_points_policy",
		"unknown points policy")
	ErrInvalidTotalPoints = apperror.New(apperror.KindConfiguration, "invalid_total_points",
		"total points must be at least the question count")
	ErrInvalidPassingScore = apperror.New(apperror.KindConfiguration, "invalid_passing_score",
		"passing score must be between 0 and 100")
	ErrUnknownKind = apperror.New(apperror.KindConfiguration, "unknown_set_kind",
		"unknown question set kind")

	ErrEmptyPool = apperror.New(apperror.KindInsufficient, "empty_pool",
		"no active question matches the filter")
	ErrInsufficientPool = apperror.New(apperror.KindInsufficient, "insufficient_pool",
		"insufficient question pool")
)
