package attempt

import "assessment-service/internal/apperror"

var (
	ErrAttemptNotFound = apperror.New(apperror.KindNotFound, "attempt_not_found",
		"attempt not found")
	ErrQuestionSetNotFound = apperror.New(apperror.KindNotFound, "question_set_not_found",
		"question set not found")

	ErrAttemptAlreadyActive = apperror.New(apperror.KindConflict, "attempt_already_active",
		"an attempt for this question set is already in progress")
	ErrAttemptNotActive = apperror.New(apperror.KindConflict, "attempt_not_active",
		"attempt not active")
	ErrAttemptExpired = apperror.New(apperror.KindConflict, "attempt_expired",
		"attempt time limit has passed")
	ErrContention = apperror.New(apperror.KindConflict, "attempt_contention",
		"attempt is being modified concurrently, retry later")

	ErrQuestionNotInAttempt = apperror.New(apperror.KindValidation, "question_not_in_attempt",
		"question is not part of this attempt")
	ErrUnknownOption = apperror.New(apperror.KindValidation, "unknown_option",
		"selected label is not an option of the question")
)
