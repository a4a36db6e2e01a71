package handlers

import (
	"errors"
	"net/http"

	"assessment-service/internal/apperror"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var kindStatus = map[apperror.Kind]int{
	apperror.KindConfiguration: http.StatusBadRequest,
	apperror.KindValidation:    http.StatusBadRequest,
	apperror.KindInsufficient:  http.StatusUnprocessableEntity,
	apperror.KindConflict:      http.StatusConflict,
	apperror.KindNotFound:      http.StatusNotFound,
	apperror.KindInternal:      http.StatusInternalServerError,
}

// StatusOf maps an engine error to its HTTP status.
func StatusOf(err error) int {
	if status, ok := kindStatus[apperror.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "Internal server error", "code": "INTERNAL"})
		return
	}

	body := gin.H{"error": err.Error(), "code": apperror.CodeOf(err)}
	var e *apperror.Error
	if errors.As(err, &e) && e.Detail != "" {
		body["detail"] = e.Detail
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_BODY"})
}
