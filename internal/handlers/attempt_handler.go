package handlers

import (
	"net/http"

	"assessment-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AttemptHandler struct {
	Service *service.AttemptService
	log     *zap.Logger
}

func NewAttemptHandler(s *service.AttemptService, log *zap.Logger) *AttemptHandler {
	return &AttemptHandler{Service: s, log: log}
}

type startAttemptRequest struct {
	QuestionSetID string `json:"question_set_id" binding:"required"`
}

type submitAnswerRequest struct {
	QuestionID    string `json:"question_id" binding:"required"`
	SelectedLabel string `json:"selected_label" binding:"required"`
}

func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	var req startAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	view, err := h.Service.Start(c.Request.Context(), currentUser(c), req.QuestionSetID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	view, err := h.Service.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AttemptHandler) SubmitAnswer(c *gin.Context) {
	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.Service.SubmitAnswer(c.Request.Context(), currentUser(c), c.Param("id"), req.QuestionID, req.SelectedLabel)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AttemptHandler) CompleteAttempt(c *gin.Context) {
	view, err := h.Service.Complete(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AttemptHandler) AbandonAttempt(c *gin.Context) {
	view, err := h.Service.Abandon(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
