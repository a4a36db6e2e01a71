package handlers

import (
	"net/http"

	"assessment-service/internal/models"
	"assessment-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type QuestionHandler struct {
	Service *service.QuestionService
	log     *zap.Logger
}

func NewQuestionHandler(s *service.QuestionService, log *zap.Logger) *QuestionHandler {
	return &QuestionHandler{Service: s, log: log}
}

// GetQuestion serves the public form of a question, without its answer key.
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	q, err := h.Service.GetQuestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, q.Public(q.Points))
}

func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var question models.Question
	if err := c.ShouldBindJSON(&question); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Service.CreateQuestion(c.Request.Context(), &question); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}
