package handlers

import (
	"net/http"

	"assessment-service/internal/models"
	"assessment-service/internal/selection"
	"assessment-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ExamHandler struct {
	Service *service.ExamService
	log     *zap.Logger
}

func NewExamHandler(s *service.ExamService, log *zap.Logger) *ExamHandler {
	return &ExamHandler{Service: s, log: log}
}

// AssembleExam builds and stores a new question set from the request policies.
func (h *ExamHandler) AssembleExam(c *gin.Context) {
	var req selection.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.CreatedBy = currentUser(c)

	set, err := h.Service.Assemble(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, set)
}

func (h *ExamHandler) GetExam(c *gin.Context) {
	set, err := h.Service.GetExam(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

// GetPool reports active question counts per difficulty for ?topic=&tag= filters.
func (h *ExamHandler) GetPool(c *gin.Context) {
	filter := models.QuestionFilter{
		TopicIDs:   c.QueryArray("topic"),
		TagIDs:     c.QueryArray("tag"),
		Difficulty: models.Difficulty(c.Query("difficulty")),
	}
	if filter.Difficulty != "" && !filter.Difficulty.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown difficulty", "code": "unknown_difficulty"})
		return
	}

	summary, err := h.Service.Pool(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
