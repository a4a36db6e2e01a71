package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Exams     *ExamHandler
	Questions *QuestionHandler
	Attempts  *AttemptHandler
}

// SetupRoutes mounts the public and protected groups. Protected routes require
// the X-User-ID header and share the rate limiter.
func SetupRoutes(r *gin.Engine, h Handlers, limiter gin.HandlerFunc) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := r.Group("/public")
	{
		public.GET("/exams/pool", h.Exams.GetPool)
		public.GET("/exams/:id", h.Exams.GetExam)
		public.GET("/questions/:id", h.Questions.GetQuestion)
	}

	protected := r.Group("/protected", RequireUser(), limiter)
	{
		protected.POST("/exams/assemble", h.Exams.AssembleExam)
		protected.POST("/questions", h.Questions.CreateQuestion)

		attempts := protected.Group("/attempts")
		attempts.POST("", h.Attempts.StartAttempt)
		attempts.GET("/:id", h.Attempts.GetAttempt)
		attempts.POST("/:id/answers", h.Attempts.SubmitAnswer)
		attempts.POST("/:id/complete", h.Attempts.CompleteAttempt)
		attempts.POST("/:id/abandon", h.Attempts.AbandonAttempt)
	}
}
