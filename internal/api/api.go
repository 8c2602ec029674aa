package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/Tnhann/GoatDevelopers/internal/auth"
	"github.com/Tnhann/GoatDevelopers/internal/errors"
	"github.com/Tnhann/GoatDevelopers/internal/event"
	"github.com/Tnhann/GoatDevelopers/internal/quiz"
	"github.com/Tnhann/GoatDevelopers/internal/stats"
	"github.com/Tnhann/GoatDevelopers/internal/wordlist"
)

type Config struct {
	Router   *gin.Engine
	EventBus *event.Bus

	Auth  *auth.Service
	Lists *wordlist.Service
	Quiz  *quiz.Service
	Stats *stats.Service

	Redis        Redis
	NotifyPrefix string
	JWTSecret    []byte
}

type API struct {
	auth  *auth.Service
	lists *wordlist.Service
	quiz  *quiz.Service
	stats *stats.Service

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		auth:   c.Auth,
		lists:  c.Lists,
		quiz:   c.Quiz,
		stats:  c.Stats,
		redis:  c.Redis,
		prefix: c.NotifyPrefix,
	}

	a.registerRoutes(c.Router, c.JWTSecret)
	a.registerNotifications(c.EventBus)

	return a
}

func (a *API) registerRoutes(e *gin.Engine, secret []byte) {
	v1 := e.Group("/api/v1")

	v1.POST("/auth/register", a.register)
	v1.POST("/auth/login", a.login)

	authed := v1.Group("", auth.RequireAuth(secret))

	authed.GET("/profile", a.profile)
	authed.PATCH("/profile", a.updateProfile)

	authed.GET("/lists", a.listLists)
	authed.POST("/lists", a.createList)
	authed.GET("/lists/:listID", a.getList)
	authed.DELETE("/lists/:listID", a.deleteList)

	authed.GET("/lists/:listID/words", a.listWords)
	authed.POST("/lists/:listID/words", a.addWord)
	authed.PATCH("/lists/:listID/words/:wordID", a.updateWord)
	authed.DELETE("/lists/:listID/words/:wordID", a.deleteWord)

	authed.POST("/lists/:listID/learning/complete", a.completeLearning)

	authed.POST("/lists/:listID/quiz", a.startQuiz)
	authed.GET("/quiz/:sessionID", a.quizView)
	authed.PUT("/quiz/:sessionID/answer", a.selectAnswer)
	authed.POST("/quiz/:sessionID/submit", a.submitAnswer)
	authed.POST("/quiz/:sessionID/next", a.nextQuestion)
	authed.DELETE("/quiz/:sessionID", a.leaveQuiz)

	authed.GET("/stats", a.statsSummary)
}

// abortError converts a service error into the JSON error response.
func abortError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: internal error", "error", err)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{
		"code":    e.Code.String(),
		"message": e.Message,
	})
}
