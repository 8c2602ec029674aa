package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Tnhann/GoatDevelopers/internal/auth"
	"github.com/Tnhann/GoatDevelopers/internal/domain"
	"github.com/Tnhann/GoatDevelopers/internal/errors"
	"github.com/Tnhann/GoatDevelopers/internal/stats"
	"github.com/Tnhann/GoatDevelopers/internal/wordlist"
)

type (
	ListResponse struct {
		ListID      string `json:"list_id"`
		Title       string `json:"title"`
		Description string `json:"description,omitempty"`
		IsDefault   bool   `json:"is_default"`
		WordCount   int    `json:"word_count"`
	}

	WordResponse struct {
		WordID      string `json:"word_id"`
		Text        string `json:"text"`
		Translation string `json:"translation"`
		Example     string `json:"example,omitempty"`
	}

	QuizViewResponse struct {
		SessionID      string   `json:"session_id"`
		ListID         string   `json:"list_id"`
		State          string   `json:"state"`
		QuestionIndex  int      `json:"question_index"`
		TotalQuestions int      `json:"total_questions"`
		Prompt         string   `json:"prompt,omitempty"`
		Example        string   `json:"example,omitempty"`
		Options        []string `json:"options,omitempty"`
		Selected       string   `json:"selected,omitempty"`
		Revealed       bool     `json:"revealed"`
		Correct        bool     `json:"correct"`
		Answer         string   `json:"answer,omitempty"`
		Score          int      `json:"score"`
		TimeLeft       int      `json:"time_left"`
	}
)

func toListResponse(l domain.WordList) ListResponse {
	return ListResponse{
		ListID:      l.ListID,
		Title:       l.Title,
		Description: l.Description,
		IsDefault:   l.IsDefault,
		WordCount:   l.WordCount,
	}
}

func toWordResponse(w domain.Word) WordResponse {
	return WordResponse{
		WordID:      w.WordID,
		Text:        w.Text,
		Translation: w.Translation,
		Example:     w.Example,
	}
}

func toQuizViewResponse(v domain.QuizView) QuizViewResponse {
	return QuizViewResponse{
		SessionID:      v.SessionID,
		ListID:         v.ListID,
		State:          v.State,
		QuestionIndex:  v.QuestionIndex,
		TotalQuestions: v.TotalQuestions,
		Prompt:         v.Prompt,
		Example:        v.Example,
		Options:        v.Options,
		Selected:       v.Selected,
		Revealed:       v.Revealed,
		Correct:        v.Correct,
		Answer:         v.Answer,
		Score:          v.Score,
		TimeLeft:       v.TimeLeft,
	}
}

func (a *API) register(c *gin.Context) {
	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	res, err := a.auth.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		abortError(c, err)
		return
	}

	a.ensureDefaults(c, res.UserID)

	c.JSON(http.StatusCreated, gin.H{"token": res.Token, "user_id": res.UserID})
}

func (a *API) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	res, err := a.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abortError(c, err)
		return
	}

	a.ensureDefaults(c, res.UserID)

	c.JSON(http.StatusOK, gin.H{"token": res.Token, "user_id": res.UserID})
}

// ensureDefaults seeds the starter list. Failure must not block sign-in.
func (a *API) ensureDefaults(c *gin.Context, userID string) {
	if err := a.lists.EnsureDefaults(c.Request.Context(), userID); err != nil {
		slog.ErrorContext(c.Request.Context(), "api: seeding default lists failed",
			"user", userID,
			"error", err,
		)
	}
}

func (a *API) profile(c *gin.Context) {
	u, err := a.auth.Profile(c.Request.Context(), auth.UserID(c))
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      u.UserID,
		"email":        u.Email,
		"display_name": u.DisplayName,
	})
}

func (a *API) updateProfile(c *gin.Context) {
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	u, err := a.auth.UpdateProfile(c.Request.Context(), auth.UserID(c), req.DisplayName)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      u.UserID,
		"email":        u.Email,
		"display_name": u.DisplayName,
	})
}

func (a *API) listLists(c *gin.Context) {
	lists, err := a.lists.Lists(c.Request.Context(), auth.UserID(c))
	if err != nil {
		abortError(c, err)
		return
	}

	resp := make([]ListResponse, 0, len(lists))
	for _, l := range lists {
		resp = append(resp, toListResponse(l))
	}

	c.JSON(http.StatusOK, gin.H{"lists": resp})
}

func (a *API) createList(c *gin.Context) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	l, err := a.lists.CreateList(c.Request.Context(), wordlist.CreateListRequest{
		OwnerID:     auth.UserID(c),
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toListResponse(*l))
}

func (a *API) getList(c *gin.Context) {
	l, err := a.readableList(c)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, toListResponse(l))
}

func (a *API) deleteList(c *gin.Context) {
	if err := a.lists.DeleteList(c.Request.Context(), auth.UserID(c), c.Param("listID")); err != nil {
		abortError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) listWords(c *gin.Context) {
	l, err := a.readableList(c)
	if err != nil {
		abortError(c, err)
		return
	}

	words, err := a.lists.Words(c.Request.Context(), l.ListID)
	if err != nil {
		abortError(c, err)
		return
	}

	resp := make([]WordResponse, 0, len(words))
	for _, w := range words {
		resp = append(resp, toWordResponse(w))
	}

	c.JSON(http.StatusOK, gin.H{"words": resp})
}

func (a *API) addWord(c *gin.Context) {
	var req struct {
		Text        string `json:"text"`
		Translation string `json:"translation"`
		Example     string `json:"example"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	w, err := a.lists.AddWord(c.Request.Context(), wordlist.AddWordRequest{
		OwnerID:     auth.UserID(c),
		ListID:      c.Param("listID"),
		Text:        req.Text,
		Translation: req.Translation,
		Example:     req.Example,
	})
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toWordResponse(*w))
}

func (a *API) updateWord(c *gin.Context) {
	var req struct {
		Translation string `json:"translation"`
		Example     string `json:"example"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	w, err := a.lists.UpdateWord(c.Request.Context(), wordlist.UpdateWordRequest{
		OwnerID:     auth.UserID(c),
		ListID:      c.Param("listID"),
		WordID:      c.Param("wordID"),
		Translation: req.Translation,
		Example:     req.Example,
	})
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, toWordResponse(*w))
}

func (a *API) deleteWord(c *gin.Context) {
	err := a.lists.DeleteWord(c.Request.Context(), auth.UserID(c), c.Param("listID"), c.Param("wordID"))
	if err != nil {
		abortError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) completeLearning(c *gin.Context) {
	var req struct {
		WordsLearned int `json:"words_learned"`
		TimeSpent    int `json:"time_spent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	l, err := a.readableList(c)
	if err != nil {
		abortError(c, err)
		return
	}

	st, err := a.stats.CompleteLearning(c.Request.Context(), stats.CompleteLearningRequest{
		UserID:       auth.UserID(c),
		ListID:       l.ListID,
		WordsLearned: req.WordsLearned,
		TimeSpent:    req.TimeSpent,
	})
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"completed_learning":  st.CompletedLearning,
		"total_words_learned": st.TotalWordsLearned,
		"daily_streak":        st.DailyStreak,
	})
}

func (a *API) startQuiz(c *gin.Context) {
	view, err := a.quiz.Start(c.Request.Context(), auth.UserID(c), c.Param("listID"))
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toQuizViewResponse(view))
}

func (a *API) quizView(c *gin.Context) {
	view, err := a.quiz.View(c.Request.Context(), auth.UserID(c), c.Param("sessionID"))
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, toQuizViewResponse(view))
}

func (a *API) selectAnswer(c *gin.Context) {
	var req struct {
		Option string `json:"option"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	view, err := a.quiz.Select(c.Request.Context(), auth.UserID(c), c.Param("sessionID"), req.Option)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, toQuizViewResponse(view))
}

func (a *API) submitAnswer(c *gin.Context) {
	view, err := a.quiz.Submit(c.Request.Context(), auth.UserID(c), c.Param("sessionID"))
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, toQuizViewResponse(view))
}

func (a *API) nextQuestion(c *gin.Context) {
	view, err := a.quiz.Next(c.Request.Context(), auth.UserID(c), c.Param("sessionID"))
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, toQuizViewResponse(view))
}

func (a *API) leaveQuiz(c *gin.Context) {
	view := a.quiz.Leave(c.Request.Context(), auth.UserID(c), c.Param("sessionID"))
	c.JSON(http.StatusOK, toQuizViewResponse(view))
}

func (a *API) statsSummary(c *gin.Context) {
	sum, err := a.stats.Summary(c.Request.Context(), auth.UserID(c))
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"completed_quizzes":   sum.Stats.CompletedQuizzes,
		"completed_learning":  sum.Stats.CompletedLearning,
		"lists_created":       sum.Stats.ListsCreated,
		"daily_streak":        sum.Stats.DailyStreak,
		"total_words_learned": sum.Stats.TotalWordsLearned,
		"total_time_spent":    sum.Stats.TotalTimeSpent,
		"quizzes_taken":       sum.QuizzesTaken,
		"average_score":       sum.AverageScore.StringFixed(2),
	})
}

// readableList loads the list in the route and checks the caller can read
// it: their own lists plus default lists.
func (a *API) readableList(c *gin.Context) (domain.WordList, error) {
	l, err := a.lists.List(c.Request.Context(), c.Param("listID"))
	if err != nil {
		return domain.WordList{}, err
	}
	if l.OwnerID != auth.UserID(c) && !l.IsDefault {
		return domain.WordList{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("list not found: %s", l.ListID))
	}

	return l, nil
}
