package controller

import (
	"levelup_backend/internal/service"
	"levelup_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LearningController struct {
	Progress *service.ProgressService
	Content  *service.ContentService
}

func NewLearningController(progress *service.ProgressService, content *service.ContentService) *LearningController {
	return &LearningController{Progress: progress, Content: content}
}

// Dashboard godoc
// @Summary Learner dashboard
// @Description Current level, consumed counts and overall progress.
// @Tags learning
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} util.Response{data=service.Dashboard}
// @Router /dashboard [get]
func (c *LearningController) Dashboard(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	d, err := c.Progress.Dashboard(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, d)
}

// StartFromZero godoc
// @Summary Restart from level 1
// @Description Resets the level and placement result; studied items stay studied.
// @Tags learning
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} util.Response{data=model.UserProgress}
// @Router /progress/start-from-zero [post]
func (c *LearningController) StartFromZero(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	p, err := c.Progress.StartFromZero(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// Next godoc
// @Summary Next learning item
// @Description Picks the next term, rule or problem; exhausting a level moves the learner up.
// @Tags learning
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} util.Response{data=service.NextContent}
// @Router /learning/next [get]
func (c *LearningController) Next(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	next, err := c.Progress.NextContent(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, next)
}

// MarkTermStudied godoc
// @Summary Mark a term studied
// @Tags learning
// @Security ApiKeyAuth
// @Param id path int true "term ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /learning/terms/{id}/studied [post]
func (c *LearningController) MarkTermStudied(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	if err := c.Progress.MarkTermStudied(ctx.Request.Context(), userID, id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// MarkRuleStudied godoc
// @Summary Mark a rule studied
// @Tags learning
// @Security ApiKeyAuth
// @Param id path int true "rule ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /learning/rules/{id}/studied [post]
func (c *LearningController) MarkRuleStudied(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	if err := c.Progress.MarkRuleStudied(ctx.Request.Context(), userID, id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// swagger:model AnswerRequest
type AnswerRequest struct {
	Answer string `json:"answer" form:"answer"`
}

// AnswerProblem godoc
// @Summary Answer a practice problem
// @Description A correct answer marks the problem solved. Accepts JSON or form data.
// @Tags learning
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path int true "problem ID"
// @Param body body AnswerRequest true "chosen option"
// @Success 200 {object} util.Response{data=service.AnswerResult}
// @Failure 404 {object} util.Response
// @Router /learning/problems/{id}/answer [post]
func (c *LearningController) AnswerProblem(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	var req AnswerRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.Progress.CheckProblemAnswer(ctx.Request.Context(), userID, id, req.Answer)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// Search godoc
// @Summary Browse terms and rules
// @Tags learning
// @Produce json
// @Param q query string false "substring of title or explanation"
// @Success 200 {object} util.Response{data=service.SearchResult}
// @Router /search [get]
func (c *LearningController) Search(ctx *gin.Context) {
	res, err := c.Content.Search(ctx.Request.Context(), ctx.Query("q"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
