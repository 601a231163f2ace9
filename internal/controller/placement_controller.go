package controller

import (
	"strconv"
	"strings"

	"levelup_backend/internal/service"
	"levelup_backend/internal/util"

	"github.com/gin-gonic/gin"
)

const formQuestionPrefix = "question_"

type PlacementController struct {
	Placement *service.PlacementService
}

func NewPlacementController(placement *service.PlacementService) *PlacementController {
	return &PlacementController{Placement: placement}
}

// swagger:model PlacementRequest
type PlacementRequest struct {
	// question ID -> chosen option
	Answers map[string]string `json:"answers"`
}

// Questions godoc
// @Summary Placement test questions
// @Description The whole pool, without answers.
// @Tags placement
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} util.Response{data=[]model.QuestionView}
// @Failure 422 {object} util.Response "no questions"
// @Router /placement-test [get]
func (c *PlacementController) Questions(ctx *gin.Context) {
	views, err := c.Placement.Questions(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, views)
}

// Submit godoc
// @Summary Submit the placement test
// @Description JSON {"answers":{"<id>":"B"}} or form fields question_<id>=B. Unanswered questions count as wrong.
// @Tags placement
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body PlacementRequest true "answers"
// @Success 200 {object} util.Response{data=service.PlacementOutcome}
// @Failure 422 {object} util.Response "no questions"
// @Router /placement-test [post]
func (c *PlacementController) Submit(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	answers, err := bindAnswers(ctx)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	out, err := c.Placement.Submit(ctx.Request.Context(), userID, answers)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, out)
}

func bindAnswers(ctx *gin.Context) (map[uint]string, error) {
	answers := make(map[uint]string)

	if ctx.ContentType() == gin.MIMEJSON {
		var req PlacementRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			return nil, err
		}
		for key, v := range req.Answers {
			id, err := strconv.ParseUint(key, 10, 64)
			if err != nil {
				return nil, err
			}
			answers[uint(id)] = v
		}
		return answers, nil
	}

	var err error
	if strings.HasPrefix(ctx.ContentType(), gin.MIMEMultipartPOSTForm) {
		err = ctx.Request.ParseMultipartForm(32 << 20)
	} else {
		err = ctx.Request.ParseForm()
	}
	if err != nil {
		return nil, err
	}
	for key, values := range ctx.Request.PostForm {
		if !strings.HasPrefix(key, formQuestionPrefix) || len(values) == 0 {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimPrefix(key, formQuestionPrefix), 10, 64)
		if err != nil {
			continue
		}
		answers[uint(id)] = values[0]
	}
	return answers, nil
}
