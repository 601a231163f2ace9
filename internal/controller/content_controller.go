package controller

import (
	"strconv"

	"levelup_backend/internal/model"
	"levelup_backend/internal/service"
	"levelup_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ContentController serves admin CRUD for one content kind under a route group.
type ContentController[T any] struct {
	Admin *service.ContentAdmin[T]
}

func NewContentController[T any](admin *service.ContentAdmin[T]) *ContentController[T] {
	return &ContentController[T]{Admin: admin}
}

func (c *ContentController[T]) Register(g *gin.RouterGroup) {
	g.GET("", c.List)
	g.POST("", c.Create)
	g.GET("/:id", c.Get)
	g.PUT("/:id", c.Update)
	g.DELETE("/:id", c.Delete)
}

// List pages through items; ?level=N restricts to one level.
func (c *ContentController[T]) List(ctx *gin.Context) {
	level, _ := strconv.Atoi(ctx.Query("level"))
	page, limit := util.Pagination(ctx)

	items, total, err := c.Admin.List(ctx.Request.Context(), level, page, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Page(ctx, items, total, page, limit)
}

func (c *ContentController[T]) Get(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	item, err := c.Admin.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, item)
}

func (c *ContentController[T]) Create(ctx *gin.Context) {
	var item T
	if err := ctx.ShouldBindJSON(&item); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Admin.Create(ctx.Request.Context(), &item); err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, item)
}

func (c *ContentController[T]) Update(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	var item T
	if err := ctx.ShouldBindJSON(&item); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Admin.Update(ctx.Request.Context(), id, &item); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, item)
}

func (c *ContentController[T]) Delete(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	if err := c.Admin.Delete(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type AdminController struct {
	Content  *service.ContentService
	Progress *service.ProgressService
	Import   *service.ImportService

	Terms         *ContentController[model.Term]
	Rules         *ContentController[model.RuleTheory]
	Problems      *ContentController[model.Problem]
	TestQuestions *ContentController[model.TestQuestion]
}

func NewAdminController(content *service.ContentService, progress *service.ProgressService, importer *service.ImportService) *AdminController {
	return &AdminController{
		Content:       content,
		Progress:      progress,
		Import:        importer,
		Terms:         NewContentController(content.Terms),
		Rules:         NewContentController(content.Rules),
		Problems:      NewContentController(content.Problems),
		TestQuestions: NewContentController(content.TestQuestions),
	}
}

// swagger:model LevelRequest
type LevelRequest struct {
	Level int    `json:"level" binding:"required"`
	Name  string `json:"name"`
}

// ListLevels godoc
// @Summary List difficulty levels
// @Tags admin
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} util.Response{data=[]model.DifficultyLevel}
// @Router /admin/levels [get]
func (c *AdminController) ListLevels(ctx *gin.Context) {
	levels, err := c.Content.ListLevels(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, levels)
}

// GetLevel godoc
// @Summary Get a difficulty level by number
// @Tags admin
// @Security ApiKeyAuth
// @Param level path int true "level number"
// @Success 200 {object} util.Response{data=model.DifficultyLevel}
// @Failure 404 {object} util.Response
// @Router /admin/levels/{level} [get]
func (c *AdminController) GetLevel(ctx *gin.Context) {
	level, err := strconv.Atoi(ctx.Param("level"))
	if err != nil {
		util.BadRequest(ctx, util.ErrInvalidLevel.Error())
		return
	}

	l, err := c.Content.GetLevel(ctx.Request.Context(), level)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, l)
}

// CreateLevel godoc
// @Summary Create a difficulty level
// @Description Idempotent; an existing level keeps its name.
// @Tags admin
// @Security ApiKeyAuth
// @Accept json
// @Param body body LevelRequest true "level"
// @Success 200 {object} util.Response{data=model.DifficultyLevel}
// @Router /admin/levels [post]
func (c *AdminController) CreateLevel(ctx *gin.Context) {
	var req LevelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	l, err := c.Content.CreateLevel(ctx.Request.Context(), req.Level, req.Name)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, l)
}

// ListProgress godoc
// @Summary List learner progress
// @Tags admin
// @Security ApiKeyAuth
// @Param page query int false "page"
// @Param limit query int false "page size"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /admin/progress [get]
func (c *AdminController) ListProgress(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	rows, total, err := c.Progress.ListProgress(ctx.Request.Context(), page, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Page(ctx, rows, total, page, limit)
}

// ImportContent godoc
// @Summary Bulk import content from a workbook
// @Description Sheets Terms, Rules, Problems and TestQuestions, header row first. Invalid rows are reported and skipped.
// @Tags admin
// @Security ApiKeyAuth
// @Accept multipart/form-data
// @Param file formData file true ".xlsx workbook"
// @Success 200 {object} util.Response{data=service.ImportReport}
// @Failure 400 {object} util.Response
// @Router /admin/import [post]
func (c *AdminController) ImportContent(ctx *gin.Context) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	f, err := fh.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer f.Close()

	report, err := c.Import.Import(ctx.Request.Context(), fh.Filename, f)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, report)
}
