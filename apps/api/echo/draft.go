package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/draft"
)

type draftApi struct {
	svc      *draft.Service
	validate *validator.Validate
}

func registerDraftAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	courseSvc *course.Service,
	svc *draft.Service,
	validate *validator.Validate,
) {
	api := draftApi{
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/teacher/courses/:id", jwt, authorMiddleware(), ctxCourseMiddleware(courseSvc))
	cg.POST("/draft", api.save)
	cg.GET("/draft", api.latest)
	cg.DELETE("/drafts/cleanup", api.cleanup)
}

// Handlers

func (api *draftApi) save(ctx echo.Context) error {
	var data draft.NewDraft
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDraft")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := getContextCourse(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.Save(ctx.Request().Context(), crs.ID, usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "saving draft")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *draftApi) latest(ctx echo.Context) error {
	crs, err := getContextCourse(ctx)
	if err != nil {
		return err
	}

	latest, err := api.svc.Latest(ctx.Request().Context(), crs.ID)
	if err != nil {
		return errors.Wrap(err, "getting latest draft")
	}
	return ctx.JSON(http.StatusOK, latest)
}

func (api *draftApi) cleanup(ctx echo.Context) error {
	crs, err := getContextCourse(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.Cleanup(ctx.Request().Context(), crs.ID)
	if err != nil {
		return errors.Wrap(err, "cleaning up drafts")
	}
	return ctx.JSON(http.StatusOK, res)
}
