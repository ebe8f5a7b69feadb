package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/registrar"
)

type courseApi struct {
	svc      *course.Service
	reg      *registrar.Service
	validate *validator.Validate
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	admin echo.MiddlewareFunc,
	svc *course.Service,
	reg *registrar.Service,
	validate *validator.Validate,
) {
	api := courseApi{
		svc:      svc,
		reg:      reg,
		validate: validate,
	}

	cg := g.Group("/courses", jwt, admin)
	cg.GET("", api.query)
	cg.POST("", api.create)

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)

	dg.POST("/assignments", api.createAssignment)
	dg.PUT("/assignments/:aid", api.updateAssignment)
	dg.DELETE("/assignments/:aid", api.destroyAssignment)

	dg.POST("/messages", api.createMessage)
	dg.DELETE("/messages/:mid", api.destroyMessage)

	dg.GET("/students", api.queryStudents)
	dg.POST("/students", api.enrollStudents)
	dg.DELETE("/students/:sid", api.unenrollStudent)
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

// retrieve loads the detail view; stale relationship references are
// reconciled before the course is returned.
func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.reg.SyncCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "syncing course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if err := api.reg.DeleteCourse(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) createAssignment(ctx echo.Context) error {
	var data course.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.AddAssignment(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *courseApi) updateAssignment(ctx echo.Context) error {
	var data course.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.UpdateAssignment(ctx.Request().Context(), ctx.Param("id"), ctx.Param("aid"), data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *courseApi) destroyAssignment(ctx echo.Context) error {
	if err := api.svc.DeleteAssignment(ctx.Request().Context(), ctx.Param("id"), ctx.Param("aid")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) createMessage(ctx echo.Context) error {
	var data course.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	msg, err := api.svc.AddMessage(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *courseApi) destroyMessage(ctx echo.Context) error {
	if err := api.svc.DeleteMessage(ctx.Request().Context(), ctx.Param("id"), ctx.Param("mid")); err != nil {
		return errors.Wrap(err, "deleting message")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) queryStudents(ctx echo.Context) error {
	ids, err := api.svc.Enrollments(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if ids == nil {
		ids = []string{}
	}
	return ctx.JSON(http.StatusOK, EnrollmentResponse{StudentIDs: ids})
}

func (api *courseApi) enrollStudents(ctx echo.Context) error {
	var data EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	enrolled, err := api.reg.EnrollAll(ctx.Request().Context(), ctx.Param("id"), data.StudentIDs)
	if err != nil {
		// report what did get enrolled alongside the failure
		if len(enrolled) > 0 {
			return echo.NewHTTPError(http.StatusBadGateway, echo.Map{
				"error":    err.Error(),
				"enrolled": enrolled,
			})
		}
		return errors.Wrap(err, "enrolling students")
	}
	return ctx.JSON(http.StatusOK, EnrollmentResponse{StudentIDs: enrolled})
}

func (api *courseApi) unenrollStudent(ctx echo.Context) error {
	if err := api.reg.Unenroll(ctx.Request().Context(), ctx.Param("id"), ctx.Param("sid")); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	EnrollRequest struct {
		StudentIDs []string `json:"student_ids" validate:"required,min=1"`
	}

	EnrollmentResponse struct {
		StudentIDs []string `json:"student_ids"`
	}
)

func (er *EnrollRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(er)
}
