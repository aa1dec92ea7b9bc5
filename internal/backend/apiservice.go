package backend

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jo-hoe/cattongue/internal/backend/catapi"
	"github.com/jo-hoe/cattongue/internal/backend/database"
	"github.com/jo-hoe/cattongue/internal/backend/session"
	"github.com/jo-hoe/cattongue/internal/core"

	"github.com/labstack/echo/v4"
)

const (
	ProbePath   = "/probe"
	MetricsPath = "/metrics"
	apiPrefix   = "/api/v1"
)

type APIService struct {
	coreService *core.CoreService
	binder      *session.Binder
	metrics     *Metrics
}

func NewAPIService(coreService *core.CoreService, binder *session.Binder) *APIService {
	return &APIService{
		coreService: coreService,
		binder:      binder,
		metrics:     NewMetrics(),
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET(ProbePath, s.probeHandler)
	e.GET(MetricsPath, echo.WrapHandler(s.metrics.Handler()))

	api := e.Group(apiPrefix)
	api.GET("/cats", s.listCatsHandler)
	api.POST("/cats", s.saveCatHandler)
	api.DELETE("/cats/:id", s.deleteCatHandler)
	api.POST("/count_of_cats", s.countCatsHandler)
	api.POST("/session", s.checkSessionHandler)
	api.GET("/random_cat", s.randomCatHandler)
}

func (s *APIService) probeHandler(ctx echo.Context) error {
	if !s.coreService.IsHealthy() {
		return ctx.String(http.StatusServiceUnavailable, "database unavailable")
	}
	return ctx.String(http.StatusOK, "API Service is running")
}

func (s *APIService) listCatsHandler(ctx echo.Context) error {
	var req ListCatsRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}

	start := time.Now()
	cats, err := withIdentity(s, ctx, func(bicmid string) ([]*database.Cat, error) {
		return s.coreService.ListCats(ctx.Request().Context(), bicmid, req.Offset)
	})
	s.metrics.observe("list", start, err)
	if err != nil {
		return operationError("list", err)
	}
	if cats == nil {
		cats = []*database.Cat{}
	}
	return ctx.JSON(http.StatusOK, cats)
}

func (s *APIService) countCatsHandler(ctx echo.Context) error {
	start := time.Now()
	count, err := withIdentity(s, ctx, func(bicmid string) (int, error) {
		return s.coreService.CountCats(ctx.Request().Context(), bicmid)
	})
	s.metrics.observe("count", start, err)
	if err != nil {
		return operationError("count", err)
	}
	return ctx.JSON(http.StatusOK, count)
}

func (s *APIService) deleteCatHandler(ctx echo.Context) error {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		slog.Warn("deleteCatHandler: invalid cat id", "id", ctx.Param("id"), "status", http.StatusBadRequest)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid cat id")
	}

	start := time.Now()
	_, err = withIdentity(s, ctx, func(bicmid string) (struct{}, error) {
		return struct{}{}, s.coreService.DeleteCat(ctx.Request().Context(), bicmid, id)
	})
	s.metrics.observe("delete", start, err)
	if err != nil {
		return operationError("delete", err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *APIService) saveCatHandler(ctx echo.Context) error {
	var req SaveCatRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}

	start := time.Now()
	id, err := withIdentity(s, ctx, func(bicmid string) (int64, error) {
		return s.coreService.SaveCat(ctx.Request().Context(), bicmid, req.Image)
	})
	s.metrics.observe("save", start, err)
	if err != nil {
		return operationError("save", err)
	}
	return ctx.JSON(http.StatusCreated, SaveCatResponse{ID: id})
}

func (s *APIService) checkSessionHandler(ctx echo.Context) error {
	var req SessionRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}

	accepted, err := s.binder.CheckSession(ctx.Request(), ctx.Response(), req.Bicmid)
	s.metrics.observeSessionCheck(accepted, err)
	if err != nil {
		return operationError("session", err)
	}
	return ctx.JSON(http.StatusOK, accepted)
}

func (s *APIService) randomCatHandler(ctx echo.Context) error {
	start := time.Now()
	image, err := s.coreService.RandomCat(ctx.Request().Context())
	s.metrics.observe("random", start, err)
	if err != nil {
		return operationError("random", err)
	}
	return ctx.JSON(http.StatusOK, image)
}

// withIdentity resolves the session's bicmid and passes it to fn.
func withIdentity[T any](s *APIService, ctx echo.Context, fn func(bicmid string) (T, error)) (T, error) {
	var zero T
	bicmid, err := s.binder.Bicmid(ctx.Request())
	if errors.Is(err, session.ErrUnbound) {
		return zero, core.ErrMissingIdentity
	}
	if err != nil {
		return zero, err
	}
	return fn(bicmid)
}

func bindAndValidate(ctx echo.Context, req any) error {
	if err := ctx.Bind(req); err != nil {
		slog.Warn("failed to bind request", "path", ctx.Path(), "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	return ctx.Validate(req)
}

func operationError(operation string, err error) error {
	switch {
	case errors.Is(err, core.ErrMissingIdentity):
		return echo.NewHTTPError(http.StatusUnauthorized, "missing session identity")
	case errors.Is(err, core.ErrInvalidOffset), errors.Is(err, core.ErrEmptyURL):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, catapi.ErrNoImage):
		return echo.NewHTTPError(http.StatusBadGateway, "no cat available")
	}

	slog.Error("operation failed", "operation", operation, "error", err)
	if operation == "random" {
		return echo.NewHTTPError(http.StatusBadGateway, "cat api unavailable")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, operation+" failed")
}
