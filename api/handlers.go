package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"daytasks/analytics"
	"daytasks/domain"
	"daytasks/session"
	"daytasks/storage"
)

const addTaskMaxSize = 64 << 10

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, auth Authenticator, feed Feed, tracker analytics.Tracker, logger *log.Logger, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	e.GET("/api/tasks", getTasks(store, auth, logger, now))
	e.POST("/api/tasks", addTask(store, auth, feed, tracker, now))
	e.POST("/api/tasks/:id/toggle", toggleTask(store, auth, feed, tracker, now))
	e.DELETE("/api/tasks/:id", removeTask(store, auth, feed, tracker, now))
	e.GET("/api/report", getReport(store, auth, tracker, now))
	e.GET("/stream", streamTasks(store, auth, feed, tracker, now))
	e.GET("/healthz", healthz())
}

type tasksResponse struct {
	Day   string        `json:"day"`
	Tasks []domain.Task `json:"tasks"`
}

type addTaskRequest struct {
	Title string `json:"title"`
	Time  string `json:"time"`
}

type addTaskResponse struct {
	ID string `json:"id"`
}

type removeTaskResponse struct {
	Deleted bool `json:"deleted"`
}

type reportResponse struct {
	Day string `json:"day"`
	domain.Report
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func getTasks(store Storage, auth Authenticator, logger *log.Logger, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newTaskRequestMetrics(ctx, logger, "/api/tasks")
		if spanCtx != nil {
			req := c.Request().WithContext(spanCtx)
			c.SetRequest(req)
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		day := session.Day(now())
		fetchStart := time.Now()
		tasks, fetchErr := store.FetchTasks(ctx, userID, day)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusInternalServerError, fetchErr.Error())
			return err
		}

		tasks = domain.Normalized(tasks)
		metrics.SetTasksReturned(len(tasks))
		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasksResponse{Day: day, Tasks: tasks})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func addTask(store Storage, auth Authenticator, feed Feed, tracker analytics.Tracker, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		lr := io.LimitReader(c.Request().Body, addTaskMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var req addTaskRequest
		if err := dec.Decode(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		coord := session.NewCoordinator(userID, session.Day(now()), store, session.StaticView(nil), feed, tracker, nil)
		id, err := coord.Add(ctx, req.Title, req.Time)
		if err != nil {
			var vErr session.ValidationError
			if errors.As(err, &vErr) {
				return c.String(http.StatusBadRequest, vErr.Error())
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusCreated, addTaskResponse{ID: id})
	}
}

func toggleTask(store Storage, auth Authenticator, feed Feed, tracker analytics.Tracker, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		day := session.Day(now())
		// The toggle decision is made against the current snapshot, not
		// against whatever the client believes the task state is.
		tasks, err := store.FetchTasks(ctx, userID, day)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}

		coord := session.NewCoordinator(userID, day, store, session.StaticView(tasks), feed, tracker, nil)
		if err := coord.Toggle(ctx, c.Param("id")); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return c.String(http.StatusNotFound, err.Error())
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func removeTask(store Storage, auth Authenticator, feed Feed, tracker analytics.Tracker, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		confirmed, _ := strconv.ParseBool(c.QueryParam("confirm"))
		confirm := func(context.Context, string) bool { return confirmed }

		coord := session.NewCoordinator(userID, session.Day(now()), store, session.StaticView(nil), feed, tracker, confirm)
		deleted, err := coord.Remove(ctx, c.Param("id"))
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, removeTaskResponse{Deleted: deleted})
	}
}

func getReport(store Storage, auth Authenticator, tracker analytics.Tracker, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		day := session.Day(now())
		tasks, err := store.FetchTasks(ctx, userID, day)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}

		if tracker != nil {
			tracker.Track(ctx, userID, analytics.EventPageView)
		}
		return c.JSON(http.StatusOK, reportResponse{Day: day, Report: domain.BuildReport(tasks)})
	}
}
