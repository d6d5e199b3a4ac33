package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"daytasks/analytics"
	"daytasks/domain"
	"daytasks/session"
)

type streamFrame struct {
	Day    string        `json:"day"`
	Tasks  []domain.Task `json:"tasks"`
	Report domain.Report `json:"report"`
	Error  string        `json:"error,omitempty"`
}

// streamTasks serves a server-sent-events feed of full task snapshots.
// Every frame carries the complete day view; clients replace, never
// patch. EventSource cannot set headers, so the token may also arrive
// as a query parameter.
func streamTasks(store Storage, auth Authenticator, feed Feed, tracker analytics.Tracker, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" && token != "" {
			authHeader = "Bearer " + token
		}
		userID, err := auth.UserIDFromAuthHeader(authHeader)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}

		ctx := c.Request().Context()
		updates := make(chan struct{}, 1)
		sess := session.Open(ctx, session.Config{
			Store:      store,
			Subscriber: feed,
			Notifier:   feed,
			Tracker:    tracker,
			Now:        now,
			OnChange: func() {
				select {
				case updates <- struct{}{}:
				default:
				}
			},
		}, userID)
		defer sess.Close()

		for {
			// The initial snapshot already pulsed during Open; state is
			// read fresh below, so a pending pulse carries no information.
			select {
			case <-updates:
			default:
			}
			frame := streamFrame{
				Day:    sess.Day,
				Tasks:  sess.Tasks(),
				Report: sess.Report(),
			}
			if serr := sess.Err(); serr != nil {
				frame.Error = serr.Error()
			}
			data, err := json.Marshal(frame)
			if err != nil {
				c.Logger().Error(err)
				return err
			}
			if _, err := c.Response().Write([]byte("data: ")); err != nil {
				c.Logger().Error(err)
				return err
			}
			if _, err := c.Response().Write(data); err != nil {
				c.Logger().Error(err)
				return err
			}
			if _, err := c.Response().Write([]byte("\n\n")); err != nil {
				c.Logger().Error(err)
				return err
			}
			flusher.Flush()
			select {
			case <-ctx.Done():
				return nil
			case <-updates:
				continue
			}
		}
	}
}
