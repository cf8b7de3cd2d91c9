package dispatch

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// actionRequest is the JSON envelope accepted on the HTTP surface.
type actionRequest struct {
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload,omitempty"`
}

// RegisterHandlers exposes the router on the given echo instance so the
// popup and page agent can reach the dispatcher from their own processes.
func RegisterHandlers(e *echo.Echo, router *Router) {
	apiGroup := e.Group("/api/v1")

	apiGroup.POST("/actions", func(c echo.Context) error {
		var req actionRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, Response{
				Success: false,
				Reason:  "Invalid request body",
			})
		}

		if req.Action == "" {
			return c.JSON(http.StatusBadRequest, Response{
				Success: false,
				Reason:  "Action is required",
			})
		}

		// The handler runs on a context that survives caller disconnects:
		// tearing down the requesting side must not cancel dispatcher-side
		// work already in flight.
		msg := NewMessage(Action(req.Action), req.Payload)
		go router.Handle(context.WithoutCancel(c.Request().Context()), msg)

		// If the HTTP caller disconnects mid-generation the response is
		// parked in the buffered reply and discarded.
		select {
		case resp := <-msg.Reply:
			return c.JSON(http.StatusOK, resp)
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	})
}
