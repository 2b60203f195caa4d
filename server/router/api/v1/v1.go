// Package v1 serves the companion JSON API under /api/v1.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	aierrors "github.com/hrygo/quillmate/server/internal/errors"
	"github.com/hrygo/quillmate/server/middleware"
	"github.com/hrygo/quillmate/server/service/companion"
)

type APIV1Service struct {
	Secret    string
	Companion *companion.Service
	// Limiter bounds requests per caller across the whole API. Nil disables it.
	Limiter *middleware.RateLimiter
}

func NewAPIV1Service(secret string, svc *companion.Service, limiter *middleware.RateLimiter) *APIV1Service {
	return &APIV1Service{
		Secret:    secret,
		Companion: svc,
		Limiter:   limiter,
	}
}

// RegisterRoutes mounts the API on e.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	api := e.Group("/api/v1", middleware.Auth(s.Secret))
	if s.Limiter != nil {
		api.Use(middleware.RateLimit(s.Limiter))
	}

	api.POST("/sessions", s.CreateSession)
	api.GET("/sessions", s.ListSessions, middleware.RequireOwner)
	api.GET("/sessions/:id", s.GetSession)
	api.GET("/sessions/:id/memories", s.ListMemories)
	api.POST("/sessions/:id/archive", s.ArchiveSession)
	api.PUT("/sessions/:id/tools", s.SetSessionTools)
	api.PUT("/sessions/:id/memory", s.SetSessionMemory)
	api.POST("/sessions/:id/chat", s.Chat)

	api.POST("/tasks/:mode", s.ExecuteTask)
	api.GET("/tools", s.ListTools)

	owner := api.Group("", middleware.RequireOwner)
	owner.GET("/global-memories", s.ListGlobalMemories)
	owner.POST("/global-memories", s.CreateGlobalMemory)
	owner.PUT("/global-memories/:id", s.UpdateGlobalMemory)
	owner.DELETE("/global-memories/:id", s.DeleteGlobalMemory)
	owner.GET("/model-configurations", s.ListModelConfigurations)
	owner.POST("/model-configurations", s.CreateModelConfiguration)
	owner.PUT("/model-configurations/:id", s.UpdateModelConfiguration)
	owner.POST("/model-configurations/:id/enable", s.EnableModelConfiguration)
	owner.GET("/metrics", s.GetMetrics)
}

func currentUser(c echo.Context) companion.User {
	u := middleware.GetUser(c)
	return companion.User{ID: u.ID, Name: u.Name, IsOwner: u.IsOwner()}
}

type errorResponse struct {
	Code      aierrors.ErrorCode `json:"code"`
	Message   string             `json:"message"`
	Retryable bool               `json:"retryable,omitempty"`
}

// respondError writes err as a JSON error body with the status of its code.
func respondError(c echo.Context, err error) error {
	var aiErr *aierrors.AIError
	if errors.As(err, &aiErr) {
		return c.JSON(aiErr.HTTPStatus(), errorResponse{
			Code:      aiErr.Code,
			Message:   aiErr.Message,
			Retryable: aierrors.IsRetryable(aiErr),
		})
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL", Message: "internal error"})
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return aierrors.InvalidArgument("malformed request body")
	}
	return nil
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, aierrors.InvalidArgument(fmt.Sprintf("%s must be an integer", name))
	}
	return v, nil
}

func pathInt64(c echo.Context, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, aierrors.InvalidArgument(fmt.Sprintf("%s must be an integer", name))
	}
	return v, nil
}

type streamEvent struct {
	Content string             `json:"content,omitempty"`
	Error   string             `json:"error,omitempty"`
	Code    aierrors.ErrorCode `json:"code,omitempty"`
	Done    bool               `json:"done,omitempty"`
}

// streamSSE forwards chunks as server-sent events. A failure becomes the final event;
// a client that goes away stops the stream.
func streamSSE(c echo.Context, chunks iter.Seq2[string, error]) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for chunk, err := range chunks {
		if err != nil {
			ev := streamEvent{Error: err.Error(), Code: aierrors.GetCodeFromError(err, aierrors.ErrCodeAgentExecutionFailed), Done: true}
			var aiErr *aierrors.AIError
			if errors.As(err, &aiErr) {
				ev.Error = aiErr.Message
			}
			return writeEvent(w, ev)
		}
		if err := writeEvent(w, streamEvent{Content: chunk}); err != nil {
			return nil
		}
	}
	return writeEvent(w, streamEvent{Done: true})
}

func writeEvent(w *echo.Response, ev streamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
