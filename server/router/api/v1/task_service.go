package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/quillmate/server/service/companion"
)

type taskRequest struct {
	ContextInfo string `json:"context_info"`
	Stream      bool   `json:"stream"`
}

// ExecuteTask runs a background generation for the mode in the path.
// A failed generation is reported in the result body with status 200.
func (s *APIV1Service) ExecuteTask(c echo.Context) error {
	var req taskRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	tr := &companion.TaskRequest{
		Mode:        c.Param("mode"),
		ContextInfo: req.ContextInfo,
		User:        currentUser(c),
	}

	ctx := c.Request().Context()
	if req.Stream {
		return streamSSE(c, s.Companion.ExecuteTaskStream(ctx, tr))
	}
	res, err := s.Companion.ExecuteTask(ctx, tr)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
