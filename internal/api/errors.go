package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Veraticus/spice-categorizer/internal/common"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors onto HTTP status codes. Configuration errors
// and anything unrecognized are 500s.
func statusFor(err error) int {
	var (
		httpErr  *echo.HTTPError
		fieldErr validator.ValidationErrors
	)

	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.As(err, &fieldErr), common.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrGlobalRuleReadOnly):
		return http.StatusForbidden
	case errors.Is(err, common.ErrDuplicateEntry):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Sprint(httpErr.Message)
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return "invalid request: " + strings.Join(parts, ", ")
	}

	return err.Error()
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := statusFor(err)
	message := errorMessage(err)
	if status >= http.StatusInternalServerError {
		common.LogError(err, "request failed", common.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		})
		if !errors.As(err, new(*echo.HTTPError)) {
			message = http.StatusText(status)
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, ErrorResponse{Error: message})
	}
	if err != nil {
		s.logger.Warn("failed to write error response", "error", err)
	}
}
