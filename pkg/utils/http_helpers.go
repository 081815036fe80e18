package utils

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	apperrors "equipment-system/pkg/errors"
	"equipment-system/pkg/types"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type HTTPResponse struct {
	Status  bool        `json:"status"`
	Body    interface{} `json:"body,omitempty"`
	Message string      `json:"message"`
}

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

func SuccessResponse(ctx echo.Context, body interface{}, message string, code int) error {
	return ctx.JSON(code, &HTTPResponse{Status: true, Body: body, Message: message})
}

func ErrorResponse(c echo.Context, err error, logger *zap.Logger) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var msgs []string
		for _, e := range validationErrors {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed rule '%s'", e.Field(), e.Tag()))
		}
		return c.JSON(http.StatusBadRequest, &HTTPResponse{
			Status:  false,
			Message: "validation error: " + strings.Join(msgs, "; "),
		})
	}

	httpErr := apperrors.ToHttpError(err)
	if httpErr.Code >= http.StatusInternalServerError {
		logger.Error("HTTP Error",
			zap.Int("code", httpErr.Code),
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Error(httpErr.Err),
			zap.Any("context", httpErr.Context),
		)
	} else {
		logger.Debug("HTTP client error", zap.Int("code", httpErr.Code), zap.String("message", httpErr.Message))
	}

	response := &HTTPResponse{Status: false, Message: httpErr.Message}
	if httpErr.Details != nil {
		response.Body = httpErr.Details
	}
	return c.JSON(httpErr.Code, response)
}

// ParseFilterFromQuery reads page/limit/search/sort from the query string.
// sort=-created_at sorts descending.
func ParseFilterFromQuery(values url.Values) types.Filter {
	filter := types.Filter{
		Sort:  make(map[string]string),
		Limit: DefaultLimit,
		Page:  1,
	}

	if limitStr := values.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			if l > MaxLimit {
				l = MaxLimit
			}
			filter.Limit = l
		}
	}

	if pageStr := values.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			filter.Page = p
		}
	}
	filter.Offset = (filter.Page - 1) * filter.Limit

	filter.Search = strings.TrimSpace(values.Get("search"))

	if sort := values.Get("sort"); sort != "" {
		if strings.HasPrefix(sort, "-") {
			filter.Sort[sort[1:]] = "desc"
		} else {
			filter.Sort[sort] = "asc"
		}
	}

	return filter
}

func ParseIDParam(ctx echo.Context, name string) (uint64, error) {
	raw := ctx.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewValidationError(name, "invalid id %q", raw)
	}
	return id, nil
}
