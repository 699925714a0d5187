// Package handler contains the echo handlers of the HTTP API. Handlers run
// the authorization guards first, then validation, then the store call,
// and translate application errors into responses in one place.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-library/internal/apperr"
	"github.com/iliyamo/movie-library/internal/auth"
	"github.com/iliyamo/movie-library/internal/middleware"
	"github.com/iliyamo/movie-library/internal/model"
	"github.com/iliyamo/movie-library/internal/queue"
)

const requestTimeout = 5 * time.Second

// ActivityPublisher receives an event for every successful movie write.
type ActivityPublisher interface {
	Publish(ctx context.Context, ev queue.ActivityEvent) error
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindInvalidQuery, apperr.KindAlreadyAuthenticated:
		return http.StatusBadRequest
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindUnauthenticated, apperr.KindAuthentication:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error response. Unclassified errors are logged
// and hidden behind a generic message.
func fail(c echo.Context, err error) error {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		if errors.Is(err, context.DeadlineExceeded) {
			c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "The request timed out."})
		}
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error."})
	}

	status := StatusOf(ae.Kind)
	if status >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	} else {
		c.Logger().Warnf("%s: %s", ae.Kind, ae.Error())
	}
	body := echo.Map{"error": ae.Message}
	if len(ae.Fields) > 0 {
		body["fields"] = ae.Fields
	}
	return c.JSON(status, body)
}

// guard returns nil for an allowed decision and the matching apperr error
// otherwise. Callers must leave the handler through fail on a non-nil
// result.
func guard(d auth.Decision) error {
	if d.Allowed() {
		return nil
	}
	return d.Err()
}

func identity(c echo.Context) auth.Identity { return middleware.IdentityFrom(c) }

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// pathID reads the :id parameter. Non-numeric or zero ids cannot match a
// row, so they are reported as notFound.
func pathID(c echo.Context, notFound error) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, notFound
	}
	return id, nil
}

var errBadBody = apperr.InvalidQuery("body", "Request body must be a JSON object.")

// bind decodes the request body into dst. A value of the wrong JSON type
// is reported as a validation error on its field; anything else that is not
// a JSON object is a bad request.
func bind(c echo.Context, dst any) error {
	err := c.Bind(dst)
	if err == nil {
		return nil
	}
	cause := err
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Internal != nil {
		cause = he.Internal
	}
	var te *json.UnmarshalTypeError
	if errors.As(cause, &te) && te.Field != "" {
		return apperr.Invalid(te.Field, typeMessage(te.Type)).Wrap(err)
	}
	return errBadBody.Wrap(err)
}

func typeMessage(t reflect.Type) string {
	if model.IsDateType(t) {
		return "Not a valid date."
	}
	if t == nil {
		return "Invalid value."
	}
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		if t.Kind() != reflect.Pointer {
			return "Not a valid list."
		}
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "Not a valid integer."
	case reflect.Float32, reflect.Float64:
		return "Not a valid number."
	case reflect.String:
		return "Not a valid string."
	case reflect.Bool:
		return "Not a valid boolean."
	}
	return "Invalid value."
}

type pageResponse[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}
