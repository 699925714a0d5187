package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestLog writes one line per request through echo's logger in the form
// "<user> - <METHOD> - <path> - <status>".
func RequestLog() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			user := IdentityFrom(c).Name()
			if v.Error != nil {
				c.Logger().Errorf("%s - %s - %s - %d - %v", user, v.Method, v.URI, v.Status, v.Error)
				return nil
			}
			c.Logger().Infof("%s - %s - %s - %d (%s)", user, v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	})
}
