package apperror

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// NewHTTPErrorHandler builds an echo.HTTPErrorHandler bound to logger,
// grounded on the teacher's CustomErrorHandler but taking its logger as a
// constructor argument instead of reaching for a package-level singleton.
func NewHTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		errCode := CodeInternal
		message := "internal server error"
		requestID := c.Response().Header().Get(echo.HeaderXRequestID)

		switch e := err.(type) {
		case *AppError:
			code = e.HTTPStatus
			errCode = e.Code
			message = e.Message
			if code >= 500 {
				logger.Error("application error",
					zap.String("request_id", requestID),
					zap.String("error_code", errCode),
					zap.String("message", message),
					zap.Error(e.Err),
				)
			} else {
				logger.Warn("client error",
					zap.String("request_id", requestID),
					zap.String("error_code", errCode),
					zap.String("message", message),
				)
			}
		case *echo.HTTPError:
			code = e.Code
			if msg, ok := e.Message.(string); ok {
				message = msg
			}
			errCode = mapHTTPStatus(code)
			logLevel := logger.Warn
			if code >= 500 {
				logLevel = logger.Error
			}
			logLevel("http error",
				zap.String("request_id", requestID),
				zap.Int("status_code", code),
				zap.String("message", message),
				zap.NamedError("internal", e.Internal),
			)
		default:
			logger.Error("unknown error",
				zap.String("request_id", requestID),
				zap.Error(err),
			)
		}

		_ = c.JSON(code, map[string]any{
			"error":      message,
			"error_code": errCode,
		})
	}
}

func mapHTTPStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusServiceUnavailable:
		return CodeUnavailable
	default:
		return CodeInternal
	}
}
