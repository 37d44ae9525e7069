package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope builds the response body for status and data.
func Envelope(statusCode int, data interface{}) APIResponse {
	return APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	}
}

// ErrorEnvelope builds the response body for err. Errors that are not *AppError become a generic 500.
func ErrorEnvelope(err error) APIResponse {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = InternalError("Something went wrong")
	}
	resp := APIResponse{
		Status:  appErr.Status,
		Message: appErr.Message,
		Error:   appErr.Code,
		Data:    appErr.Details,
	}
	if resp.Data == nil && len(appErr.Params) > 0 {
		resp.Data = appErr.Params
	}
	return resp
}

// DataResponse writes API response with status and data.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, Envelope(statusCode, data))
}

// SuccessResponse writes success response.
func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// AppErrorResponse writes application error response.
func AppErrorResponse(c echo.Context, err error) error {
	env := ErrorEnvelope(err)
	return c.JSON(env.Status, env)
}
