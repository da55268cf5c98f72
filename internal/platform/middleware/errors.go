package middleware

import "github.com/labstack/echo/v4"

// errorBody renders middleware rejections in the same shape echo's default
// error handler uses for HTTPError, plus the request id.
func errorBody(c echo.Context, status int, message string) error {
	body := map[string]any{"message": message}
	if rid, ok := c.Get("request_id").(string); ok && rid != "" {
		body["request_id"] = rid
	}
	return c.JSON(status, body)
}
