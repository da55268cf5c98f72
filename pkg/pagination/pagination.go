package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds limit/offset read from the query string.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads ?limit= and ?offset=, clamping limit to [1, MaxLimit].
func FromContext(c echo.Context) Params {
	return Params{
		Limit:  ClampLimit(c.QueryParam("limit")),
		Offset: max(atoi(c.QueryParam("offset")), 0),
	}
}

// ClampLimit parses a limit value, falling back to DefaultLimit when it is
// missing or non-positive and capping it at MaxLimit.
func ClampLimit(raw string) int {
	limit := atoi(raw)
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Response wraps one page of a list endpoint.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

func NewResponse(data interface{}, total, limit, offset int) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}
