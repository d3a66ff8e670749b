package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query parameters of the selector widgets.
const (
	paramGroup = "group"
	paramAxis  = "x"
	paramRows  = "n"
)

// SelectionParams holds the raw selector values of a request.
type SelectionParams struct {
	Group string
	Axis  string
}

// ParseSelectionParams extracts the selector values from a query string.
func ParseSelectionParams(query url.Values) SelectionParams {
	return SelectionParams{
		Group: sanitizeInput(query.Get(paramGroup)),
		Axis:  sanitizeInput(query.Get(paramAxis)),
	}
}

// ParseRowsParam reads the preview size. Empty means 0, the server default.
func ParseRowsParam(query url.Values) (int, error) {
	v := strings.TrimSpace(query.Get(paramRows))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", paramRows, v)
	}
	return n, nil
}

// selectionQuery encodes selector values for chart URLs.
func selectionQuery(group, axis string) string {
	q := url.Values{}
	if group != "" {
		q.Set(paramGroup, group)
	}
	if axis != "" {
		q.Set(paramAxis, axis)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
