package utils

import "strconv"

const DefaultPageSize = 10

// ParsePage turns raw page/limit query values into skip and limit,
// defaulting to page 1 and a limit of 10.
func ParsePage(pageStr, limitStr string) (page, skip, limit int) {
	page = parseIntDefault(pageStr, 1)
	if page < 1 {
		page = 1
	}
	limit = parseIntDefault(limitStr, DefaultPageSize)
	if limit <= 0 || limit > 100 {
		limit = DefaultPageSize
	}
	return page, (page - 1) * limit, limit
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
