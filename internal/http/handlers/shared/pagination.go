package shared

import (
	"strconv"
	"strings"
)

// ParsePage 解析页码，非法或小于 1 时返回 1
func ParsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
