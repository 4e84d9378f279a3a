package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// queryInt クエリパラメータを整数として読み、[min, max] に収める。読めなければ def。
func queryInt(c *gin.Context, key string, def, min, max int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
