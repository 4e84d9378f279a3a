package handlers

import (
	"net/http"

	"interview-analyzer-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// MonitoringHandler はモニタリング関連の操作のハンドラです。
type MonitoringHandler struct {
	Service *services.MonitoringService
}

// NewMonitoringHandler は新しいMonitoringHandlerを生成します。
func NewMonitoringHandler(service *services.MonitoringService) *MonitoringHandler {
	return &MonitoringHandler{
		Service: service,
	}
}

var monitoringPeriods = map[string]int{
	"1h":  1,
	"24h": 24,
	"7d":  24 * 7,
	"30d": 24 * 30,
}

// GetLogs はリクエストログと分析実行の集計を返します。
func (h *MonitoringHandler) GetLogs(c *gin.Context) {
	periodStr := c.DefaultQuery("period", "24h")
	hours, ok := monitoringPeriods[periodStr]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period は 1h, 24h, 7d, 30d のいずれかです"})
		return
	}

	data := h.Service.GetDashboardData(hours)
	c.JSON(http.StatusOK, data)
}
