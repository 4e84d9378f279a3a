package handlers

import (
	"net/http"
	"sync/atomic"

	config "interview-analyzer-api/configs"
	"interview-analyzer-api/pkg/dynamics"

	"github.com/gin-gonic/gin"
)

// ComponentStatus は各外部コンポーネントが有効かどうかを示します。
type ComponentStatus struct {
	AzureOpenAI     bool `json:"azure_openai"`
	Database        bool `json:"database"`
	ResultsWorkbook bool `json:"results_workbook"`
	VectorStore     bool `json:"vector_store"`
}

// AdminHandler は管理者向け操作とヘルスチェックのハンドラです。
type AdminHandler struct {
	AdminUsername string
	AdminPassword string
	Components    ComponentStatus

	// メンテナンス中は /health が 503 を返す
	maintenance atomic.Bool
}

// NewAdminHandler は新しいAdminHandlerを生成します。
func NewAdminHandler(cfg *config.Config, components ComponentStatus) *AdminHandler {
	return &AdminHandler{
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		Components:    components,
	}
}

// AdminCredentials は管理者認証のためのリクエストボディです。
type AdminCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// StartMaintenance はメンテナンスモードを開始します。
func (h *AdminHandler) StartMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	h.maintenance.Store(true)
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance mode started"})
}

// StopMaintenance はメンテナンスモードを停止します。
func (h *AdminHandler) StopMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	h.maintenance.Store(false)
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance mode stopped"})
}

// InMaintenance reports whether maintenance mode is on.
func (h *AdminHandler) InMaintenance() bool {
	return h.maintenance.Load()
}

// GetHealthStatus は現在のサーバーの状態を返します。
func (h *AdminHandler) GetHealthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"isMaintenanceMode": h.maintenance.Load(),
		"components":        h.Components,
		"modelVersion":      dynamics.ModelVersion,
	})
}

// HealthCheck は外部のヘルスチェッカー（例: ロードバランサー）からのリクエストに応答します。
// 外部コンポーネントが無効でも分析はフォールバックで動くため、ステータスは ok のままです。
func (h *AdminHandler) HealthCheck(c *gin.Context) {
	if h.maintenance.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": "Server is in maintenance mode"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "components": h.Components})
}

func (h *AdminHandler) authorize(c *gin.Context) bool {
	var input AdminCredentials
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return false
	}
	if h.AdminUsername == "" || input.Username != h.AdminUsername || input.Password != h.AdminPassword {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return false
	}
	return true
}
