package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"avaris/internal/config"
	"avaris/internal/importer"
	"avaris/internal/store"
)

// Handler API 处理器
type Handler struct {
	coordinator *importer.Coordinator
	store       *store.Store
	cfg         *config.AppConfig
	dataDir     string
	downloads   *downloadStore
}

// NewHandler 创建 API 处理器
func NewHandler(coordinator *importer.Coordinator, st *store.Store, cfg *config.AppConfig, dataDir string) *Handler {
	return &Handler{
		coordinator: coordinator,
		store:       st,
		cfg:         cfg,
		dataDir:     dataDir,
		downloads:   newDownloadStore(),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 流水线执行
	router.POST("/sync", h.Sync)
	router.POST("/sync/stream", h.SyncStream)

	// 独立姓名对账（不抓取，只处理上传的工作簿）
	router.POST("/reconcile", h.Reconcile)

	// 执行历史
	router.GET("/runs", h.ListRuns)
	router.GET("/runs/:id", h.GetRun)

	// 产物下载
	router.GET("/download/:token", h.Download)
}

// GetStatus 系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"objects": h.cfg.Avaris.Objects,
		"keepTag": h.cfg.Pipeline.KeepTag,
	})
}
