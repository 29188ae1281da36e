package server

import (
	"log"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"avaris/internal/api"
	"avaris/internal/config"
	"avaris/internal/importer"
	"avaris/internal/scraper"
	"avaris/internal/store"
)

// Server HTTP服务器
type Server struct {
	router *gin.Engine
	store  *store.Store
	portal *scraper.Portal
	api    *api.Handler
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig) *Server {
	devMode := cfg.Server.DevMode
	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}

	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		dataDir = cfg.Data.DataDir
	}

	sqliteStore, err := store.New(filepath.Join(dataDir, "avaris.db"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	portal := scraper.NewPortal(scraper.PortalConfig{
		BaseURL: cfg.Avaris.BaseURL,
		Credentials: scraper.Credentials{
			Username: cfg.Avaris.Username,
			Password: cfg.Avaris.Password,
		},
		HeadlessURL: cfg.Avaris.HeadlessURL,
		PageTimeout: time.Duration(cfg.Pipeline.ObjectTimeoutSecs) * time.Second / 4,
	}, scraper.NewSessionStore(filepath.Join(dataDir, "session")))

	coordinator := importer.NewCoordinator(portal, sqliteStore)
	apiHandler := api.NewHandler(coordinator, sqliteStore, cfg, dataDir)

	s := &Server{
		router: gin.Default(),
		store:  sqliteStore,
		portal: portal,
		api:    apiHandler,
	}

	s.setupRoutes()

	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	apiGroup := s.router.Group("/api")
	{
		s.api.RegisterRoutes(apiGroup)
	}
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Shutdown 释放浏览器与数据库资源
func (s *Server) Shutdown() {
	if err := s.portal.Close(); err != nil {
		log.Printf("close portal browser: %v", err)
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close store: %v", err)
	}
}
