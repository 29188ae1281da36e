package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"avaris/internal/importer"
	"avaris/internal/model"
	"avaris/internal/reconcile"
	"avaris/internal/scraper"
)

const dateLayout = "02.01.2006"

// buildRunOptions 从请求表单组装流水线选项
// 目标工作簿（可选）来自 multipart 的 target 字段，先落到 uploads 再处理
func (h *Handler) buildRunOptions(c *gin.Context) (importer.RunOptions, error) {
	opts := importer.RunOptions{
		KeepTag:       h.cfg.Pipeline.KeepTag,
		OutputDir:     filepath.Join(h.dataDir, "exports"),
		ObjectTimeout: time.Duration(h.cfg.Pipeline.ObjectTimeoutSecs) * time.Second,
	}

	opts.Objects = h.cfg.Avaris.Objects
	if v := strings.TrimSpace(c.PostForm("objects")); v != "" {
		opts.Objects = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				opts.Objects = append(opts.Objects, o)
			}
		}
	}

	// 日期范围：默认最近 7 天
	now := time.Now()
	opts.Range = scraper.DateRange{From: now.AddDate(0, 0, -7), To: now}
	if v := strings.TrimSpace(c.PostForm("from")); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return opts, fmt.Errorf("invalid from date %q", v)
		}
		opts.Range.From = t
	}
	if v := strings.TrimSpace(c.PostForm("to")); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return opts, fmt.Errorf("invalid to date %q", v)
		}
		opts.Range.To = t
	}

	if file, err := c.FormFile("target"); err == nil {
		targetPath := filepath.Join(h.dataDir, "uploads", fmt.Sprintf("%s.xlsx", uuid.New().String()))
		if err := c.SaveUploadedFile(file, targetPath); err != nil {
			return opts, fmt.Errorf("save uploaded target: %w", err)
		}
		opts.TargetPath = targetPath
	}

	if c.PostForm("reconcile") == "true" {
		opts.Reconcile = true
		opts.ReconcileConfig = reconcile.Config{
			MaxDistance:  h.cfg.Pipeline.MatchThreshold,
			ApplyChanges: h.cfg.Pipeline.ApplyChanges,
		}
	}

	return opts, nil
}

// Sync 同步执行流水线
// POST /api/sync
func (h *Handler) Sync(c *gin.Context) {
	opts, err := h.buildRunOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.coordinator.RunSync(c.Request.Context(), opts)
	if err != nil {
		status := http.StatusInternalServerError
		if err == model.ErrNoObjects {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"result": result}
	if result.ArtifactPath != "" {
		// 上传的目标文件是临时产物，下载后清理
		ephemeral := opts.TargetPath != ""
		token := h.downloads.put(result.ArtifactPath,
			filepath.Base(result.ArtifactPath), ephemeral, 30*time.Minute)
		resp["downloadUrl"] = "/api/download/" + token
	}
	if result.Reconciliation != nil {
		resp["reportHtml"] = reconcile.BuildReportHTML(result.Reconciliation)
	}

	c.JSON(http.StatusOK, resp)
}

// SyncStream 流式执行流水线（SSE 进度 + 完成后提供下载地址）
// POST /api/sync/stream
func (h *Handler) SyncStream(c *gin.Context) {
	opts, err := h.buildRunOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	send := func(ev importer.ProgressEvent) {
		b, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}

	for ev := range h.coordinator.Run(c.Request.Context(), opts) {
		if ev.Type == "done" {
			if result, ok := ev.Data.(*model.RunResult); ok && result.ArtifactPath != "" {
				ephemeral := opts.TargetPath != ""
				token := h.downloads.put(result.ArtifactPath,
					filepath.Base(result.ArtifactPath), ephemeral, 30*time.Minute)
				send(importer.ProgressEvent{
					Type:      "download_ready",
					Message:   "/api/download/" + token,
					Timestamp: time.Now(),
				})
			}
		}
		send(ev)
	}
}

// Download 下载流水线产物
// GET /api/download/:token
func (h *Handler) Download(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}

	item, ok := h.downloads.get(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "download link expired"})
		return
	}

	if _, err := os.Stat(item.filePath); err != nil {
		h.downloads.delete(token)
		c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", item.fileName))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.File(item.filePath)

	if item.ephemeral {
		h.downloads.delete(token)
		_ = os.Remove(item.filePath)
	}
}
