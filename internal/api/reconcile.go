package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"avaris/internal/reconcile"
)

// Reconcile 对上传的工作簿执行独立姓名对账
// POST /api/reconcile (multipart: workbook, applyChanges, maxDistance)
func (h *Handler) Reconcile(c *gin.Context) {
	file, err := c.FormFile("workbook")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing workbook file"})
		return
	}

	path := filepath.Join(h.dataDir, "uploads", fmt.Sprintf("%s.xlsx", uuid.New().String()))
	if err := c.SaveUploadedFile(file, path); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	cfg := reconcile.Config{
		MaxDistance:  h.cfg.Pipeline.MatchThreshold,
		ApplyChanges: c.PostForm("applyChanges") == "true",
	}
	if v := c.PostForm("maxDistance"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxDistance = n
		}
	}

	engine := reconcile.NewEngine(cfg)
	outcome, err := engine.ReconcileFile(path)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"outcome":    outcome,
		"report":     reconcile.BuildReport(outcome),
		"reportHtml": reconcile.BuildReportHTML(outcome),
	}

	// 有改写才值得把工作簿还给调用方
	if outcome.Applied > 0 {
		token := h.downloads.put(path, file.Filename, true, 30*time.Minute)
		resp["downloadUrl"] = "/api/download/" + token
	}

	c.JSON(http.StatusOK, resp)
}
