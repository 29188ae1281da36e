// Package importer 编排完整的抓取-解析-合并流水线
package importer

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"avaris/internal/classifier"
	"avaris/internal/exporter"
	"avaris/internal/merge"
	"avaris/internal/model"
	"avaris/internal/parser"
	"avaris/internal/reconcile"
	"avaris/internal/scraper"
	"avaris/internal/store"
)

// Coordinator 流水线协调器
//
// 对象按调用方给定的顺序逐个处理：门户共享单一登录态，抓取不并行。
// 单个对象失败只影响该对象，批次继续；全部失败才算整体失败
type Coordinator struct {
	collaborator scraper.Collaborator
	writer       *exporter.Writer
	merger       *merge.Engine
	store        *store.Store
	now          func() time.Time
}

// NewCoordinator 创建协调器；st 可以为 nil（不记审计日志）
func NewCoordinator(collaborator scraper.Collaborator, st *store.Store) *Coordinator {
	return &Coordinator{
		collaborator: collaborator,
		writer:       exporter.NewWriter(),
		merger:       merge.NewEngine(),
		store:        st,
		now:          time.Now,
	}
}

// RunOptions 一次流水线执行的选项
type RunOptions struct {
	Objects []string          // 扫描对象，处理顺序即列表顺序
	Range   scraper.DateRange //
	KeepTag string            // 保留标记，空则用默认值

	// TargetPath 目标工作簿。为空时每个对象生成独立工作簿；
	// 非空时所有对象的保留记录先合并成一份，再对目标执行一次增量合并
	TargetPath string
	// OutputDir 独立工作簿的输出目录
	OutputDir string

	// Reconcile 合并后是否执行姓名对账（仅目标文件流程）
	Reconcile       bool
	ReconcileConfig reconcile.Config

	// ObjectTimeout 单对象抓取超时，默认 2 分钟；超时只算该对象失败
	ObjectTimeout time.Duration
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`    // start/object_start/object_done/object_failed/merge_done/done/error
	Message   string      `json:"message"` //
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Run 异步执行流水线，进度与最终结果通过通道交付
// 最终结果挂在 done 事件的 Data 上
func (c *Coordinator) Run(ctx context.Context, opts RunOptions) <-chan ProgressEvent {
	progress := make(chan ProgressEvent, 100)
	go func() {
		defer close(progress)
		result, err := c.run(ctx, opts, progress)
		if err != nil {
			c.send(progress, ProgressEvent{
				Type:      "error",
				Message:   err.Error(),
				Timestamp: c.now(),
			})
			return
		}
		c.send(progress, ProgressEvent{
			Type:      "done",
			Message:   "pipeline finished",
			Data:      result,
			Timestamp: c.now(),
		})
	}()
	return progress
}

// RunSync 同步执行流水线
//
// 返回 error 的情况只有前置/配置失败（无对象、目标文件不可用）；
// 对象级失败反映在 RunResult 里，不作为 error 返回
func (c *Coordinator) RunSync(ctx context.Context, opts RunOptions) (*model.RunResult, error) {
	return c.run(ctx, opts, nil)
}

func (c *Coordinator) run(ctx context.Context, opts RunOptions, progress chan ProgressEvent) (*model.RunResult, error) {
	if len(opts.Objects) == 0 {
		return nil, model.ErrNoObjects
	}
	if opts.ObjectTimeout <= 0 {
		opts.ObjectTimeout = 2 * time.Minute
	}

	result := &model.RunResult{
		ID:        uuid.New().String(),
		StartedAt: c.now(),
	}

	c.send(progress, ProgressEvent{
		Type:      "start",
		Message:   fmt.Sprintf("zpracovávám %d objektů", len(opts.Objects)),
		Data:      map[string]interface{}{"runId": result.ID, "objects": opts.Objects},
		Timestamp: c.now(),
	})

	var combined []model.AttendanceRecord

	for _, object := range opts.Objects {
		objResult := c.processObject(ctx, object, opts, &combined)
		result.Objects = append(result.Objects, objResult)

		if objResult.Status == model.ObjectSuccess {
			c.send(progress, ProgressEvent{
				Type:      "object_done",
				Message:   fmt.Sprintf("objekt %q: %d záznamů ponecháno", object, objResult.RowsKept),
				Data:      objResult,
				Timestamp: c.now(),
			})
		} else {
			c.send(progress, ProgressEvent{
				Type:      "object_failed",
				Message:   fmt.Sprintf("objekt %q: %s", object, objResult.Error),
				Data:      objResult,
				Timestamp: c.now(),
			})
		}
	}

	result.Success = result.SucceededCount() > 0

	// 目标文件流程：所有对象的保留记录合并成一份后只写一次
	if opts.TargetPath != "" && result.Success {
		mergeResult, err := c.merger.MergeFile(opts.TargetPath, combined)
		if err != nil {
			c.record(result, opts)
			return nil, fmt.Errorf("merge into %s: %w", opts.TargetPath, err)
		}
		result.Merge = mergeResult
		result.ArtifactPath = opts.TargetPath

		c.send(progress, ProgressEvent{
			Type:      "merge_done",
			Message:   fmt.Sprintf("přidáno %d nových řádků", mergeResult.Added),
			Data:      mergeResult,
			Timestamp: c.now(),
		})

		if opts.Reconcile {
			engine := reconcile.NewEngine(opts.ReconcileConfig)
			outcome, err := engine.ReconcileFile(opts.TargetPath)
			if err != nil {
				c.record(result, opts)
				return nil, fmt.Errorf("reconcile %s: %w", opts.TargetPath, err)
			}
			result.Reconciliation = outcome
		}
	}

	if result.ArtifactPath == "" {
		for _, o := range result.Objects {
			if o.Status == model.ObjectSuccess && o.FilePath != "" {
				result.ArtifactPath = o.FilePath
				break
			}
		}
	}

	result.Duration = c.now().Sub(result.StartedAt)
	c.record(result, opts)
	return result, nil
}

// processObject 处理单个对象：抓取 -> 解析 -> 分类 -> 写出或并入合并集
func (c *Coordinator) processObject(ctx context.Context, object string, opts RunOptions, combined *[]model.AttendanceRecord) model.ObjectResult {
	started := c.now()
	objResult := model.ObjectResult{Object: object, Status: model.ObjectFailed}

	scrapeCtx, cancel := context.WithTimeout(ctx, opts.ObjectTimeout)
	rawText, err := c.collaborator.ScrapeObject(scrapeCtx, object, opts.Range)
	cancel()
	if err != nil {
		objResult.Error = err.Error()
		objResult.Duration = c.now().Sub(started)
		return objResult
	}

	extraction, err := parser.Extract(rawText)
	if err != nil {
		objResult.Error = err.Error()
		objResult.Duration = c.now().Sub(started)
		return objResult
	}
	if extraction.SkippedRows > 0 {
		log.Printf("importer: object %q: %d rows skipped", object, extraction.SkippedRows)
	}

	filtered := classifier.Classify(extraction.All, opts.KeepTag)

	objResult.RowsTotal = len(extraction.All)
	objResult.RowsKept = len(filtered.Kept)
	objResult.RowsSkipped = extraction.SkippedRows

	if opts.TargetPath == "" {
		path := filepath.Join(opts.OutputDir, freshFileName(object, started))
		sheetName, err := c.writer.WriteFresh(filtered.Kept, path)
		if err != nil {
			objResult.Error = err.Error()
			objResult.Duration = c.now().Sub(started)
			return objResult
		}
		objResult.FilePath = path
		objResult.SheetName = sheetName
	} else {
		*combined = append(*combined, filtered.Kept...)
	}

	objResult.Status = model.ObjectSuccess
	objResult.Duration = c.now().Sub(started)
	return objResult
}

// record 把执行结果写入审计存储
func (c *Coordinator) record(result *model.RunResult, opts RunOptions) {
	if c.store == nil {
		return
	}
	if err := c.store.RecordRun(result, strings.Join(opts.Objects, ",")); err != nil {
		log.Printf("importer: record run %s: %v", result.ID, err)
	}
}

func (c *Coordinator) send(progress chan ProgressEvent, ev ProgressEvent) {
	if progress == nil {
		return
	}
	select {
	case progress <- ev:
	default:
		// 消费方跟不上时丢弃进度事件，不阻塞流水线
	}
}

// freshFileName 独立工作簿文件名：对象名 + 时间戳
func freshFileName(object string, at time.Time) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, object)
	return fmt.Sprintf("dochazka_%s_%s.xlsx", sanitized, at.Format("20060102_150405"))
}
