package model

import "time"

// MatchKind 姓名匹配类型
type MatchKind string

const (
	MatchExact MatchKind = "exact" // 规范化后完全一致
	MatchFuzzy MatchKind = "fuzzy" // 编辑距离在阈值内的安全模糊匹配
	MatchNone  MatchKind = "none"  // 未匹配，留给人工处理
)

// NameMatch 单个姓名的匹配结果
type NameMatch struct {
	Row      int       `json:"row"`      // 数据表中的行号
	Source   string    `json:"source"`   // 抓取到的原始姓名
	Matched  string    `json:"matched"`  // 命中的名册姓名（MatchNone 时为空）
	Kind     MatchKind `json:"kind"`     //
	Distance int       `json:"distance"` // 编辑距离（MatchExact 时为 0）
	Applied  bool      `json:"applied"`  // 是否已将数据表单元格改写为名册拼写
}

// ReconciliationOutcome 姓名对账结果
type ReconciliationOutcome struct {
	Matches   []NameMatch `json:"matches"`
	Total     int         `json:"total"`
	Exact     int         `json:"exact"`
	Fuzzy     int         `json:"fuzzy"`
	Unmatched int         `json:"unmatched"`
	Applied   int         `json:"applied"` // 实际改写的单元格数
}

// MergeResult 增量合并结果
// Added 为 0 表示目标表已包含全部记录，属于正常终态而非失败
type MergeResult struct {
	Added             int    `json:"added"`
	Watermark         string `json:"watermark"`         // 合并前目标表中的最新时间戳，空表示目标为空
	SkippedTimestamps int    `json:"skippedTimestamps"` // 时间戳无法解析、被排除在水位线计算外的行数
}

// ObjectStatus 单个对象的处理状态
type ObjectStatus string

const (
	ObjectSuccess ObjectStatus = "success"
	ObjectFailed  ObjectStatus = "failed"
)

// ObjectResult 单个扫描对象的处理结果
type ObjectResult struct {
	Object      string        `json:"object"`
	Status      ObjectStatus  `json:"status"`
	Error       string        `json:"error,omitempty"`
	RowsTotal   int           `json:"rowsTotal"`
	RowsKept    int           `json:"rowsKept"`
	RowsSkipped int           `json:"rowsSkipped"`
	FilePath    string        `json:"filePath,omitempty"`  // 无目标文件流程下生成的独立工作簿
	SheetName   string        `json:"sheetName,omitempty"` //
	Duration    time.Duration `json:"duration"`
}

// RunResult 一次完整流水线执行的结果
// Success 的判定：至少一个对象成功即整体成功
type RunResult struct {
	ID             string                 `json:"id"`
	Success        bool                   `json:"success"`
	Objects        []ObjectResult         `json:"objects"`
	Merge          *MergeResult           `json:"merge,omitempty"`
	Reconciliation *ReconciliationOutcome `json:"reconciliation,omitempty"`
	ArtifactPath   string                 `json:"artifactPath,omitempty"` // 最终可下载产物
	StartedAt      time.Time              `json:"startedAt"`
	Duration       time.Duration          `json:"duration"`
}

// SucceededCount 成功对象数
func (r *RunResult) SucceededCount() int {
	n := 0
	for _, o := range r.Objects {
		if o.Status == ObjectSuccess {
			n++
		}
	}
	return n
}
