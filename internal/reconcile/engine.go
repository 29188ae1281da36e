// Package reconcile 实现姓名对账
//
// 抓取到的姓名带有门户端的噪声（缺失变音符、拼写抖动），纯精确匹配
// 会悄悄丢掉有效考勤；无约束的模糊匹配又可能把两个人合并。折中方案：
// 只有编辑距离在阈值内的匹配才允许自动改写，阈值之上一律留给人工处理
package reconcile

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/xuri/excelize/v2"

	"avaris/internal/model"
	"avaris/internal/sheet"
)

// Config 对账配置
type Config struct {
	RosterSheet    string `json:"rosterSheet"`    // 名册所在表（权威姓名）
	RosterStartRow int    `json:"rosterStartRow"` //
	RosterNameCol  string `json:"rosterNameCol"`  //
	DataSheet      string `json:"dataSheet"`      // 抓取数据所在表
	DataStartRow   int    `json:"dataStartRow"`   //
	DataNameCol    string `json:"dataNameCol"`    //
	MaxDistance    int    `json:"maxDistance"`    // 安全模糊匹配的最大编辑距离
	ApplyChanges   bool   `json:"applyChanges"`   // 是否将模糊命中改写为名册拼写
	MaxRows        int    `json:"maxRows"`        // 扫描行数上限，约束最坏情况成本
}

// DefaultConfig 默认对账配置
func DefaultConfig() Config {
	return Config{
		RosterSheet:    sheet.PrimarySheet,
		RosterStartRow: 2,
		RosterNameCol:  "A",
		DataSheet:      sheet.DataSheet,
		DataStartRow:   sheet.FirstDataRow,
		DataNameCol:    "C",
		MaxDistance:    2,
		MaxRows:        2000,
	}
}

// Engine 姓名对账引擎
type Engine struct {
	cfg Config
}

// NewEngine 创建对账引擎
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.RosterSheet == "" {
		cfg.RosterSheet = def.RosterSheet
	}
	if cfg.RosterStartRow <= 0 {
		cfg.RosterStartRow = def.RosterStartRow
	}
	if cfg.RosterNameCol == "" {
		cfg.RosterNameCol = def.RosterNameCol
	}
	if cfg.DataSheet == "" {
		cfg.DataSheet = def.DataSheet
	}
	if cfg.DataStartRow <= 0 {
		cfg.DataStartRow = def.DataStartRow
	}
	if cfg.DataNameCol == "" {
		cfg.DataNameCol = def.DataNameCol
	}
	if cfg.MaxDistance <= 0 {
		cfg.MaxDistance = def.MaxDistance
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = def.MaxRows
	}
	return &Engine{cfg: cfg}
}

// ReconcileFile 打开工作簿、对账，发生改写时写回
func (e *Engine) ReconcileFile(path string) (*model.ReconciliationOutcome, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	outcome, err := e.Reconcile(f)
	if err != nil {
		return nil, err
	}

	if outcome.Applied > 0 {
		if err := f.SaveAs(path); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrWriteFailed, err)
		}
	}
	return outcome, nil
}

// Reconcile 将数据表中的姓名逐一对齐到名册
//
// 每个姓名的终态是三者之一：精确匹配、安全模糊匹配（含距离）、未匹配。
// 未匹配不是错误，记入报告供人工跟进；改写只发生在安全模糊匹配上
func (e *Engine) Reconcile(f *excelize.File) (*model.ReconciliationOutcome, error) {
	roster, err := e.readColumnValues(f, e.cfg.RosterSheet, e.cfg.RosterNameCol, e.cfg.RosterStartRow)
	if err != nil {
		return nil, fmt.Errorf("read roster sheet %q: %w", e.cfg.RosterSheet, err)
	}

	dataNames, err := e.readColumn(f, e.cfg.DataSheet, e.cfg.DataNameCol, e.cfg.DataStartRow)
	if err != nil {
		return nil, fmt.Errorf("read data sheet %q: %w", e.cfg.DataSheet, err)
	}

	// 名册规范化形态只算一次
	normalized := make([]string, len(roster))
	for i, name := range roster {
		normalized[i] = Normalize(name)
	}

	outcome := &model.ReconciliationOutcome{}

	for _, entry := range dataNames {
		match := e.matchOne(entry, roster, normalized)

		if match.Kind == model.MatchFuzzy && e.cfg.ApplyChanges {
			cell := fmt.Sprintf("%s%d", e.cfg.DataNameCol, match.Row)
			if err := f.SetCellValue(e.cfg.DataSheet, cell, match.Matched); err != nil {
				return nil, err
			}
			match.Applied = true
			outcome.Applied++
		}

		outcome.Matches = append(outcome.Matches, match)
		outcome.Total++
		switch match.Kind {
		case model.MatchExact:
			outcome.Exact++
		case model.MatchFuzzy:
			outcome.Fuzzy++
		default:
			outcome.Unmatched++
		}
	}

	return outcome, nil
}

// matchOne 为单个姓名寻找最佳名册命中
// 平手时取名册中先出现的一项
func (e *Engine) matchOne(entry columnEntry, roster []string, normalized []string) model.NameMatch {
	source := Normalize(entry.value)

	for i, norm := range normalized {
		if norm == source {
			return model.NameMatch{
				Row:     entry.row,
				Source:  entry.value,
				Matched: roster[i],
				Kind:    model.MatchExact,
			}
		}
	}

	bestIdx := -1
	bestDist := 0
	for i, norm := range normalized {
		d := levenshtein.ComputeDistance(source, norm)
		if bestIdx < 0 || d < bestDist {
			bestIdx = i
			bestDist = d
		}
	}
	if bestIdx >= 0 && bestDist <= e.cfg.MaxDistance {
		return model.NameMatch{
			Row:      entry.row,
			Source:   entry.value,
			Matched:  roster[bestIdx],
			Kind:     model.MatchFuzzy,
			Distance: bestDist,
		}
	}

	return model.NameMatch{
		Row:    entry.row,
		Source: entry.value,
		Kind:   model.MatchNone,
	}
}

type columnEntry struct {
	row   int
	value string
}

// readColumn 自起始行向下读取一列非空值，受 MaxRows 上限约束
// 遇到连续空单元格即认为到达数据区末尾
func (e *Engine) readColumn(f *excelize.File, sheetName, col string, startRow int) ([]columnEntry, error) {
	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet not found")
	}

	const blankRunLimit = 5

	var entries []columnEntry
	blanks := 0
	for row := startRow; row < startRow+e.cfg.MaxRows; row++ {
		v, err := f.GetCellValue(sheetName, fmt.Sprintf("%s%d", col, row))
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(v) == "" {
			blanks++
			if blanks >= blankRunLimit {
				break
			}
			continue
		}
		blanks = 0
		entries = append(entries, columnEntry{row: row, value: strings.TrimSpace(v)})
	}
	return entries, nil
}

// Normalize 姓名规范化：去首尾空白、压缩连续空白、大小写折叠
func Normalize(name string) string {
	fields := strings.Fields(name)
	return strings.ToLower(strings.Join(fields, " "))
}

// readColumnValues 同 readColumn，只取值不取行号
func (e *Engine) readColumnValues(f *excelize.File, sheetName, col string, startRow int) ([]string, error) {
	entries, err := e.readColumn(f, sheetName, col, startRow)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(entries))
	for i, en := range entries {
		out[i] = en.value
	}
	return out, nil
}
