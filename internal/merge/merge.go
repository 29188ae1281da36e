// Package merge 实现对目标考勤工作簿的增量合并
//
// 数据表是一本按时间戳为键的追加式账本：合并前先扫描已有数据区，
// 找到最新的可解析时间戳作为水位线，只追加严格晚于水位线的记录。
// 重复执行合并不会产生重复行
package merge

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"avaris/internal/model"
	"avaris/internal/parser"
	"avaris/internal/sheet"
)

// Engine 增量合并器
type Engine struct {
	now func() time.Time
}

// NewEngine 创建合并器
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// MergeFile 打开目标文件、执行合并并一次性写回
func (e *Engine) MergeFile(path string, records []model.AttendanceRecord) (*model.MergeResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open target workbook: %w", err)
	}
	defer f.Close()

	result, err := e.Merge(f, records)
	if err != nil {
		return nil, err
	}

	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrWriteFailed, err)
	}
	return result, nil
}

// Merge 对已打开的工作簿执行增量合并，落盘由调用方决定
//
// 目标表状态机：缺失 -> 建表写版式；空表 -> 补版式后全量追加；
// 有数据 -> 按水位线过滤后追加。追加保持来源记录的相对顺序。
// Added 为 0 表示没有新数据，属于正常终态
func (e *Engine) Merge(f *excelize.File, records []model.AttendanceRecord) (*model.MergeResult, error) {
	// 前置条件：主表必须存在
	if idx, err := f.GetSheetIndex(sheet.PrimarySheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("merge: %w", model.ErrMissingPrimarySheet)
	}

	result := &model.MergeResult{}

	dataIdx, err := f.GetSheetIndex(sheet.DataSheet)
	if err != nil {
		return nil, err
	}
	if dataIdx < 0 {
		if _, err := f.NewSheet(sheet.DataSheet); err != nil {
			return nil, err
		}
		if err := sheet.WriteLayout(f, sheet.DataSheet, e.now()); err != nil {
			return nil, err
		}
	}

	rows, err := f.GetRows(sheet.DataSheet)
	if err != nil {
		return nil, err
	}

	// 已有表但缺表头（调用方手工建的空表）：补齐版式
	if headerCell, _ := f.GetCellValue(sheet.DataSheet,
		fmt.Sprintf("A%d", sheet.HeaderRow)); headerCell == "" {
		if err := sheet.WriteLayout(f, sheet.DataSheet, e.now()); err != nil {
			return nil, err
		}
	}

	// 水位线：数据区 B 列的最大可解析时间戳
	var watermark time.Time
	hasWatermark := false
	dataRows := 0
	for i := sheet.FirstDataRow - 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		dataRows++
		if len(row) < 2 {
			result.SkippedTimestamps++
			continue
		}
		t, ok := parser.ParseTimestamp(row[1])
		if !ok {
			result.SkippedTimestamps++
			continue
		}
		if !hasWatermark || t.After(watermark) {
			watermark = t
			hasWatermark = true
		}
	}
	if hasWatermark {
		result.Watermark = watermark.Format(parser.LayoutFull)
	}

	// 过滤出严格晚于水位线的新记录；没有水位线时全量追加
	var fresh []model.AttendanceRecord
	for _, rec := range records {
		if !hasWatermark {
			fresh = append(fresh, rec)
			continue
		}
		t, ok := parser.ParseTimestamp(rec.Timestamp)
		if !ok {
			// 无完整时间戳的记录无法与水位线比较，排除并计数
			result.SkippedTimestamps++
			continue
		}
		if t.After(watermark) {
			fresh = append(fresh, rec)
		}
	}

	firstFree := sheet.FirstDataRow + dataRows
	if len(rows) >= sheet.FirstDataRow {
		// 数据区中间可能有空行，追加点取两者较大值避免覆盖
		if tail := len(rows) + 1; tail > firstFree {
			firstFree = tail
		}
	}

	for i, rec := range fresh {
		if err := sheet.WriteRecordRow(f, sheet.DataSheet, firstFree+i, rec); err != nil {
			return nil, err
		}
	}
	result.Added = len(fresh)

	return result, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
