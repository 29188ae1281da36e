package exporter

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"avaris/internal/model"
	"avaris/internal/sheet"
)

// Writer 全新考勤工作簿生成器
type Writer struct {
	now func() time.Time
}

// NewWriter 创建生成器
func NewWriter() *Writer {
	return &Writer{now: time.Now}
}

// WriteFresh 从保留记录生成一个全新的工作簿并落盘
//
// 工作簿完全在内存中构建，最后一次性写出，不存在中间状态；
// 返回数据表的逻辑名称
func (w *Writer) WriteFresh(records []model.AttendanceRecord, path string) (string, error) {
	f, err := w.Build(records)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrWriteFailed, err)
	}
	return sheet.DataSheet, nil
}

// Build 在内存中构建工作簿，落盘由调用方决定
func (w *Writer) Build(records []model.AttendanceRecord) (*excelize.File, error) {
	f := excelize.NewFile()

	// 主表放在首位，保证产物可以直接作为后续增量合并的目标
	if err := f.SetSheetName("Sheet1", sheet.PrimarySheet); err != nil {
		f.Close()
		return nil, err
	}
	dataIdx, err := f.NewSheet(sheet.DataSheet)
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := sheet.WriteLayout(f, sheet.DataSheet, w.now()); err != nil {
		f.Close()
		return nil, err
	}

	for i, rec := range records {
		row := sheet.FirstDataRow + i
		if err := sheet.WriteRecordRow(f, sheet.DataSheet, row, rec); err != nil {
			f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(dataIdx)
	return f, nil
}
