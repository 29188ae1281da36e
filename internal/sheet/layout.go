// Package sheet 定义考勤工作簿的固定结构
// 导出器与增量合并器共用同一套坐标，保证双方对"数据从哪一行开始"没有分歧
package sheet

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"avaris/internal/model"
	"avaris/internal/parser"
)

const (
	// PrimarySheet 主表（含宏与汇总公式），增量合并的前置条件
	PrimarySheet = "Docházka"
	// DataSheet 数据表，追加式账本，按时间戳为键
	DataSheet = "Avaris data"

	// HeaderRow 表头行；1-3 行为元数据块，4 行留空
	HeaderRow = 5
	// FirstDataRow 数据起始行
	FirstDataRow = 6
)

// timeNumFmt D 列时刻的显示格式
const timeNumFmt = "h:mm"

// 列宽：A 日期标签，B 时间戳，C 读卡点，D 时刻
var columnWidths = []struct {
	col   string
	width float64
}{
	{"A", 12},
	{"B", 15},
	{"C", 30},
	{"D", 10},
}

// headers 表头文案
var headers = []string{"Day", "Date/Time", "Name", "Time"}

// WriteLayout 写入元数据块、表头与版式
// 对已有表重复调用是安全的：只覆盖固定坐标，不触碰数据区
func WriteLayout(f *excelize.File, sheetName string, generatedAt time.Time) error {
	meta := [][]interface{}{
		{"Docházka Avaris"},
		{"Data se do tohoto listu doplňují automaticky, neupravujte je ručně."},
		{fmt.Sprintf("Vygenerováno: %s", generatedAt.Format("02.01.2006 15:04:05"))},
	}
	for i, row := range meta {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetCellValue(sheetName, cell, row[0]); err != nil {
			return err
		}
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, HeaderRow)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheetName, HeaderRow, HeaderRow, headerStyle); err != nil {
		return err
	}

	for _, cw := range columnWidths {
		if err := f.SetColWidth(sheetName, cw.col, cw.col, cw.width); err != nil {
			return err
		}
	}

	// 表头以下冻结，方便滚动浏览长数据区
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      HeaderRow,
		TopLeftCell: fmt.Sprintf("A%d", FirstDataRow),
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	return nil
}

// WriteRecordRow 在指定行写入一条记录
// D 列为时刻换算成的一天比例值，配合 h:mm 格式显示为原生时间
func WriteRecordRow(f *excelize.File, sheetName string, row int, rec model.AttendanceRecord) error {
	if err := f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), rec.Day); err != nil {
		return err
	}
	if err := f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), rec.Timestamp); err != nil {
		return err
	}
	if err := f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), rec.Location); err != nil {
		return err
	}

	t, ok := parser.ParseAny(rec.Timestamp)
	if !ok {
		// 进入这里的记录都通过了解析校验，此分支只是兜底
		return nil
	}

	cell := fmt.Sprintf("D%d", row)
	if err := f.SetCellValue(sheetName, cell, parser.TimeOfDayFraction(t)); err != nil {
		return err
	}

	numFmt := timeNumFmt
	timeStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheetName, cell, cell, timeStyle)
}
