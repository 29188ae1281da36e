package parser

import (
	"fmt"
	"strings"

	"avaris/internal/model"
)

const (
	// HeaderMarker 表头行标记：Avaris 导出的"读取时间"列名
	HeaderMarker = "Čas načtení"
	// HeaderMarkerAlt 英文界面下的备用标记
	HeaderMarkerAlt = "load time"

	// Delimiter 标准导出分隔符
	Delimiter = ";"

	// minFields 一条有效记录至少需要的字段数
	// 依次为：日期、时间戳、读卡点、标记、持卡人姓名
	minFields = 5
)

// Extract 解析 Avaris 原始导出文本
//
// 表头行通过标记子串定位，之后的所有行视为数据。支持两种物理布局：
//  1. 标准 ";" 分隔、≥5 列的行
//  2. 单列内嵌逗号的行（已知的导出怪癖）：按逗号拆分、去空白、去包裹引号
//
// 字段不足或时间戳无法解析的行被跳过并计数，不视为错误；
// 整个文件找不到表头标记才是硬失败
func Extract(rawText string) (*model.ExtractionResult, error) {
	lines := strings.Split(strings.ReplaceAll(rawText, "\r\n", "\n"), "\n")

	headerIdx := -1
	for i, line := range lines {
		if strings.Contains(line, HeaderMarker) ||
			strings.Contains(strings.ToLower(line), HeaderMarkerAlt) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("extract: %w", model.ErrHeaderNotFound)
	}

	result := &model.ExtractionResult{}

	for _, line := range lines[headerIdx+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := splitRow(line)
		if len(fields) < minFields {
			result.SkippedRows++
			continue
		}

		rec := model.AttendanceRecord{
			Day:        fields[0],
			Timestamp:  fields[1],
			Location:   fields[2],
			Flag:       fields[3],
			HolderName: fields[4],
		}

		// 时间戳是排序的唯一依据，解析不了的记录没有意义
		if _, ok := ParseAny(rec.Timestamp); !ok {
			result.SkippedRows++
			continue
		}

		result.All = append(result.All, rec)
	}

	return result, nil
}

// splitRow 拆分单行数据，自动识别两种物理布局
func splitRow(line string) []string {
	var parts []string
	if strings.Contains(line, Delimiter) {
		parts = strings.Split(line, Delimiter)
	} else {
		// 单列布局：值被逗号连接，且可能带包裹引号
		parts = strings.Split(line, ",")
	}

	// 保留空字段，字段位置即含义，不能因为空值而移位
	fields := make([]string, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, `"`)
		fields[i] = strings.TrimSpace(p)
	}
	return fields
}
