package model

import "errors"

// 流水线错误分类
// 可恢复问题（坏行、坏时间戳）不走 error，只计数；以下是真正的失败
var (
	// ErrHeaderNotFound 导出文本中找不到表头标记，整个文件视为不兼容
	ErrHeaderNotFound = errors.New("header marker not found in export")

	// ErrMissingPrimarySheet 目标工作簿缺少主表，合并前置条件不成立
	ErrMissingPrimarySheet = errors.New("target workbook is missing the primary sheet")

	// ErrWriteFailed 工作簿落盘失败
	ErrWriteFailed = errors.New("workbook write failed")

	// ErrScrapeFailed 抓取协作方失败（仅该对象失败，批次继续）
	ErrScrapeFailed = errors.New("scrape failed")

	// ErrNoObjects 未配置任何扫描对象
	ErrNoObjects = errors.New("no objects configured")
)
