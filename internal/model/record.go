package model

// AttendanceRecord 单条打卡记录
// 从 Avaris 门户导出的原始行解析而来，字段均保留抓取时的字符串形态
type AttendanceRecord struct {
	Day        string `json:"day"`        // 日期标签（如 "04.02.2025" 或门户给出的星期标签）
	Timestamp  string `json:"timestamp"`  // 日期+时间，排序与水位线的唯一依据
	Location   string `json:"location"`   // 读卡点/站点名称
	Flag       string `json:"flag"`       // 分类标记，仅保留标记（默认 "ST"）参与后续处理
	HolderName string `json:"holderName"` // 持卡人姓名
}

// ExtractionResult 单个导出文件的解析结果
type ExtractionResult struct {
	All         []AttendanceRecord `json:"all"`         // 全部记录，顺序与文件行序一致
	SkippedRows int                `json:"skippedRows"` // 因字段不足被跳过的行数（可观测，不算失败）
}

// FilteredResult 记录分类结果
// Kept + Discarded 恰好覆盖输入全集，每条记录只出现在其中一侧
type FilteredResult struct {
	Kept           []AttendanceRecord `json:"kept"`
	Discarded      []AttendanceRecord `json:"discarded"`
	LocationCounts map[string]int     `json:"locationCounts"` // 读卡点 -> 保留记录数
	Locations      []string           `json:"locations"`      // 去重后的读卡点列表，按首次出现顺序
}
