package classifier

import "avaris/internal/model"

// DefaultKeepTag 默认保留标记
// Avaris 导出中只有该标记的记录是有效打卡，其余标记一律丢弃
const DefaultKeepTag = "ST"

// Classify 按保留标记划分记录并统计读卡点分布
//
// 纯函数：不做 I/O，空输入返回空结果而非错误。
// 保证 Kept 与 Discarded 恰好覆盖输入全集，顺序与输入一致
func Classify(records []model.AttendanceRecord, keepTag string) *model.FilteredResult {
	if keepTag == "" {
		keepTag = DefaultKeepTag
	}

	result := &model.FilteredResult{
		LocationCounts: make(map[string]int),
	}

	for _, rec := range records {
		if rec.Flag == keepTag {
			result.Kept = append(result.Kept, rec)
			if _, seen := result.LocationCounts[rec.Location]; !seen {
				result.Locations = append(result.Locations, rec.Location)
			}
			result.LocationCounts[rec.Location]++
		} else {
			result.Discarded = append(result.Discarded, rec)
		}
	}

	return result
}
