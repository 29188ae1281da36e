package parser

import (
	"strings"
	"time"
)

// Avaris 导出使用的时间格式
const (
	LayoutFull  = "02.01.2006 15:04:05" // 日期+时间，水位线排序依据
	LayoutClock = "15:04:05"            // 仅时间，部分导出行只带当日时刻
)

// ParseTimestamp 解析完整时间戳（日期+时间）
// 仅完整时间戳可参与水位线比较
func ParseTimestamp(s string) (time.Time, bool) {
	t, err := time.Parse(LayoutFull, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseClock 解析仅含时刻的时间戳
func ParseClock(s string) (time.Time, bool) {
	t, err := time.Parse(LayoutClock, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseAny 按完整格式、仅时刻格式依次尝试解析
func ParseAny(s string) (time.Time, bool) {
	if t, ok := ParseTimestamp(s); ok {
		return t, true
	}
	return ParseClock(s)
}

// TimeOfDayFraction 将时刻换算为一天的小数比例
// Excel 原生时间格式的存储形态：hours/24 + minutes/1440 + seconds/86400
func TimeOfDayFraction(t time.Time) float64 {
	return float64(t.Hour())/24 + float64(t.Minute())/1440 + float64(t.Second())/86400
}
