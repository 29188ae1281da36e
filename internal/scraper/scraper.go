// Package scraper 封装对 Avaris 门户的抓取
//
// 流水线只依赖 Collaborator 约定：给定对象名与日期范围返回原始导出文本。
// 会话、登录、浏览器驱动都是本包内部事务，不向下游泄漏
package scraper

import (
	"context"
	"time"
)

// Credentials 门户登录凭据
type Credentials struct {
	Username string
	Password string
}

// DateRange 抓取日期范围（闭区间）
type DateRange struct {
	From time.Time
	To   time.Time
}

// Collaborator 抓取协作方约定
//
// 门户共享单一浏览器会话与登录态，实现不保证并发安全；
// 调用方应逐对象串行调用，并用 ctx 约束单次抓取时长
type Collaborator interface {
	// ScrapeObject 抓取一个对象的原始导出文本
	ScrapeObject(ctx context.Context, object string, rng DateRange) (string, error)
}
