// Package rss 提供订阅源注册表管理和 RSS/Atom 内容抓取。
package rss

import "time"

// FeedConfig 一条订阅源记录。URL 是唯一键。
type FeedConfig struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Entry 单次抓取解析出的最新文章。只在一轮检查内存活，不做持久化。
type Entry struct {
	// ID 条目标识，取 Feed 提供的 GUID，缺失时回退为链接。
	ID          string
	Title       string
	Link        string
	Description string
	Published   *time.Time
	Updated     *time.Time
}
