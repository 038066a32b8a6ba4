// Package monitor 驱动订阅源的周期检查和新文章推送。
package monitor

import "sync"

// PostedLedger 记录已成功推送的条目标识，跨轮次去重。
// 只在进程生命周期内有效，不持久化也不淘汰；重启后每个订阅源
// 最多会重发一次最新条目，这是接受的取舍。
type PostedLedger struct {
	mu     sync.Mutex
	posted map[string]struct{}
}

// NewPostedLedger 创建空的去重账本。
func NewPostedLedger() *PostedLedger {
	return &PostedLedger{posted: make(map[string]struct{})}
}

// Seen 判断条目是否已推送过。
func (l *PostedLedger) Seen(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.posted[id]
	return ok
}

// MarkSeen 标记条目已推送。只应在推送成功后调用。
func (l *PostedLedger) MarkSeen(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.posted[id] = struct{}{}
}

// Len 返回已记录的条目数。
func (l *PostedLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.posted)
}
