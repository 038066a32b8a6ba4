package rss

import "fmt"

// FetchErrorKind 抓取失败的类别，用于日志诊断。
type FetchErrorKind int

const (
	// KindNetwork 网络错误（连接失败、DNS 失败等）。
	KindNetwork FetchErrorKind = iota + 1
	// KindTimeout 抓取超时。
	KindTimeout
	// KindHTTPStatus 服务端返回非 2xx 状态码。
	KindHTTPStatus
	// KindMalformedFeed 响应体无法按 RSS/Atom 解析。
	KindMalformedFeed
)

// String 返回类别名称。
func (k FetchErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindHTTPStatus:
		return "http_status"
	case KindMalformedFeed:
		return "malformed_feed"
	default:
		return "unknown"
	}
}

// FetchError 单个订阅源的抓取失败。所有类别都只记日志跳过，
// 下一轮检查自然重试，不在同一轮内重试。
type FetchError struct {
	Kind FetchErrorKind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("抓取 %s 失败 (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
