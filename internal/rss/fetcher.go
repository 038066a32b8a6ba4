package rss

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/iabetor/feedbot/internal/logger"
	"github.com/mmcdole/gofeed"
)

const (
	defaultFetchTimeout = 30 * time.Second
	userAgent           = "FeedBot/1.0 RSS Reader"
)

// Fetcher 负责抓取并解析单个订阅源。
// 所有订阅源共享同一个 http.Client，由监控循环独占使用。
type Fetcher struct {
	parser *gofeed.Parser
	client *http.Client
}

// NewFetcher 创建抓取器。timeout <= 0 时使用默认 30 秒。
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{
		parser: gofeed.NewParser(),
		client: &http.Client{Timeout: timeout},
	}
}

// FetchLatest 抓取订阅源并返回其中最新的一个条目。
// 只看 Feed 顺序中的第一条，同一次抓取里更旧的条目有意忽略——
// 轮询间隔足够短时每个新条目都会至少有一轮是"最新"的。
// Feed 为空或条目无法确定标识时返回 (nil, nil)。
func (f *Fetcher) FetchLatest(ctx context.Context, url string) (*Entry, error) {
	feed, err := f.parseFeed(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(feed.Items) == 0 {
		return nil, nil
	}

	item := feed.Items[0]
	id := item.GUID
	if id == "" {
		id = item.Link
	}
	if id == "" {
		// 既没有 GUID 也没有链接的条目无法去重，跳过
		logger.Warnf("[rss] 条目缺少标识，跳过: %s (%s)", item.Title, url)
		return nil, nil
	}

	description := item.Description
	if description == "" {
		description = item.Content
	}

	return &Entry{
		ID:          id,
		Title:       item.Title,
		Link:        item.Link,
		Description: description,
		Published:   item.PublishedParsed,
		Updated:     item.UpdatedParsed,
	}, nil
}

// Validate 抓取并解析订阅源以确认其有效，返回 Feed 标题和条目数。
// 标题为空时回退为 URL。
func (f *Fetcher) Validate(ctx context.Context, url string) (string, int, error) {
	feed, err := f.parseFeed(ctx, url)
	if err != nil {
		return "", 0, err
	}
	title := feed.Title
	if title == "" {
		title = url
	}
	return title, len(feed.Items), nil
}

// parseFeed 发起抓取并解析，失败时返回带类别的 *FetchError。
func (f *Fetcher) parseFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		kind := KindNetwork
		if os.IsTimeout(err) || ctx.Err() == context.DeadlineExceeded {
			kind = KindTimeout
		}
		return nil, &FetchError{Kind: kind, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Kind: KindHTTPStatus, URL: url, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: KindMalformedFeed, URL: url, Err: err}
	}
	return feed, nil
}
