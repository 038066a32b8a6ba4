package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iabetor/feedbot/internal/logger"
	"github.com/iabetor/feedbot/internal/rss"
	"github.com/iabetor/feedbot/internal/telegram"
)

// Sender 消息投递出口（Telegram 客户端或测试桩）。
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// EntryFetcher 抓取订阅源的最新条目。
type EntryFetcher interface {
	FetchLatest(ctx context.Context, url string) (*rss.Entry, error)
}

// Recorder 推送成功后的历史落库，尽力而为。
type Recorder interface {
	Record(e *rss.Entry, feedName string) error
}

// Config Monitor 的装配参数。
type Config struct {
	Store     *rss.FeedStore
	Fetcher   EntryFetcher
	Sender    Sender
	Ledger    *PostedLedger
	History   Recorder // 可为 nil
	ChannelID string
	// Interval 两轮检查之间的间隔。
	Interval time.Duration
	// RetryDelay 某轮整体失败后的较短重试间隔。
	RetryDelay time.Duration
	// PostDelay 每次成功推送后的停顿。
	PostDelay time.Duration
}

// Monitor 订阅源轮询器: 周期性遍历注册表，抓取、去重、推送。
// 循环是账本的唯一写入方；注册表的变更在下一轮生效。
type Monitor struct {
	cfg Config

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// New 创建轮询器。
func New(cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 300 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 60 * time.Second
	}
	if cfg.PostDelay < 0 {
		cfg.PostDelay = 0
	}
	return &Monitor{cfg: cfg}
}

// Start 启动后台轮询。已在运行时为空操作。
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.loop(m.stop, m.done)
	logger.Infof("[monitor] 已启动 (间隔 %s)", m.cfg.Interval)
}

// Stop 通知循环停止并等待进行中的一轮自然结束。未运行时为空操作。
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stop, done := m.stop, m.done
	m.mu.Unlock()

	close(stop)
	<-done
	logger.Info("[monitor] 已停止")
}

// Running 返回轮询是否在运行，供状态查询使用。
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) loop(stop, done chan struct{}) {
	defer close(done)
	ctx := context.Background()

	for {
		delay := m.cfg.Interval
		if err := m.CheckAllFeeds(ctx); err != nil {
			logger.Errorf("[monitor] 本轮检查失败: %v", err)
			delay = m.cfg.RetryDelay
		}

		// 停止信号只在两轮之间生效，不打断进行中的抓取
		select {
		case <-stop:
			return
		case <-time.After(delay):
		}
	}
}

// CheckAllFeeds 对注册表的当前快照执行一轮完整检查。
// 单个订阅源的失败只记日志不中断本轮；返回的错误只来自
// 最外层的兜底，调用方据此缩短下一轮的等待。
func (m *Monitor) CheckAllFeeds(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("检查过程异常: %v", r)
		}
	}()

	feeds := m.cfg.Store.List()
	if len(feeds) == 0 {
		logger.Info("[monitor] 没有配置订阅源")
		return nil
	}

	for _, feed := range feeds {
		logger.Debugf("[monitor] 检查订阅源: %s", feed.Name)
		if err := m.checkFeed(ctx, feed); err != nil {
			logger.Errorf("[monitor] 检查订阅源 %s 失败: %v", feed.Name, err)
		}
	}
	return nil
}

// checkFeed 处理单个订阅源: 抓取最新条目，没推送过就排版发出。
// 推送失败不记入账本，下一轮会重试同一条目。
func (m *Monitor) checkFeed(ctx context.Context, feed rss.FeedConfig) error {
	entry, err := m.cfg.Fetcher.FetchLatest(ctx, feed.URL)
	if err != nil {
		return err
	}
	if entry == nil || m.cfg.Ledger.Seen(entry.ID) {
		return nil
	}

	msg := telegram.FormatEntry(entry, feed.Name)
	if err := m.cfg.Sender.SendMessage(ctx, m.cfg.ChannelID, msg); err != nil {
		return fmt.Errorf("推送失败: %w", err)
	}
	m.cfg.Ledger.MarkSeen(entry.ID)
	logger.Infof("[monitor] 已推送新文章: %s", entry.Title)

	if m.cfg.History != nil {
		if err := m.cfg.History.Record(entry, feed.Name); err != nil {
			logger.Warnf("[monitor] 记录推送历史失败: %v", err)
		}
	}

	// 只在实际推送后停顿，避免对 Telegram 突发请求
	if m.cfg.PostDelay > 0 {
		time.Sleep(m.cfg.PostDelay)
	}
	return nil
}
