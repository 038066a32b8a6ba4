// Package bot 实现面向管理员的 Telegram 命令面。
// 所有命令先在这里完成权限校验，再调用核心的注册表/轮询操作。
package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/iabetor/feedbot/internal/logger"
	"github.com/iabetor/feedbot/internal/rss"
	"github.com/iabetor/feedbot/internal/telegram"
)

const (
	pollTimeoutSec = 30
	pollRetryDelay = 3 * time.Second
)

// urlPattern 订阅源 URL 的格式校验。
var urlPattern = regexp.MustCompile(`^(https?://)?([a-zA-Z0-9-]+\.)+[a-zA-Z]{2,}(/[^/\s]*)*$`)

// API 命令面用到的 Bot API 子集。
type API interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID, text string) error
}

// FeedValidator 在添加前确认订阅源有效。
type FeedValidator interface {
	Validate(ctx context.Context, url string) (title string, items int, err error)
}

// Checker 轮询器的命令入口。
type Checker interface {
	CheckAllFeeds(ctx context.Context) error
	Running() bool
}

// Counter 推送历史计数，可选。
type Counter interface {
	Count() (int, error)
}

// Config Bot 的装配参数。
type Config struct {
	API       API
	Store     *rss.FeedStore
	Validator FeedValidator
	Monitor   Checker
	History   Counter // 可为 nil
	AdminIDs  []int64
}

// Bot 管理命令处理器。
type Bot struct {
	api       API
	store     *rss.FeedStore
	validator FeedValidator
	monitor   Checker
	history   Counter
	admins    map[int64]struct{}
	offset    int64
}

// New 创建命令处理器。
func New(cfg Config) *Bot {
	admins := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = struct{}{}
	}
	return &Bot{
		api:       cfg.API,
		store:     cfg.Store,
		validator: cfg.Validator,
		monitor:   cfg.Monitor,
		history:   cfg.History,
		admins:    admins,
	}
}

// Run 长轮询拉取更新并分发命令，直到 ctx 取消。
func (b *Bot) Run(ctx context.Context) error {
	logger.Info("[bot] 命令循环已启动")
	for {
		updates, err := b.api.GetUpdates(ctx, b.offset, pollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Errorf("[bot] 拉取更新失败: %v", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= b.offset {
				b.offset = u.UpdateID + 1
			}
			if u.Message == nil || u.Message.From == nil {
				continue
			}
			b.handleMessage(ctx, u.Message)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	_, ok := b.admins[userID]
	return ok
}

// reply 回复到消息所在会话。
func (b *Bot) reply(ctx context.Context, m *telegram.Message, text string) {
	chatID := strconv.FormatInt(m.Chat.ID, 10)
	if err := b.api.SendMessage(ctx, chatID, text); err != nil {
		logger.Errorf("[bot] 回复失败: %v", err)
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *telegram.Message) {
	text := strings.TrimSpace(m.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}

	fields := strings.Fields(text)
	cmd := fields[0]
	// 去掉群里 /cmd@botname 形式的后缀
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}

	if cmd == "/start" {
		b.handleStart(ctx, m)
		return
	}

	// /start 之外的命令全部需要管理员权限
	if !b.isAdmin(m.From.ID) {
		logger.Warnf("[bot] 用户 %d 无权执行 %s", m.From.ID, cmd)
		b.reply(ctx, m, "⛔ You don't have permission to use this command.")
		return
	}

	switch cmd {
	case "/add":
		b.handleAdd(ctx, m, text)
	case "/list":
		b.handleList(ctx, m)
	case "/remove":
		b.handleRemove(ctx, m, text)
	case "/check":
		b.handleCheck(ctx, m)
	case "/reload":
		b.handleReload(ctx, m)
	case "/ping":
		b.handlePing(ctx, m)
	}
}

func (b *Bot) handleStart(ctx context.Context, m *telegram.Message) {
	b.reply(ctx, m,
		"👋 Welcome to the RSS Feed Bot!\n\n"+
			"I can post updates from RSS feeds to a Telegram channel.\n\n"+
			"Available commands:\n"+
			"/add [url] [name] - Add a new RSS feed\n"+
			"/list - List all configured feeds\n"+
			"/remove [url] - Remove a feed\n"+
			"/check - Check feeds now\n"+
			"/reload - Reload feeds from file\n"+
			"/ping - Show monitor status\n\n"+
			"Note: Admin privileges are required for these commands.")
}

func (b *Bot) handleAdd(ctx context.Context, m *telegram.Message, text string) {
	args := strings.SplitN(text, " ", 3)
	if len(args) < 3 {
		b.reply(ctx, m,
			"⚠️ Usage: /add [url] [name]\n"+
				"Example: /add https://example.com/rss 'Example Blog'")
		return
	}
	url := strings.TrimSpace(args[1])
	name := strings.TrimSpace(args[2])

	if !urlPattern.MatchString(url) {
		b.reply(ctx, m, "⛔ Invalid URL format. Please provide a valid RSS feed URL.")
		return
	}

	// 添加前确认确实是可解析的订阅源
	_, items, err := b.validator.Validate(ctx, url)
	if err != nil {
		var fe *rss.FetchError
		switch {
		case errors.As(err, &fe) && fe.Kind == rss.KindHTTPStatus:
			b.reply(ctx, m, fmt.Sprintf("⛔ Failed to fetch the feed: %v", fe.Err))
		case errors.As(err, &fe) && fe.Kind == rss.KindMalformedFeed:
			b.reply(ctx, m, fmt.Sprintf("⛔ Invalid RSS feed: %v", fe.Err))
		default:
			b.reply(ctx, m, fmt.Sprintf("⛔ Error validating feed: %v", err))
		}
		return
	}
	if items == 0 {
		b.reply(ctx, m, "⚠️ Warning: This feed has no entries. It might not be valid.")
	}

	if err := b.store.Add(url, name); err != nil {
		logger.Warnf("[bot] 添加订阅源失败: %v", err)
		b.reply(ctx, m, "⛔ Failed to add feed. It might already exist.")
		return
	}
	logger.Infof("[bot] 已添加订阅源: %s (%s)", name, url)
	b.reply(ctx, m, fmt.Sprintf("✅ Successfully added feed: %s", name))
}

func (b *Bot) handleList(ctx context.Context, m *telegram.Message) {
	feeds := b.store.List()
	if len(feeds) == 0 {
		b.reply(ctx, m, "No RSS feeds configured.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 Configured RSS Feeds:\n\n")
	for i, f := range feeds {
		fmt.Fprintf(&sb, "%d. <b>%s</b>\n   URL: %s\n\n", i+1, f.Name, f.URL)
	}
	b.reply(ctx, m, sb.String())
}

func (b *Bot) handleRemove(ctx context.Context, m *telegram.Message, text string) {
	args := strings.SplitN(text, " ", 2)
	if len(args) < 2 || strings.TrimSpace(args[1]) == "" {
		b.reply(ctx, m,
			"⚠️ Usage: /remove [url]\n"+
				"Example: /remove https://example.com/rss\n\n"+
				"Use /list to see all feeds and their URLs.")
		return
	}
	url := strings.TrimSpace(args[1])

	if err := b.store.Remove(url); err != nil {
		logger.Warnf("[bot] 删除订阅源失败: %v", err)
		b.reply(ctx, m, "⛔ Failed to remove feed. URL not found.")
		return
	}
	logger.Infof("[bot] 已删除订阅源: %s", url)
	b.reply(ctx, m, "✅ Successfully removed feed.")
}

func (b *Bot) handleCheck(ctx context.Context, m *telegram.Message) {
	b.reply(ctx, m, "Checking feeds now...")
	if err := b.monitor.CheckAllFeeds(ctx); err != nil {
		b.reply(ctx, m, fmt.Sprintf("Error checking feeds: %v", err))
		return
	}
	b.reply(ctx, m, "Finished checking feeds.")
}

func (b *Bot) handleReload(ctx context.Context, m *telegram.Message) {
	if err := b.store.Reload(); err != nil {
		b.reply(ctx, m, fmt.Sprintf("⛔ Failed to reload feeds: %v", err))
		return
	}
	b.reply(ctx, m, fmt.Sprintf("🔄 Reloaded %d feeds from file.", b.store.Len()))
}

func (b *Bot) handlePing(ctx context.Context, m *telegram.Message) {
	var sb strings.Builder
	sb.WriteString("🏓 Pong!\n")
	fmt.Fprintf(&sb, "Monitor running: %t\n", b.monitor.Running())
	fmt.Fprintf(&sb, "Feeds: %d", b.store.Len())
	if b.history != nil {
		if n, err := b.history.Count(); err == nil {
			fmt.Fprintf(&sb, "\nArticles posted: %d", n)
		}
	}
	b.reply(ctx, m, sb.String())
}
