package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/iabetor/feedbot/internal/bot"
	"github.com/iabetor/feedbot/internal/config"
	"github.com/iabetor/feedbot/internal/history"
	"github.com/iabetor/feedbot/internal/logger"
	"github.com/iabetor/feedbot/internal/monitor"
	"github.com/iabetor/feedbot/internal/rss"
	"github.com/iabetor/feedbot/internal/telegram"
)

func main() {
	configPath := flag.String("config", "configs/feedbot.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "配置校验失败: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infof("[main] FeedBot 启动中 (channel=%s, interval=%ds)",
		cfg.Telegram.ChannelID, cfg.Monitor.CheckInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听系统信号，优雅关闭
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Infof("[main] 收到信号 %v，正在关闭...", sig)
		cancel()
	}()

	store, err := rss.NewFeedStore(cfg.DataDir)
	if err != nil {
		logger.Errorf("[main] 初始化订阅源存储失败: %v", err)
		os.Exit(1)
	}
	logger.Infof("[main] 已加载 %d 条订阅源", store.Len())

	tg := telegram.NewClient(cfg.Telegram.Token)

	// 启动探活: token 有效且频道可达，否则直接退出
	me, err := tg.GetMe(ctx)
	if err != nil {
		logger.Errorf("[main] 校验机器人 token 失败: %v", err)
		os.Exit(1)
	}
	chat, err := tg.GetChat(ctx, cfg.Telegram.ChannelID)
	if err != nil {
		logger.Errorf("[main] 无法访问频道 %s: %v", cfg.Telegram.ChannelID, err)
		logger.Errorf("[main] 请确认机器人已被添加为频道管理员")
		os.Exit(1)
	}
	logger.Infof("[main] 机器人 @%s 已连接频道: %s", me.Username, chat.Title)

	// 推送历史是旁路功能，打开失败只降级不退出
	var hist *history.Store
	if h, err := history.Open(filepath.Join(cfg.DataDir, "feedbot.db")); err != nil {
		logger.Warnf("[main] 打开推送历史失败（将不记录历史）: %v", err)
	} else {
		hist = h
		defer hist.Close()
	}

	fetcher := rss.NewFetcher(time.Duration(cfg.Monitor.FetchTimeout) * time.Second)
	ledger := monitor.NewPostedLedger()

	monCfg := monitor.Config{
		Store:      store,
		Fetcher:    fetcher,
		Sender:     tg,
		Ledger:     ledger,
		ChannelID:  cfg.Telegram.ChannelID,
		Interval:   time.Duration(cfg.Monitor.CheckInterval) * time.Second,
		RetryDelay: time.Duration(cfg.Monitor.RetryDelay) * time.Second,
		PostDelay:  time.Duration(cfg.Monitor.PostDelay) * time.Second,
	}
	if hist != nil {
		monCfg.History = hist
	}
	mon := monitor.New(monCfg)
	mon.Start()

	botCfg := bot.Config{
		API:       tg,
		Store:     store,
		Validator: fetcher,
		Monitor:   mon,
		AdminIDs:  cfg.Telegram.AdminIDs,
	}
	if hist != nil {
		botCfg.History = hist
	}
	b := bot.New(botCfg)

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("[main] 命令循环退出: %v", err)
	}

	// 先停轮询，让进行中的一轮自然结束
	mon.Stop()
	logger.Info("[main] FeedBot 已停止")
}
