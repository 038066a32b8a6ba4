// Package config 负责加载和校验 FeedBot 配置。
//
// 配置来源按优先级从低到高: 配置文件默认值 < YAML 配置文件 < 环境变量
// (BOT_TOKEN / CHANNEL_ID / ADMIN_IDS / CHECK_INTERVAL)。
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 是 FeedBot 的顶层配置结构。
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	DataDir  string         `yaml:"data_dir"`
	Log      LogConfig      `yaml:"log"`
}

// TelegramConfig Telegram 机器人配置。
type TelegramConfig struct {
	// Token 机器人凭据（BotFather 下发）。
	Token string `yaml:"token"`
	// ChannelID 推送目标频道，@handle 或数字 ID。
	ChannelID string `yaml:"channel_id"`
	// AdminIDs 允许执行管理命令的用户 ID 白名单。
	AdminIDs []int64 `yaml:"admin_ids"`
}

// MonitorConfig 订阅源轮询配置。
type MonitorConfig struct {
	// CheckInterval 两轮检查之间的间隔（秒）。
	CheckInterval int `yaml:"check_interval"`
	// RetryDelay 某轮检查整体失败后的重试间隔（秒）。
	RetryDelay int `yaml:"retry_delay"`
	// PostDelay 每次成功推送后的停顿（秒），避免对 Telegram 突发请求。
	PostDelay int `yaml:"post_delay"`
	// FetchTimeout 单个订阅源抓取超时（秒）。
	FetchTimeout int `yaml:"fetch_timeout"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// Load 读取配置文件并叠加环境变量。
// 配置文件不存在不算错误（全部配置可由环境变量提供）。
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}
	if err == nil {
		// 展开环境变量，如 ${BOT_TOKEN}
		expanded := os.Expand(string(data), func(key string) string {
			return os.Getenv(key)
		})
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	setDefaults(cfg)
	return cfg, nil
}

// applyEnv 用环境变量覆盖配置文件的值。
func applyEnv(cfg *Config) error {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("CHANNEL_ID"); v != "" {
		cfg.Telegram.ChannelID = v
	}
	if v := os.Getenv("ADMIN_IDS"); v != "" {
		ids, err := parseAdminIDs(v)
		if err != nil {
			return fmt.Errorf("解析 ADMIN_IDS 失败: %w", err)
		}
		cfg.Telegram.AdminIDs = ids
	}
	if v := os.Getenv("CHECK_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("解析 CHECK_INTERVAL 失败: %w", err)
		}
		cfg.Monitor.CheckInterval = n
	}
	return nil
}

// parseAdminIDs 解析逗号分隔的用户 ID 列表。
func parseAdminIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("无效的用户 ID %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func setDefaults(cfg *Config) {
	if cfg.Monitor.CheckInterval == 0 {
		cfg.Monitor.CheckInterval = 300
	}
	if cfg.Monitor.RetryDelay == 0 {
		cfg.Monitor.RetryDelay = 60
	}
	if cfg.Monitor.PostDelay == 0 {
		cfg.Monitor.PostDelay = 2
	}
	if cfg.Monitor.FetchTimeout == 0 {
		cfg.Monitor.FetchTimeout = 30
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate 检查必填项。缺少任何一项都应阻止启动。
func (c *Config) Validate() error {
	var missing []string
	if c.Telegram.Token == "" {
		missing = append(missing, "telegram.token (BOT_TOKEN)")
	}
	if c.Telegram.ChannelID == "" {
		missing = append(missing, "telegram.channel_id (CHANNEL_ID)")
	}
	if len(c.Telegram.AdminIDs) == 0 {
		missing = append(missing, "telegram.admin_ids (ADMIN_IDS)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("缺少必填配置: %s", strings.Join(missing, ", "))
	}
	if c.Monitor.CheckInterval < 0 {
		return fmt.Errorf("check_interval 不能为负数: %d", c.Monitor.CheckInterval)
	}
	return nil
}
