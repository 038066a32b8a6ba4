package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	checks := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Monitor.CheckInterval", cfg.Monitor.CheckInterval, 300},
		{"Monitor.RetryDelay", cfg.Monitor.RetryDelay, 60},
		{"Monitor.PostDelay", cfg.Monitor.PostDelay, 2},
		{"Monitor.FetchTimeout", cfg.Monitor.FetchTimeout, 30},
		{"DataDir", cfg.DataDir, "data"},
		{"Log.Level", cfg.Log.Level, "info"},
	}

	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestSetDefaults_DoesNotOverride(t *testing.T) {
	cfg := &Config{
		Monitor: MonitorConfig{CheckInterval: 120, RetryDelay: 30, PostDelay: 5, FetchTimeout: 10},
		DataDir: "/var/lib/feedbot",
		Log:     LogConfig{Level: "debug"},
	}
	setDefaults(cfg)

	if cfg.Monitor.CheckInterval != 120 {
		t.Errorf("CheckInterval 不应被覆盖: got %d", cfg.Monitor.CheckInterval)
	}
	if cfg.DataDir != "/var/lib/feedbot" {
		t.Errorf("DataDir 不应被覆盖: got %s", cfg.DataDir)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level 不应被覆盖: got %s", cfg.Log.Level)
	}
}

func TestLoad_FileWithEnvExpansion(t *testing.T) {
	t.Setenv("FEEDBOT_TEST_TOKEN", "123:abc")
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("CHANNEL_ID", "")
	t.Setenv("ADMIN_IDS", "")
	t.Setenv("CHECK_INTERVAL", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "feedbot.yaml")
	content := `
telegram:
  token: ${FEEDBOT_TEST_TOKEN}
  channel_id: "@mychannel"
  admin_ids: [100, 200]
monitor:
  check_interval: 60
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入测试配置失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("Token 环境变量展开失败: %s", cfg.Telegram.Token)
	}
	if cfg.Telegram.ChannelID != "@mychannel" {
		t.Errorf("ChannelID 不匹配: %s", cfg.Telegram.ChannelID)
	}
	if len(cfg.Telegram.AdminIDs) != 2 || cfg.Telegram.AdminIDs[0] != 100 {
		t.Errorf("AdminIDs 不匹配: %v", cfg.Telegram.AdminIDs)
	}
	if cfg.Monitor.CheckInterval != 60 {
		t.Errorf("CheckInterval 不匹配: %d", cfg.Monitor.CheckInterval)
	}
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("CHANNEL_ID", "mychannel")
	t.Setenv("ADMIN_IDS", "1, 2,3")
	t.Setenv("CHECK_INTERVAL", "90")

	cfg, err := Load(filepath.Join(t.TempDir(), "not-exist.yaml"))
	if err != nil {
		t.Fatalf("缺失配置文件不应报错: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Errorf("Token 不匹配: %s", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.AdminIDs) != 3 || cfg.Telegram.AdminIDs[2] != 3 {
		t.Errorf("AdminIDs 解析错误: %v", cfg.Telegram.AdminIDs)
	}
	if cfg.Monitor.CheckInterval != 90 {
		t.Errorf("CheckInterval 不匹配: %d", cfg.Monitor.CheckInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("完整配置校验不应失败: %v", err)
	}
}

func TestLoad_InvalidAdminIDs(t *testing.T) {
	t.Setenv("ADMIN_IDS", "1,abc")

	if _, err := Load(filepath.Join(t.TempDir(), "not-exist.yaml")); err == nil {
		t.Fatal("无效的 ADMIN_IDS 应返回错误")
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	if err := cfg.Validate(); err == nil {
		t.Fatal("缺少必填项校验应失败")
	}

	cfg.Telegram.Token = "t"
	cfg.Telegram.ChannelID = "c"
	if err := cfg.Validate(); err == nil {
		t.Fatal("缺少 admin_ids 校验应失败")
	}

	cfg.Telegram.AdminIDs = []int64{1}
	if err := cfg.Validate(); err != nil {
		t.Errorf("完整配置校验不应失败: %v", err)
	}
}
