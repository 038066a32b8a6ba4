package rss

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/iabetor/feedbot/internal/logger"
)

// FeedStore 订阅源注册表，内存列表 + JSON 文件写透持久化。
// 文件内容是 {url, name} 记录的数组，可以手工编辑后通过 Reload 重新加载。
// 所有方法都可以在监控循环运行期间并发调用。
type FeedStore struct {
	mu       sync.RWMutex
	filePath string
	feeds    []FeedConfig
}

// NewFeedStore 创建订阅源存储并加载已有数据。
// 文件不存在视为空注册表；文件损坏记录日志后同样视为空，不阻止启动。
func NewFeedStore(dataDir string) (*FeedStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	s := &FeedStore{
		filePath: filepath.Join(dataDir, "rss_feeds.json"),
	}
	if err := s.load(); err != nil {
		logger.Warnf("[rss] 加载订阅源数据失败（将使用空列表）: %v", err)
		s.feeds = make([]FeedConfig, 0)
	}
	return s, nil
}

func (s *FeedStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.feeds = make([]FeedConfig, 0)
			return nil
		}
		return err
	}
	var feeds []FeedConfig
	if err := json.Unmarshal(data, &feeds); err != nil {
		return err
	}
	s.feeds = feeds
	return nil
}

func (s *FeedStore) save() error {
	data, err := json.MarshalIndent(s.feeds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath, data, 0644)
}

// Add 添加订阅源。URL 已存在或持久化失败时返回错误。
// 持久化失败会回滚内存状态，保证磁盘和内存一致。
func (s *FeedStore) Add(url, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.feeds {
		if f.URL == url {
			return fmt.Errorf("该订阅源已存在: %s", f.Name)
		}
	}

	s.feeds = append(s.feeds, FeedConfig{URL: url, Name: name})
	if err := s.save(); err != nil {
		s.feeds = s.feeds[:len(s.feeds)-1]
		return fmt.Errorf("保存订阅源失败: %w", err)
	}
	return nil
}

// Remove 按 URL 删除订阅源。URL 不存在或持久化失败时返回错误，
// 持久化失败不会应用删除。
func (s *FeedStore) Remove(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.feeds {
		if f.URL == url {
			removed := f
			s.feeds = append(s.feeds[:i], s.feeds[i+1:]...)
			if err := s.save(); err != nil {
				// 回滚：插回原位置
				s.feeds = append(s.feeds[:i], append([]FeedConfig{removed}, s.feeds[i:]...)...)
				return fmt.Errorf("保存订阅源失败: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("未找到订阅源: %s", url)
}

// List 按插入顺序返回所有订阅源的副本。
func (s *FeedStore) List() []FeedConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]FeedConfig, len(s.feeds))
	copy(result, s.feeds)
	return result
}

// Len 返回订阅源数量。
func (s *FeedStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.feeds)
}

// Reload 丢弃内存状态，重新读取持久化文件，用于接收外部手工编辑。
// 文件损坏时按空注册表处理；文件不可读时保留原有内存状态并返回错误。
func (s *FeedStore) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.feeds = make([]FeedConfig, 0)
			return nil
		}
		return fmt.Errorf("读取订阅源文件失败: %w", err)
	}
	var feeds []FeedConfig
	if err := json.Unmarshal(data, &feeds); err != nil {
		logger.Warnf("[rss] 订阅源文件损坏（按空列表处理）: %v", err)
		s.feeds = make([]FeedConfig, 0)
		return nil
	}
	s.feeds = feeds
	logger.Infof("[rss] 已重新加载 %d 条订阅源", len(s.feeds))
	return nil
}
