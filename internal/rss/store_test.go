package rss

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFeedStoreAddAndList(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFeedStore(dir)
	if err != nil {
		t.Fatalf("NewFeedStore 失败: %v", err)
	}

	// 空列表
	if feeds := store.List(); len(feeds) != 0 {
		t.Fatalf("期望空列表，得到 %d 条", len(feeds))
	}

	if err := store.Add("https://example.com/feed.xml", "Test Feed"); err != nil {
		t.Fatalf("Add 失败: %v", err)
	}
	if err := store.Add("https://example.org/atom.xml", "Another"); err != nil {
		t.Fatalf("Add 失败: %v", err)
	}

	feeds := store.List()
	if len(feeds) != 2 {
		t.Fatalf("期望 2 条，得到 %d 条", len(feeds))
	}
	// 保持插入顺序
	if feeds[0].Name != "Test Feed" || feeds[1].Name != "Another" {
		t.Errorf("顺序不匹配: %v", feeds)
	}
}

func TestFeedStoreAddDuplicate(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFeedStore(dir)
	if err != nil {
		t.Fatalf("NewFeedStore 失败: %v", err)
	}

	if err := store.Add("https://example.com/feed.xml", "Test"); err != nil {
		t.Fatalf("第一次 Add 失败: %v", err)
	}

	// 重复添加应失败且不改变状态
	if err := store.Add("https://example.com/feed.xml", "Other Name"); err == nil {
		t.Fatal("期望重复添加返回错误")
	}
	feeds := store.List()
	if len(feeds) != 1 || feeds[0].Name != "Test" {
		t.Errorf("重复添加后状态被改变: %v", feeds)
	}
}

func TestFeedStoreRemove(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFeedStore(dir)
	_ = store.Add("https://a.example/feed", "A")
	_ = store.Add("https://b.example/feed", "B")

	if err := store.Remove("https://a.example/feed"); err != nil {
		t.Fatalf("Remove 失败: %v", err)
	}
	feeds := store.List()
	if len(feeds) != 1 || feeds[0].Name != "B" {
		t.Errorf("删除后状态不对: %v", feeds)
	}

	// 删除不存在的应失败且不改变状态
	if err := store.Remove("https://c.example/feed"); err == nil {
		t.Fatal("删除不存在的应返回错误")
	}
	if len(store.List()) != 1 {
		t.Error("失败的删除不应改变状态")
	}
}

func TestFeedStorePersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store1, _ := NewFeedStore(dir)
	_ = store1.Add("https://example.com/feed", "Test")
	_ = store1.Add("https://example.org/feed", "Org")
	_ = store1.Remove("https://example.org/feed")

	// 确认文件存在
	if _, err := os.Stat(filepath.Join(dir, "rss_feeds.json")); err != nil {
		t.Fatalf("持久化文件不存在: %v", err)
	}

	// 任何成功的变更后 Reload 都得到同样的集合
	if err := store1.Reload(); err != nil {
		t.Fatalf("Reload 失败: %v", err)
	}
	feeds := store1.List()
	if len(feeds) != 1 || feeds[0].URL != "https://example.com/feed" {
		t.Errorf("Reload 后状态与变更前不一致: %v", feeds)
	}

	// 第二次创建，应加载已有数据
	store2, _ := NewFeedStore(dir)
	feeds = store2.List()
	if len(feeds) != 1 || feeds[0].Name != "Test" {
		t.Errorf("加载后状态不一致: %v", feeds)
	}
}

func TestFeedStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rss_feeds.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("写入损坏文件失败: %v", err)
	}

	// 损坏的文件按空注册表处理，不应报错
	store, err := NewFeedStore(dir)
	if err != nil {
		t.Fatalf("损坏文件不应阻止创建: %v", err)
	}
	if len(store.List()) != 0 {
		t.Error("损坏文件应视为空列表")
	}
}

func TestFeedStoreReloadExternalEdit(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFeedStore(dir)
	_ = store.Add("https://example.com/feed", "Old")

	// 模拟外部手工编辑
	edited := `[{"url": "https://edited.example/feed", "name": "Edited"}]`
	if err := os.WriteFile(filepath.Join(dir, "rss_feeds.json"), []byte(edited), 0644); err != nil {
		t.Fatalf("写入编辑内容失败: %v", err)
	}

	if err := store.Reload(); err != nil {
		t.Fatalf("Reload 失败: %v", err)
	}
	feeds := store.List()
	if len(feeds) != 1 || feeds[0].Name != "Edited" {
		t.Errorf("Reload 未读取外部编辑: %v", feeds)
	}
}

func TestFeedStoreAddRollbackOnSaveFailure(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFeedStore(dir)
	_ = store.Add("https://example.com/feed", "Kept")

	// 把持久化路径指向一个目录，迫使写入失败
	store.filePath = dir

	if err := store.Add("https://fail.example/feed", "Doomed"); err == nil {
		t.Fatal("写入失败时 Add 应返回错误")
	}
	feeds := store.List()
	if len(feeds) != 1 || feeds[0].Name != "Kept" {
		t.Errorf("写入失败后内存状态应回滚: %v", feeds)
	}

	if err := store.Remove("https://example.com/feed"); err == nil {
		t.Fatal("写入失败时 Remove 应返回错误")
	}
	if len(store.List()) != 1 {
		t.Error("写入失败的删除不应被应用")
	}
}
