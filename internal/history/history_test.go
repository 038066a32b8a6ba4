package history

import (
	"path/filepath"
	"testing"

	"github.com/iabetor/feedbot/internal/rss"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "feedbot.db"))
	if err != nil {
		t.Fatalf("Open 失败: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndCount(t *testing.T) {
	s := openTestStore(t)

	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count 失败: %v", err)
	}
	if n != 0 {
		t.Errorf("空库计数应为 0: %d", n)
	}

	entries := []*rss.Entry{
		{ID: "e1", Title: "First", Link: "https://example.com/1"},
		{ID: "e2", Title: "Second", Link: "https://example.com/2"},
	}
	for _, e := range entries {
		if err := s.Record(e, "Blog"); err != nil {
			t.Fatalf("Record 失败: %v", err)
		}
	}

	n, _ = s.Count()
	if n != 2 {
		t.Errorf("计数应为 2: %d", n)
	}
}

func TestRecent(t *testing.T) {
	s := openTestStore(t)

	for _, id := range []string{"e1", "e2", "e3"} {
		_ = s.Record(&rss.Entry{ID: id, Title: "T-" + id, Link: "https://example.com/" + id}, "Blog")
	}

	recent, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent 失败: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("期望 2 条，得到 %d", len(recent))
	}
	// 新的在前
	if recent[0].EntryID != "e3" || recent[1].EntryID != "e2" {
		t.Errorf("排序不对: %v", recent)
	}
	if recent[0].FeedName != "Blog" || recent[0].PostedAt.IsZero() {
		t.Errorf("字段缺失: %+v", recent[0])
	}
}

func TestOpenReusesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feedbot.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open 失败: %v", err)
	}
	_ = s1.Record(&rss.Entry{ID: "e1", Title: "T", Link: "l"}, "Blog")
	_ = s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("重新 Open 失败: %v", err)
	}
	defer s2.Close()
	n, _ := s2.Count()
	if n != 1 {
		t.Errorf("重开后应保留历史记录: %d", n)
	}
}
