// Package history 把成功推送的文章落到 SQLite，供状态查询。
// 只是旁路记录: 去重始终以内存账本为准，落库失败不影响推送。
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iabetor/feedbot/internal/logger"
	"github.com/iabetor/feedbot/internal/rss"
	_ "modernc.org/sqlite"
)

// Store 推送历史存储。
type Store struct {
	db   *sql.DB
	path string
}

// Article 一条推送记录。
type Article struct {
	EntryID  string
	FeedName string
	Title    string
	Link     string
	PostedAt time.Time
}

// Open 打开或创建历史数据库并执行建表。
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	// WAL 模式，写入不阻塞状态查询
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置 WAL 模式失败: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Infof("[history] 数据库已打开: %s", dbPath)
	return &Store{db: db, path: dbPath}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `CREATE TABLE IF NOT EXISTS posted_articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entry_id TEXT NOT NULL,
		feed_name TEXT NOT NULL,
		title TEXT DEFAULT '',
		link TEXT DEFAULT '',
		posted_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("建表失败: %w", err)
	}
	return nil
}

// Record 追加一条推送记录。
func (s *Store) Record(e *rss.Entry, feedName string) error {
	_, err := s.db.Exec(
		`INSERT INTO posted_articles (entry_id, feed_name, title, link) VALUES (?, ?, ?, ?)`,
		e.ID, feedName, e.Title, e.Link,
	)
	if err != nil {
		return fmt.Errorf("写入推送历史失败: %w", err)
	}
	return nil
}

// Count 返回累计推送条数。
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM posted_articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("查询推送历史失败: %w", err)
	}
	return n, nil
}

// Recent 返回最近的 limit 条推送记录，新的在前。
func (s *Store) Recent(limit int) ([]Article, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT entry_id, feed_name, title, link, posted_at
		 FROM posted_articles ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询推送历史失败: %w", err)
	}
	defer rows.Close()

	var result []Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.EntryID, &a.FeedName, &a.Title, &a.Link, &a.PostedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// Close 关闭数据库。
func (s *Store) Close() error {
	return s.db.Close()
}
