package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/iabetor/feedbot/internal/rss"
)

// maxDescriptionLen 摘要最大字符数，超出部分截断。
const maxDescriptionLen = 200

// FormatEntry 把一条文章排版成推送到频道的 HTML 消息。
// 布局固定: 订阅源名称行（带可选日期）、标题行、摘要、阅读链接。
func FormatEntry(e *rss.Entry, feedName string) string {
	var dateLine string
	// 优先 published，回退 updated，两者都没有就省略日期行
	if e.Published != nil {
		dateLine = "\n📅 " + e.Published.Format("2006-01-02 15:04")
	} else if e.Updated != nil {
		dateLine = "\n📅 " + e.Updated.Format("2006-01-02 15:04")
	}

	title := e.Title
	if title == "" {
		title = "No title"
	}

	description := EscapeText(StripHTML(e.Description))
	description = truncate(description, maxDescriptionLen)

	return fmt.Sprintf(
		"📢 <b>%s</b>%s\n\n<b>%s</b>\n\n%s\n\n<a href='%s'>Read more</a>",
		feedName, dateLine, title, description, e.Link,
	)
}

// StripHTML 剥离标记，只保留纯文本，片段之间以空格连接，连续空白合并。
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// & 必须最先替换，避免对 &lt; 等结果的二次转义；
// strings.Replacer 单遍执行天然满足这一点。
var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeText 转义在消息 HTML 里有结构意义的字符。
func EscapeText(s string) string {
	return escaper.Replace(s)
}

// truncate 截断字符串到指定字符数（按 UTF-8 字符计算），截断时追加省略号。
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}
