// Package telegram 提供极简的 Telegram Bot API 客户端和消息排版。
// 只封装本服务用到的方法: sendMessage / getUpdates / getMe / getChat。
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// Client Telegram Bot API 客户端。
type Client struct {
	token   string
	apiBase string
	client  *http.Client
}

// NewClient 创建客户端。超时要大于 getUpdates 长轮询的等待时间。
func NewClient(token string) *Client {
	return &Client{
		token:   token,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: 40 * time.Second},
	}
}

// User Bot API 用户对象。
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Chat Bot API 会话对象。
type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Username string `json:"username"`
}

// Message Bot API 消息对象。
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// Update Bot API 更新对象。
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// apiResponse Bot API 统一响应信封。
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// call 发起一次 Bot API 调用，成功时把 result 反序列化到 out。
func (c *Client) call(ctx context.Context, method string, params url.Values, out interface{}) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("请求 %s 失败: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取 %s 响应失败: %w", method, err)
	}

	var r apiResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return fmt.Errorf("解析 %s 响应失败: %w", method, err)
	}
	if !r.OK {
		return fmt.Errorf("%s 返回错误: %s (code=%d)", method, r.Description, r.ErrorCode)
	}
	if out != nil {
		if err := json.Unmarshal(r.Result, out); err != nil {
			return fmt.Errorf("解析 %s result 失败: %w", method, err)
		}
	}
	return nil
}

// GetMe 返回机器人自身信息，用于启动时校验 token。
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, "getMe", url.Values{}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetChat 返回会话信息，用于启动时确认频道可达。
func (c *Client) GetChat(ctx context.Context, chatID string) (*Chat, error) {
	params := url.Values{}
	params.Set("chat_id", NormalizeChatID(chatID))
	var chat Chat
	if err := c.call(ctx, "getChat", params, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// SendMessage 向指定会话发送 HTML 格式消息。
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	params := url.Values{}
	params.Set("chat_id", NormalizeChatID(chatID))
	params.Set("text", text)
	params.Set("parse_mode", "HTML")
	return c.call(ctx, "sendMessage", params, nil)
}

// GetUpdates 长轮询获取更新。offset 为上次处理过的最大 update_id + 1。
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(timeoutSec))
	params.Set("allowed_updates", `["message"]`)
	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// NormalizeChatID 规范化会话标识: @handle 和（可带负号的）纯数字 ID
// 原样保留，其他情况补上 @ 前缀。
func NormalizeChatID(id string) string {
	if strings.HasPrefix(id, "@") || isNumericID(id) {
		return id
	}
	return "@" + id
}

func isNumericID(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
