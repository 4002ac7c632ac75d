package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"PrismPipeline/internal/ports"
)

const (
	telegramAPI      = "https://api.telegram.org"
	telegramMaxChars = 4096
	truncatedMarker  = "\n(digest truncated)"
)

// Telegram sends digests to a Telegram chat via bot API.
type Telegram struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Telegram)(nil)

// NewTelegram registers bot token and chat identifier.
func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		apiBase:  telegramAPI,
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// PublishDigest posts the digest as a Markdown message.
func (n *Telegram) PublishDigest(ctx context.Context, digest string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram: %w", ErrMisconfigured)
	}

	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", fitMessage(digest, telegramMaxChars))
	form.Set("parse_mode", "Markdown")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: send message: %s", resp.Status)
	}
	return nil
}

// fitMessage cuts digest to at most limit runes. The cut falls on a line
// boundary so no Markdown entity (bold run, link) is left open; a single
// oversized line is dropped rather than split.
func fitMessage(digest string, limit int) string {
	runes := []rune(digest)
	if len(runes) <= limit {
		return digest
	}

	budget := limit - len([]rune(truncatedMarker))
	if budget <= 0 {
		return string(runes[:limit])
	}
	head := string(runes[:budget])
	if i := strings.LastIndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	} else {
		head = ""
	}
	return strings.TrimRight(head, "\n") + truncatedMarker
}
