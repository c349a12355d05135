package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"
)

// LogNotifier は通知を標準ログへ出力します。
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier は LogNotifier を生成します。logger が nil なら標準ロガーを使います。
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, message string) error {
	n.logger.Printf("notice: %s", strings.ReplaceAll(message, "\n\n", " | "))
	return nil
}

// SlackPoster は slack.Client のうち通知に使う部分です。
type SlackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier は Slack チャンネルへ通知を投稿します。
type SlackNotifier struct {
	api     SlackPoster
	channel string
}

// NewSlackNotifier は SlackNotifier を生成します。
func NewSlackNotifier(api SlackPoster, channel string) *SlackNotifier {
	return &SlackNotifier{api: api, channel: channel}
}

func (n *SlackNotifier) Notify(ctx context.Context, message string) error {
	if _, _, err := n.api.PostMessageContext(ctx, n.channel, slack.MsgOptionText(message, false)); err != nil {
		return fmt.Errorf("notify: slack post: %w", err)
	}
	return nil
}

// Multi は複数の通知先へ順に送ります。失敗があっても残りの通知先へは送ります。
type Multi []interface {
	Notify(ctx context.Context, message string) error
}

func (m Multi) Notify(ctx context.Context, message string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
