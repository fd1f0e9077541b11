package v1

import (
	"fmt"

	"github.com/multiplay/go-slack/chat"
	"github.com/multiplay/go-slack/webhook"
)

// SlackMessageService is a service sending messages to a Slack channel
type SlackMessageService struct {
	WebHookURL string
	Stage      string
}

// Enabled reports whether a webhook is configured
func (slackMessageService *SlackMessageService) Enabled() bool {
	return slackMessageService != nil && len(slackMessageService.WebHookURL) > 0
}

// SendMessage send a message to channel
func (slackMessageService *SlackMessageService) SendMessage(message string) error {
	if !slackMessageService.Enabled() {
		return nil
	}

	c := webhook.New(slackMessageService.WebHookURL)
	m := &chat.Message{Text: message}
	_, err := m.Send(c)
	return err
}

// SendMessageFormat send a format message to channel, prefixed with the stage
func (slackMessageService *SlackMessageService) SendMessageFormat(format string, args ...interface{}) error {
	if !slackMessageService.Enabled() {
		return nil
	}

	text := fmt.Sprintf("[%s] ", slackMessageService.Stage)
	text += fmt.Sprintf(format, args...)

	return slackMessageService.SendMessage(text)
}
