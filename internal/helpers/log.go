package helpers

import (
	"encoding/json"
	"fmt"

	services "bitbucket.org/calmisland/playstore-verifier/internal/services/v1"
	log "github.com/sirupsen/logrus"
)

// LogFormat logs a message and mirrors it, with the logger fields, to the payment Slack channel
func LogFormat(slack *services.SlackMessageService, contextLogger *log.Entry, format string, args ...interface{}) {
	contextLogger.Infof(format, args...)

	if !slack.Enabled() {
		return
	}

	jsonMap := make(map[string]interface{}, len(contextLogger.Data)+2)
	for k, v := range contextLogger.Data {
		jsonMap[k] = v
	}
	jsonMap["env"] = slack.Stage
	jsonMap["message"] = fmt.Sprintf(format, args...)

	jsonObj, err := json.Marshal(jsonMap)
	if err != nil {
		contextLogger.Errorf("JSON marshalling process failure for a slack message")
		return
	}

	if err := slack.SendMessage(string(jsonObj)); err != nil {
		contextLogger.WithError(err).Warn("Failed to send a slack message")
	}
}
