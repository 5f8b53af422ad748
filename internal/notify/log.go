package notify

import "log"

// LogNotifier writes notifications to the service log. Used by the admin
// CLI and as the fallback when no delivery transport is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(userID uint, template string, msgContext map[string]interface{}) error {
	log.Printf("NOTIFY user=%d template=%s context=%v", userID, template, msgContext)
	return nil
}
