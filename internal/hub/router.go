package hub

import "github.com/erilali/marketrelay/internal/message"

// Subscribed reports whether a subscription list accepts subject: an exact,
// case-sensitive match or the wildcard token. No prefix or glob matching.
func Subscribed(subscriptions []string, subject string) bool {
	for _, s := range subscriptions {
		if s == subject || s == message.Wildcard {
			return true
		}
	}
	return false
}
