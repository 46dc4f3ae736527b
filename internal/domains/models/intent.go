package models

import "strings"

// Intent is the protocol action a transaction message encodes.
type Intent string

const (
	IntentRegister Intent = "register"
	IntentDelete   Intent = "delete"
)

const (
	registerPrefix = "register_domain:"
	deletePrefix   = "delete_domain:"
)

// Message renders the exact intent message a transaction must carry.
func (i Intent) Message(domain string) string {
	switch i {
	case IntentRegister:
		return registerPrefix + domain + Suffix
	case IntentDelete:
		return deletePrefix + domain + Suffix
	default:
		return ""
	}
}

// ParseIntent decodes a transaction message. The returned domain is the raw
// name between prefix and suffix; callers validate it. Messages are matched
// case-sensitively, exactly as verification does.
func ParseIntent(message string) (Intent, string, bool) {
	var intent Intent
	var rest string
	switch {
	case strings.HasPrefix(message, registerPrefix):
		intent, rest = IntentRegister, strings.TrimPrefix(message, registerPrefix)
	case strings.HasPrefix(message, deletePrefix):
		intent, rest = IntentDelete, strings.TrimPrefix(message, deletePrefix)
	default:
		return "", "", false
	}
	if !strings.HasSuffix(rest, Suffix) {
		return "", "", false
	}
	domain := strings.TrimSuffix(rest, Suffix)
	if domain == "" {
		return "", "", false
	}
	return intent, domain, true
}

// DedupeKey identifies one applied (intent, tx) pair.
func DedupeKey(intent Intent, txHash string) string {
	return string(intent) + ":" + txHash
}
