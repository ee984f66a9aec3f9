package netwatch

import (
	"regexp"
	"strings"
)

// Key is a normalized entity reference pulled out of backend traffic. The
// mail client talks to its backends with URLs that embed the same thread,
// message and account identifiers the UI object graph uses, so watching
// traffic is a cheap way to confirm which entities a UI action touched.
type Key struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Key types produced by this package.
const (
	KeyThread  = "thread_id"
	KeyMessage = "message_id"
	KeyDraft   = "draft_id"
	KeyAccount = "account_email"
	KeyLabel   = "label_id"
)

var (
	threadPattern  = regexp.MustCompile(`(?i)\b(?:thread|conversation)s?(?:[/=]|%2f)(thread-[a-z]:[0-9a-z]+|[0-9a-f]{10,32})`)
	messagePattern = regexp.MustCompile(`(?i)\bmessages?(?:[/=]|%2f)(msg-[a-z]:[0-9a-z]+|[0-9a-f]{10,32})`)
	draftPattern   = regexp.MustCompile(`(?i)\bdrafts?(?:[/=]|%2f)(draft-[0-9a-z]+|r?-?[0-9]{8,20})`)
	labelPattern   = regexp.MustCompile(`(?i)\blabel(?:_?ids?)?(?:[/=]|%2f)([a-z0-9_]{2,40})`)
	accountPattern = regexp.MustCompile(`(?i)(?:[/=?&]|%2f)(?:u|user|account|mailbox(?:es)?|authuser)(?:[/=]|%2f|%40)?((?:[a-z0-9._%+\-]+)(?:@|%40)[a-z0-9.\-]+\.[a-z]{2,})`)
)

// FromURL extracts normalized entity keys from one backend request URL.
func FromURL(url string) []Key {
	raw := strings.TrimSpace(url)
	if raw == "" {
		return nil
	}

	keys := make([]Key, 0, 4)
	for _, match := range threadPattern.FindAllStringSubmatch(raw, -1) {
		if value := normalizeValue(match[1]); value != "" {
			keys = append(keys, Key{Type: KeyThread, Value: value})
		}
	}
	for _, match := range messagePattern.FindAllStringSubmatch(raw, -1) {
		if value := normalizeValue(match[1]); value != "" {
			keys = append(keys, Key{Type: KeyMessage, Value: value})
		}
	}
	for _, match := range draftPattern.FindAllStringSubmatch(raw, -1) {
		if value := normalizeValue(match[1]); value != "" {
			keys = append(keys, Key{Type: KeyDraft, Value: value})
		}
	}
	for _, match := range labelPattern.FindAllStringSubmatch(raw, -1) {
		if value := normalizeValue(match[1]); value != "" {
			keys = append(keys, Key{Type: KeyLabel, Value: value})
		}
	}
	for _, match := range accountPattern.FindAllStringSubmatch(raw, -1) {
		if value := normalizeEmail(match[1]); value != "" {
			keys = append(keys, Key{Type: KeyAccount, Value: value})
		}
	}

	return dedupe(keys)
}

func normalizeValue(value string) string {
	normalized := strings.TrimSpace(strings.ToLower(value))
	normalized = strings.Trim(normalized, "\"'`")
	normalized = strings.TrimRight(normalized, ".,;:)]}")
	return normalized
}

func normalizeEmail(value string) string {
	normalized := normalizeValue(value)
	normalized = strings.ReplaceAll(normalized, "%40", "@")
	if !strings.Contains(normalized, "@") {
		return ""
	}
	return normalized
}

func dedupe(keys []Key) []Key {
	if len(keys) <= 1 {
		return keys
	}

	seen := make(map[string]struct{}, len(keys))
	uniq := make([]Key, 0, len(keys))
	for _, key := range keys {
		if key.Type == "" || key.Value == "" {
			continue
		}
		token := key.Type + ":" + key.Value
		if _, exists := seen[token]; exists {
			continue
		}
		seen[token] = struct{}{}
		uniq = append(uniq, key)
	}
	return uniq
}
