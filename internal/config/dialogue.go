package config

import "time"

// DialogueConfig controls chat session persistence.
type DialogueConfig struct {
	TTL    time.Duration
	Prefix string
}

func LoadDialogueConfig() DialogueConfig {
	ttl := envDur("CHAT_SESSION_TTL", 30*time.Minute)
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return DialogueConfig{TTL: ttl, Prefix: envStr("CHAT_SESSION_PREFIX", "chat:session")}
}
