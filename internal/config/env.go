package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// env is the shared lookup used by every LoadXxxConfig function.  Process
// environment wins over an optional config.yaml in the working directory.
var env = newEnv()

func newEnv() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	_ = v.ReadInConfig() // optional
	return v
}

func envStr(k, d string) string {
	env.SetDefault(k, d)
	return strings.TrimSpace(env.GetString(k))
}

func envBool(k string, d bool) bool {
	v := strings.TrimSpace(env.GetString(k))
	if v == "" {
		return d
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := strings.TrimSpace(env.GetString(k))
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := strings.TrimSpace(env.GetString(k))
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
