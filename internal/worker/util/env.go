package util

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func Env(k, def string) string {
	return parsed(k, def, func(v string) (string, error) { return v, nil })
}

func MustEnv(k string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

// BoolEnv accepts anything strconv.ParseBool does.
func BoolEnv(k string, def bool) bool {
	return parsed(k, def, strconv.ParseBool)
}

func IntEnv(k string, def int) int {
	return parsed(k, def, strconv.Atoi)
}

// DurationEnv reads values like "500ms" or "2m".
func DurationEnv(k string, def time.Duration) time.Duration {
	return parsed(k, def, time.ParseDuration)
}

// parsed returns def when k is unset, blank or fails to parse.
func parsed[T any](k string, def T, parse func(string) (T, error)) T {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	out, err := parse(v)
	if err != nil {
		return def
	}
	return out
}
