package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"debug":    zerolog.DebugLevel,
		" WARN ":   zerolog.WarnLevel,
		"nonsense": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, 期望 %v", in, got, want)
		}
	}
}

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger(Config{Level: "error", Output: "stderr"}, "taxtrail")
	if logger.GetLevel() != zerolog.ErrorLevel {
		t.Fatalf("日志级别错误: %v", logger.GetLevel())
	}
}

func TestComponentTagsEntries(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(zerolog.New(&buf), "rate_cache")
	logger.Info().Msg("refreshed")
	if !strings.Contains(buf.String(), `"component":"rate_cache"`) {
		t.Fatalf("缺少 component 字段: %s", buf.String())
	}
}
