package logs

import "testing"

func TestLevelFromStringRecognizesAliases(t *testing.T) {
	cases := map[string]Level{
		"trace": LevelTrace, "TRC": LevelTrace,
		"debug": LevelDebug, "dbg": LevelDebug,
		"info": LevelInfo, "inf": LevelInfo,
		"warn": LevelWarn, "wrn": LevelWarn,
		"error": LevelError, "err": LevelError,
		"critical": LevelCritical, "crt": LevelCritical,
		"off": LevelOff,
	}
	for s, want := range cases {
		got, ok := LevelFromString(s)
		if !ok || got != want {
			t.Errorf("LevelFromString(%q) = %v, %v; want %v, true", s, got, ok, want)
		}
	}
}

func TestLevelFromStringUnknownDefaultsToInfo(t *testing.T) {
	got, ok := LevelFromString("nonsense")
	if ok {
		t.Fatal("expected ok=false for an unrecognized level string")
	}
	if got != LevelInfo {
		t.Fatalf("expected default LevelInfo, got %v", got)
	}
}

func TestLevelStringTags(t *testing.T) {
	cases := map[Level]string{
		LevelTrace: "TRC", LevelDebug: "DBG", LevelInfo: "INF",
		LevelWarn: "WRN", LevelError: "ERR", LevelCritical: "CRT",
		LevelOff: "OFF", Level(99): "OFF",
	}
	for l, want := range cases {
		if got := l.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", l, got, want)
		}
	}
}
