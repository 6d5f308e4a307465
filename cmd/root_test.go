package cmd

import "testing"

func TestNormalizeLevel(t *testing.T) {
	cases := map[string]string{
		"CRITICAL": "fatal",
		"ERROR":    "error",
		"WARNING":  "warning",
		"DEBUG":    "debug",
		"INFO":     "info",
		"":         "info",
		"trace":    "trace",
	}
	for in, want := range cases {
		if got := normalizeLevel(in); got != want {
			t.Errorf("normalizeLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBindPersistentFlagsDefaultsFromFlags(t *testing.T) {
	configFile = "config/config.yml"
	filesDir = "files"
	logLevel = "INFO"
	logFile = ""

	if err := bindPersistentFlags(rootCmd); err != nil {
		t.Fatalf("bindPersistentFlags: %v", err)
	}
	if configFile != "config/config.yml" {
		t.Errorf("configFile = %q, want default", configFile)
	}
}

func TestBindPersistentFlagsHonorsEnvOverride(t *testing.T) {
	t.Setenv("DEVICEPOOL_LOG_LEVEL", "DEBUG")
	logLevel = "INFO"

	if err := bindPersistentFlags(rootCmd); err != nil {
		t.Fatalf("bindPersistentFlags: %v", err)
	}
	if logLevel != "DEBUG" {
		t.Errorf("logLevel = %q, want DEBUG (from env)", logLevel)
	}
}
