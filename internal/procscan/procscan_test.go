package procscan

import "testing"

func TestMatchesCmdline(t *testing.T) {
	tests := []struct {
		name    string
		cmd     string
		token   string
		exclude string
		want    bool
	}{
		{"runner binary", "/home/agent/main/autofram/bin/runner", "runner", "watcher", true},
		{"runner with args", "bin/runner --version", "runner", "watcher", true},
		{"watcher excluded", "/home/agent/main/autofram/bin/watcher", "runner", "watcher", false},
		{"watcher matches itself", "bin/watcher", "watcher", "", true},
		{"unrelated process", "/usr/bin/vim notes.md", "runner", "watcher", false},
		{"exclude wins over match", "bin/runner --supervise-watcher", "runner", "watcher", false},
		{"token in directory only", "/opt/runner-tools/bin/frobnicate", "runner", "watcher", false},
		{"empty cmdline", "", "runner", "watcher", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesCmdline(tt.cmd, tt.token, tt.exclude); got != tt.want {
				t.Errorf("MatchesCmdline(%q, %q, %q) = %v, want %v", tt.cmd, tt.token, tt.exclude, got, tt.want)
			}
		})
	}
}
