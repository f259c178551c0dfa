package cmd

import (
	"testing"
)

func TestProfileCommandRegistration(t *testing.T) {
	expected := map[string]bool{
		"status":     false,
		"sync":       false,
		"show":       false,
		"export-key": false,
		"import-key": false,
		"reset":      false,
	}

	for _, sub := range ProfileCmd.Commands() {
		if _, ok := expected[sub.Name()]; ok {
			expected[sub.Name()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("Expected subcommand %q to be registered", name)
		}
	}
}

func TestProfilePersistentFlags(t *testing.T) {
	for _, name := range []string{"verbose", "debug", "user"} {
		if ProfileCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("Expected persistent flag %q", name)
		}
	}
}

func TestResetGlobalState(t *testing.T) {
	verbose = true
	debug = true
	userID = "someone"

	ResetGlobalState()

	if verbose || debug || userID != "" {
		t.Error("Expected global flag state reset to defaults")
	}
}

func TestRequireUser(t *testing.T) {
	if _, err := requireUser(&session{}); err == nil {
		t.Error("Expected an error without a user id")
	}

	uid, err := requireUser(&session{userID: "user-1"})
	if err != nil || uid != "user-1" {
		t.Errorf("Expected the session user id, got (%q, %v)", uid, err)
	}
}

func TestEnsureNewline(t *testing.T) {
	if got := ensureNewline("done"); got != "done\n" {
		t.Errorf("Expected trailing newline, got %q", got)
	}
	if got := ensureNewline("done\n"); got != "done\n" {
		t.Errorf("Expected no double newline, got %q", got)
	}
	if got := ensureNewline(""); got != "\n" {
		t.Errorf("Expected a bare newline for empty input, got %q", got)
	}
}
