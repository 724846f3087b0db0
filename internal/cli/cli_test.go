package cli

import (
	"testing"

	"github.com/proxmox-nli/internal/config"
)

func TestCLINew(t *testing.T) {
	cli := New()
	if cli == nil {
		t.Error("New() should return a non-nil CLI")
	}
	if cli.rootCmd == nil {
		t.Error("CLI rootCmd should not be nil")
	}
}

func TestCLIRootCommand(t *testing.T) {
	cli := New()

	// Root command should have subcommands
	if len(cli.rootCmd.Commands()) == 0 {
		t.Error("Root command should have subcommands")
	}

	// Check for expected subcommands
	expectedCommands := []string{"chat", "ask", "serve", "intents", "history", "version"}
	commandNames := make(map[string]bool)
	for _, cmd := range cli.rootCmd.Commands() {
		commandNames[cmd.Name()] = true
	}

	for _, expected := range expectedCommands {
		if !commandNames[expected] {
			t.Errorf("Expected command '%s' not found", expected)
		}
	}
}

func TestChatCommandFlags(t *testing.T) {
	cli := New()
	cmd := cli.chatCmd()

	for _, flag := range []string{"demo", "node", "session"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("chat command missing --%s flag", flag)
		}
	}
}

func TestServeCommandDefaults(t *testing.T) {
	cli := New()
	cmd := cli.serveCmd()

	portFlag := cmd.Flags().Lookup("port")
	if portFlag == nil {
		t.Fatal("serve command missing --port flag")
	}
	if portFlag.DefValue != "8000" {
		t.Errorf("Expected default port 8000, got %s", portFlag.DefValue)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.Get()
	origBackend := cfg.Proxmox.Backend
	origNode := cfg.Proxmox.DefaultNode
	defer func() {
		cfg.Proxmox.Backend = origBackend
		cfg.Proxmox.DefaultNode = origNode
	}()

	applyOverrides(true, "pve2")

	if cfg.Proxmox.Backend != "sim" {
		t.Errorf("Expected backend 'sim', got '%s'", cfg.Proxmox.Backend)
	}
	if cfg.Proxmox.DefaultNode != "pve2" {
		t.Errorf("Expected default node 'pve2', got '%s'", cfg.Proxmox.DefaultNode)
	}
}

func TestIntentsCommand(t *testing.T) {
	cli := New()

	cli.rootCmd.SetArgs([]string{"intents"})
	if err := cli.Execute(); err != nil {
		t.Fatalf("intents command failed: %v", err)
	}
}

func TestAskCommandDemo(t *testing.T) {
	cfg := config.Get()
	cfg.Session.Backend = "memory"
	cfg.History.Enabled = true
	cfg.History.Dir = t.TempDir()

	cli := New()

	cli.rootCmd.SetArgs([]string{"ask", "--demo", "list all vms"})
	if err := cli.Execute(); err != nil {
		t.Fatalf("ask command failed: %v", err)
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"single line", "single line"},
		{"first\nsecond", "first …"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := firstLine(tt.input); got != tt.expected {
			t.Errorf("firstLine(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
