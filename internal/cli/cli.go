// Package cli implements the command-line interface of the Proxmox
// natural-language console.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/proxmox-nli/internal/config"
	"github.com/proxmox-nli/internal/controller"
	"github.com/proxmox-nli/internal/domain"
	"github.com/proxmox-nli/internal/logging"
	"github.com/proxmox-nli/internal/web"
)

const appVersion = "1.0.0"

// askTimeout bounds one utterance end to end, Proxmox call included.
const askTimeout = 30 * time.Second

// CLI encapsulates the command-line interface
type CLI struct {
	rootCmd *cobra.Command
	logger  *logging.Logger
}

// New creates a new CLI instance
func New() *CLI {
	logger, err := logging.New(logging.Config{
		Level:       logging.INFO,
		LogDir:      "logs",
		EnableFile:  true,
		EnableColor: true,
	})
	if err != nil || logger == nil {
		logger = logging.GetDefault()
	}
	cli := &CLI{logger: logger}
	cli.buildCommands()
	return cli
}

// Execute runs the CLI
func (c *CLI) Execute() error {
	return c.rootCmd.Execute()
}

// buildCommands constructs the command tree
func (c *CLI) buildCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "proxmox-nli",
		Short: "Natural-language console for Proxmox VE",
		Long: `
   ____   ____    ___  __  __ __  __   ___  __  __    _   _  _      ___
  |  _ \ |  _ \  / _ \ \ \/ /|  \/  | / _ \ \ \/ /   | \ | || |    |_ _|
  | |_) || |_) || | | | \  / | |\/| || | | | \  /    |  \| || |     | |
  |  __/ |  _ < | |_| | /  \ | |  | || |_| | /  \    | |\  || |___  | |
  |_|    |_| \_\ \___/ /_/\_\|_|  |_| \___/ /_/\_\   |_| \_||_____||___|

  ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
  Talk to your Proxmox VE cluster in plain English.
  ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

  Type what you want ("start vm 101", "how much disk space is left") and
  the console parses it, makes exactly one Proxmox API call and answers
  in a sentence. Follow-ups like "stop it" resolve against the running
  conversation.

  Run any command with --demo to use a built-in simulated three node
  cluster; no credentials required.`,
		Version: appVersion,
	}

	// Add subcommands
	c.rootCmd.AddCommand(c.chatCmd())
	c.rootCmd.AddCommand(c.askCmd())
	c.rootCmd.AddCommand(c.serveCmd())
	c.rootCmd.AddCommand(c.intentsCmd())
	c.rootCmd.AddCommand(c.historyCmd())
	c.rootCmd.AddCommand(c.versionCmd())
}

// applyOverrides folds command-line switches into the loaded config
// before the controller wires itself.
func applyOverrides(demo bool, node string) {
	cfg := config.Get()
	if demo {
		cfg.Proxmox.Backend = "sim"
	}
	if node != "" {
		cfg.Proxmox.DefaultNode = node
	}
}

// chatCmd creates the interactive chat command
func (c *CLI) chatCmd() *cobra.Command {
	var (
		demo      bool
		node      string
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation with the cluster",
		Long: `Start an interactive session. Each line you type runs through the
interpreter and answers in natural language; the conversation context
carries across turns, so "stop it" refers to the VM you just named.

Examples:
  # Talk to the configured cluster
  proxmox-nli chat

  # Try the console against the simulated cluster
  proxmox-nli chat --demo

  # Resume a session from an earlier run
  proxmox-nli chat --session 6b2f6a8e-1c7d-4f3a-9f2e-8f6d44c21a77`,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyOverrides(demo, node)
			return c.runChat(sessionID)
		},
	}

	cmd.Flags().BoolVar(&demo, "demo", false, "Use the built-in simulated cluster")
	cmd.Flags().StringVar(&node, "node", "", "Default node for node-scoped commands")
	cmd.Flags().StringVar(&sessionID, "session", "", "Resume an existing session id")

	return cmd
}

// runChat runs the interactive line loop until exit/quit or EOF.
func (c *CLI) runChat(sessionID string) error {
	ctrl, err := controller.New()
	if err != nil {
		return fmt.Errorf("failed to start console: %w", err)
	}
	defer ctrl.Close()

	c.logger.Info("Chat session starting: backend=%s", ctrl.Backend())

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("💬 Connected (backend: %s). Type \"help\" to see what I understand.\n", ctrl.Backend())
	fmt.Println("   \"exit\" or \"quit\" leaves the console.")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("🖥️  > ")

		input, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("👋 Bye.")
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
		resp, err := ctrl.Ask(ctx, controller.AskRequest{SessionID: sessionID, Text: input})
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			continue
		}
		sessionID = resp.SessionID

		reply := resp.Reply
		if reply == "" {
			reply = resp.Error
		}
		if resp.Success {
			fmt.Printf("✅ %s\n", reply)
		} else {
			fmt.Printf("❌ %s\n", reply)
		}
		fmt.Printf("   ⚡ %s · %dms\n", resp.Intent, resp.DurationMS)
		fmt.Println()
	}
}

// askCmd creates the one-shot ask command
func (c *CLI) askCmd() *cobra.Command {
	var (
		demo      bool
		node      string
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "ask [text]",
		Short: "Run a single natural-language command",
		Long: `Run one utterance through the interpreter and print the reply.

Examples:
  # Ask the configured cluster
  proxmox-nli ask "status of vm 101"

  # Try it without a cluster
  proxmox-nli ask --demo "list all vms"

  # Continue an existing conversation
  proxmox-nli ask --session 6b2f6a8e "stop it"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyOverrides(demo, node)
			return c.runAsk(sessionID, strings.Join(args, " "))
		},
	}

	cmd.Flags().BoolVar(&demo, "demo", false, "Use the built-in simulated cluster")
	cmd.Flags().StringVar(&node, "node", "", "Default node for node-scoped commands")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id to continue")

	return cmd
}

func (c *CLI) runAsk(sessionID, text string) error {
	ctrl, err := controller.New()
	if err != nil {
		return fmt.Errorf("failed to start console: %w", err)
	}
	defer ctrl.Close()

	fmt.Printf("🔍 %s\n\n", text)

	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	resp, err := ctrl.Ask(ctx, controller.AskRequest{SessionID: sessionID, Text: text})
	if err != nil {
		return err
	}

	reply := resp.Reply
	if reply == "" {
		reply = resp.Error
	}
	if resp.Success {
		fmt.Printf("✅ %s\n", reply)
	} else {
		fmt.Printf("❌ %s\n", reply)
	}
	fmt.Printf("\n⚡ intent=%s session=%s %dms\n", resp.Intent, resp.SessionID, resp.DurationMS)

	return nil
}

// serveCmd creates the web console command
func (c *CLI) serveCmd() *cobra.Command {
	var (
		port int
		demo bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web console",
		Long: `Start the browser console and JSON API.

The web console provides:
  - A chat interface to the cluster with conversation context
  - A JSON API (/api/ask, /api/intents, /api/history, /api/health)
  - Command audit history and cache controls

Examples:
  # Serve on the default port 8000
  proxmox-nli serve

  # Serve the simulated cluster on port 3000
  proxmox-nli serve --demo --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyOverrides(demo, "")
			return c.runServe(port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8000, "Port to run the web server on")
	cmd.Flags().BoolVar(&demo, "demo", false, "Use the built-in simulated cluster")

	return cmd
}

func (c *CLI) runServe(port int) error {
	ctrl, err := controller.New()
	if err != nil {
		return fmt.Errorf("failed to start console: %w", err)
	}
	defer ctrl.Close()

	fmt.Println("🌐 Starting Proxmox NLI web console...")
	fmt.Printf("   Open http://localhost:%d in your browser\n", port)
	fmt.Println("   Press Ctrl+C to stop")
	fmt.Println()

	return web.NewServer(ctrl, port).Start()
}

// intentsCmd creates the intents reference command
func (c *CLI) intentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "intents",
		Short: "List the commands the console understands",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "INTENT\tNEEDS VM\tDESCRIPTION\tEXAMPLE")
			fmt.Fprintln(w, "------\t--------\t-----------\t-------")

			for _, intent := range domain.AllIntents() {
				if intent == domain.IntentUnknown {
					continue
				}
				needsVM := ""
				if intent.RequiresVM() {
					needsVM = "yes"
				}
				example := ""
				if examples := intent.Examples(); len(examples) > 0 {
					example = fmt.Sprintf("%q", examples[0])
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", intent, needsVM, intent.Description(), example)
			}
			w.Flush()

			fmt.Println()
			fmt.Println("💡 Phrasings are flexible; these are just examples.")
			return nil
		},
	}
}

// historyCmd creates the audit history command
func (c *CLI) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent commands from the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := controller.New()
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer ctrl.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			resp, err := ctrl.History(ctx, limit)
			if err != nil {
				return err
			}
			if !resp.Success {
				fmt.Printf("💡 %s\n", resp.Error)
				return nil
			}
			if len(resp.Records) == 0 {
				fmt.Println("💡 No commands recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tRESULT\tINTENT\tINPUT\tREPLY")
			fmt.Fprintln(w, "----\t------\t------\t-----\t-----")

			for _, rec := range resp.Records {
				ts := rec.Timestamp
				if parsed, err := time.Parse(time.RFC3339, rec.Timestamp); err == nil {
					ts = parsed.Format("2006-01-02 15:04:05")
				}
				result := "✅"
				if !rec.Success {
					result = "❌"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ts, result, rec.Intent, rec.Input, firstLine(rec.Reply))
			}
			w.Flush()

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of records to show")

	return cmd
}

// versionCmd creates the version command
func (c *CLI) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("proxmox-nli %s\n", appVersion)
			fmt.Printf("  go:       %s\n", runtime.Version())
			fmt.Printf("  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// firstLine truncates multi-line replies for the history table.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
