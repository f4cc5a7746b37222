// Command ragchat is the terminal front end: one-shot queries, an
// interactive REPL, document loading, and an MCP stdio server.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ragstack/ragchat"
	"github.com/ragstack/ragchat/common/logger"
	"github.com/ragstack/ragchat/config"
	"github.com/ragstack/ragchat/mcpserver"
	"github.com/ragstack/ragchat/watch"
)

var (
	flagConfig      string
	flagLogLevel    string
	flagSession     string
	flagLoadDocs    string
	flagQuery       string
	flagWatch       bool
	flagInteractive bool
)

func main() {
	root := &cobra.Command{
		Use:   "ragchat",
		Short: "Chat with your documents",
		Long: `ragchat indexes local documents and answers questions about them
through a local OpenAI-compatible model server such as LM Studio.

Without --query it starts an interactive session. Type /help there for
the available commands.`,
		SilenceUsage: true,
		RunE:         runRoot,
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "ragchat.yaml", "configuration file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.Flags().StringVarP(&flagSession, "session", "s", "default", "conversation session id")
	root.Flags().StringVar(&flagLoadDocs, "load-docs", "", "load documents from this directory before starting")
	root.Flags().StringVarP(&flagQuery, "query", "q", "", "ask one question and exit")
	root.Flags().BoolVarP(&flagWatch, "watch", "w", false, "reindex documents as files change")
	root.Flags().BoolVarP(&flagInteractive, "interactive", "i", false, "stay in the interactive session after --query or --load-docs")

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the knowledge base as MCP tools over stdio",
		RunE:  runMCP,
	}
	root.AddCommand(mcpCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(ctx context.Context) (*ragchat.Client, *zap.Logger, error) {
	config.LoadDotEnv()
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(flagLogLevel)
	if err != nil {
		return nil, nil, err
	}
	client, err := ragchat.NewClient(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return client, log, nil
}

func runRoot(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, log, err := setup(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if flagLoadDocs != "" {
		files, chunks, err := client.LoadDirectory(ctx, flagLoadDocs)
		if err != nil {
			return err
		}
		fmt.Printf("Loaded %d files (%d chunks) from %s\n", files, chunks, flagLoadDocs)
	}
	if flagWatch {
		w, err := watch.New(client.Config().DocumentsPath, client, log)
		if err != nil {
			return err
		}
		go func() {
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				log.Warn("watcher stopped", zap.Error(err))
			}
		}()
		fmt.Printf("Watching %s for changes\n", client.Config().DocumentsPath)
	}

	if flagQuery != "" {
		answer, _, err := client.Chat(ctx, flagSession, flagQuery)
		if err != nil {
			return err
		}
		fmt.Println(answer)
		if !flagInteractive {
			return nil
		}
	}
	return repl(ctx, client)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, log, err := setup(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	return mcpserver.ServeStdio(client, log)
}

const replHelp = `Commands:
  /help              show this help
  /info              model server status and configuration
  /history           show the conversation so far
  /clear             start a fresh conversation
  /load <dir>        index documents from a directory
  /stats             index statistics
  /reset             delete every indexed document
  /export <file>     save this session to a JSON file
  /import <file>     restore a session from a JSON file
  /quit              exit

Anything else is sent to the assistant.`

func repl(ctx context.Context, client *ragchat.Client) error {
	fmt.Println("ragchat interactive session. Type /help for commands, /quit to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := runCommand(ctx, client, line)
			if err != nil {
				fmt.Printf("error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}
		answer, _, err := client.Chat(ctx, flagSession, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Println(answer)
		fmt.Println()
	}
}

func runCommand(ctx context.Context, client *ragchat.Client, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "/quit", "/exit":
		fmt.Println("Bye.")
		return true, nil
	case "/help":
		fmt.Println(replHelp)
	case "/info":
		printInfo(ctx, client)
	case "/history":
		printHistory(client)
	case "/clear":
		if err := client.Sessions().Delete(flagSession); err != nil {
			return false, err
		}
		fmt.Println("Conversation cleared.")
	case "/load":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /load <dir>")
		}
		files, chunks, err := client.LoadDirectory(ctx, args[0])
		if err != nil {
			return false, err
		}
		fmt.Printf("Loaded %d files (%d chunks)\n", files, chunks)
	case "/stats":
		stats, err := client.Stats(ctx)
		if err != nil {
			return false, err
		}
		fmt.Printf("Chunks: %d\n", stats.TotalChunks)
		for source, n := range stats.BySource {
			fmt.Printf("  %s: %d\n", source, n)
		}
	case "/reset":
		if err := client.ResetIndex(ctx); err != nil {
			return false, err
		}
		fmt.Println("Index cleared.")
	case "/export":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /export <file>")
		}
		if err := client.ExportSession(flagSession, args[0]); err != nil {
			return false, err
		}
		fmt.Printf("Session saved to %s\n", args[0])
	case "/import":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /import <file>")
		}
		session, err := client.ImportSession(args[0])
		if err != nil {
			return false, err
		}
		flagSession = session.ID
		fmt.Printf("Session %s restored (%d messages)\n", session.ID, len(session.Turns))
	default:
		return false, fmt.Errorf("unknown command %s, type /help", cmd)
	}
	return false, nil
}

func printInfo(ctx context.Context, client *ragchat.Client) {
	cfg := client.Config()
	fmt.Printf("Model server:  %s\n", cfg.LLM.BaseURL)
	fmt.Printf("Chat model:    %s\n", cfg.LLM.Model)
	fmt.Printf("Embedding:     %s (dim %d)\n", cfg.Embedding.Model, cfg.Embedding.Dimension)
	fmt.Printf("Vector store:  %s\n", cfg.VectorDB.Provider)
	fmt.Printf("Session:       %s\n", flagSession)
	if models, err := client.Health().ListModels(ctx); err != nil {
		fmt.Printf("Status:        unreachable (%v)\n", err)
	} else {
		fmt.Printf("Status:        online, %d models available\n", len(models))
	}
}

func printHistory(client *ragchat.Client) {
	session, err := client.Sessions().Get(flagSession)
	if err != nil {
		fmt.Println("No conversation yet.")
		return
	}
	fmt.Println(session.Summary())
	for _, turn := range session.Turns {
		fmt.Printf("[%s] %s\n", turn.Role, turn.Content)
	}
}
