// Command hisaab-chat talks to the finance agent from a terminal, without
// Telegram. With -demo it replays a fixed conversation.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hisaab/internal/agent"
	"hisaab/internal/backend"
	"hisaab/internal/cli"
	"hisaab/internal/config"
	"hisaab/internal/log"
	"hisaab/internal/telegram"
)

var demoQueries = []string{
	"Is mahine ki income 50000 hai",
	"Sabji - 450",
	"Pooja saman 350",
	"Doodh 80",
	"Bijli bill 2500",
	"Abhi kitne paise bache?",
	"Is mahine ka total kharcha?",
	"Sabji me kitna gaya?",
	"Last 5 expenses dikhao",
}

func main() {
	externalID := flag.String("user", "test-user-123", "external id of the chat user")
	name := flag.String("name", "Test User", "display name used when the user is created")
	demo := flag.Bool("demo", false, "replay the demo conversation and exit")
	flag.Parse()

	cli.LoadEnvFile()

	cfg := config.LoadChat()
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	cli.LoadAndValidateConfig(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *externalID, *name, *demo); err != nil {
		logger.Error("Chat session failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger, externalID, name string, demo bool) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}

	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog()).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	user, err := res.Store.GetOrCreateUser(ctx, externalID, name)
	if err != nil {
		return fmt.Errorf("resolve user: %w", err)
	}
	fmt.Printf("✅ User: %s (ID: %s)\n\n", user.Name, user.ID)

	financeAgent := agent.New(
		agent.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL),
		res.Store,
		agent.Config{Model: cfg.OpenAIModel, MaxTurns: cfg.AgentMaxTurns},
		logger.WithComponent(log.ComponentAgent).Slog(),
	)

	ask := func(text string) {
		reply, err := financeAgent.Run(ctx, user.ID, telegram.RewriteShorthand(text))
		if err != nil {
			fmt.Printf("❌ Error: %v\n\n", err)
			return
		}
		fmt.Printf("🤖 Bot: %s\n\n", reply)
	}

	if demo {
		fmt.Println(strings.Repeat("=", 60))
		for _, q := range demoQueries {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Printf("👤 User: %s\n", q)
			ask(q)
			time.Sleep(500 * time.Millisecond)
		}
		fmt.Println(strings.Repeat("=", 60))
		return nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("👤 User: ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		switch text {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		ask(text)
	}
}
