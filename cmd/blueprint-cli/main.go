package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/leohan123123/blueprint-core/internal/adapters/driven/ai"
	"github.com/leohan123123/blueprint-core/internal/adapters/driven/memstore"
	"github.com/leohan123123/blueprint-core/internal/adapters/driven/vector/memory"
	"github.com/leohan123123/blueprint-core/internal/config"
	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driving"
	"github.com/leohan123123/blueprint-core/internal/core/services"
	"github.com/leohan123123/blueprint-core/internal/runtime"
)

var version = "dev"

var (
	titleColor  = color.New(color.FgCyan, color.Bold)
	promptColor = color.New(color.FgGreen, color.Bold)
	infoColor   = color.New(color.FgYellow)
	errorColor  = color.New(color.FgRed)
	sourceColor = color.New(color.Faint)
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		errorColor.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The REPL is self-contained: everything stays in process, nothing
	// is persisted between runs.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runREPL(ctx, cfg, logger); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type repl struct {
	ingest     driving.IngestService
	answer     driving.AnswerService
	knowledge  driving.KnowledgeService
	sessions   driven.ConversationStore
	sessionID  string
	providerID string
	registry   func() driven.ChatRegistry
}

func runREPL(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	settings := cfg.AISettings()

	index := memory.NewIndex(memory.Config{Dimensions: settings.Embedding.Dimensions, Logger: logger})
	engine := runtime.NewServices(runtime.Config{
		RuntimeConfig: domain.NewRuntimeConfig("memory", "memory"),
		Factory:       ai.NewFactory(),
		NewIndex: func(_ context.Context, dims int) (driven.VectorIndex, error) {
			return memory.NewIndex(memory.Config{Dimensions: dims, Logger: logger}), nil
		},
		Logger: logger,
	})
	if err := engine.Bootstrap(settings, index); err != nil {
		return fmt.Errorf("failed to bootstrap engine: %w", err)
	}
	defer engine.Close()

	sessions := memstore.NewConversationStore(0)
	defer sessions.Close()

	r := &repl{
		ingest: services.NewIngestService(services.IngestConfig{
			Services:     engine,
			MaxChunkSize: cfg.Ingest.MaxChunkSize,
			PoolSize:     cfg.Ingest.PoolSize,
			Logger:       logger,
		}),
		answer:    services.NewAnswerService(services.AnswerConfig{Services: engine, Logger: logger}),
		knowledge: services.NewKnowledgeService(engine, logger),
		sessions:  sessions,
		sessionID: uuid.NewString(),
		registry:  engine.Chat,
	}

	titleColor.Printf("blueprint-core %s — interactive mode\n", version)
	fmt.Println("Ask a question, or use /ingest <file>, /remove <doc-id>, /status, /provider <id>, /quit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		promptColor.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := r.command(ctx, line); quit {
				return nil
			}
			continue
		}

		r.ask(ctx, line)

		if ctx.Err() != nil {
			return nil
		}
	}
}

// command dispatches a slash command; returns true to exit the loop
func (r *repl) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/ingest":
		if len(args) == 0 {
			errorColor.Println("Usage: /ingest <file>")
			return false
		}
		r.ingestFile(ctx, strings.Join(args, " "))

	case "/remove":
		if len(args) != 1 {
			errorColor.Println("Usage: /remove <doc-id>")
			return false
		}
		result, err := r.knowledge.Remove(ctx, args[0])
		if err != nil {
			errorColor.Printf("Remove failed: %v\n", err)
			return false
		}
		infoColor.Printf("Removed %d vectors for %s\n", result.DeletedCount, args[0])

	case "/status":
		report, err := r.knowledge.Status(ctx)
		if err != nil {
			errorColor.Printf("Status failed: %v\n", err)
			return false
		}
		infoColor.Println(report.Summary)

	case "/provider":
		registry := r.registry()
		if len(args) != 1 {
			if registry != nil {
				infoColor.Printf("Available providers: %s\n", strings.Join(registry.IDs(), ", "))
			}
			errorColor.Println("Usage: /provider <id>")
			return false
		}
		if registry != nil {
			if _, err := registry.Get(args[0]); err != nil {
				errorColor.Printf("Unknown provider %q (available: %s)\n", args[0], strings.Join(registry.IDs(), ", "))
				return false
			}
		}
		r.providerID = args[0]
		infoColor.Printf("Chat provider set to %s\n", args[0])

	case "/help":
		fmt.Println("/ingest <file>    add a document to the knowledge base")
		fmt.Println("/remove <doc-id>  remove a document's vectors")
		fmt.Println("/status           show knowledge base stats")
		fmt.Println("/provider <id>    switch the chat provider")
		fmt.Println("/quit             exit")

	default:
		errorColor.Printf("Unknown command %s (try /help)\n", cmd)
	}
	return false
}

func (r *repl) ingestFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		errorColor.Printf("Cannot read %s: %v\n", path, err)
		return
	}

	docID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	result, err := r.ingest.Ingest(ctx, driving.IngestRequest{
		SourceDocID: docID,
		FileName:    filepath.Base(path),
		FileType:    fileTypeFor(path),
		Text:        string(data),
	})
	if err != nil {
		errorColor.Printf("Ingest failed: %v\n", err)
		return
	}
	infoColor.Printf("Ingested %s as %q: %d chunks stored", path, docID, result.ChunksStored)
	if result.ChunksFailed > 0 {
		errorColor.Printf(", %d failed", result.ChunksFailed)
	}
	fmt.Println()
}

func (r *repl) ask(ctx context.Context, question string) {
	var history []domain.ConversationTurn
	if session, err := r.sessions.History(ctx, r.sessionID); err == nil {
		history = session.Turns
	} else if !errors.Is(err, domain.ErrSessionNotFound) {
		errorColor.Printf("Ask failed: %v\n", err)
		return
	}

	answer, err := r.answer.Ask(ctx, driving.AskRequest{
		Question:   question,
		ProviderID: r.providerID,
		History:    history,
	})
	if err != nil {
		errorColor.Printf("Ask failed: %v\n", err)
		return
	}

	fmt.Println()
	fmt.Println(answer.Answer)
	if len(answer.Sources) > 0 {
		fmt.Println()
		sourceColor.Println("Sources:")
		for i, src := range answer.Sources {
			sourceColor.Printf("  [%d] %s (%s, relevance %.0f%%)\n", i+1, src.FileName, src.FileType, src.RelevanceScore*100)
		}
	} else if !answer.Grounded {
		sourceColor.Println("(answered without document context)")
	}
	fmt.Println()

	_ = r.sessions.Append(ctx, r.sessionID,
		domain.ConversationTurn{Role: domain.RoleUser, Content: question},
		domain.ConversationTurn{Role: domain.RoleAssistant, Content: answer.Answer},
	)
}

// fileTypeFor infers the document category from the file extension
func fileTypeFor(path string) domain.FileType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ifc":
		return domain.FileTypeModel
	case ".dxf", ".dwg":
		return domain.FileTypeDrawing
	default:
		return domain.FileTypeDocument
	}
}
