package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-chat/internal/chatbot"
	"document-chat/internal/config"
	"document-chat/internal/embedding"
	"document-chat/internal/helper"
	"document-chat/internal/llmservice"
	"document-chat/internal/models"
	"document-chat/internal/perplexity"
	"document-chat/internal/server"
	"document-chat/internal/session"
	"document-chat/internal/websearch"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the YAML config file")
	filePath := flag.String("file", "", "Document to answer from (with -query)")
	query := flag.String("query", "", "Answer a single question and exit")
	mode := flag.String("mode", string(models.ModeDetailed), "Response mode: Concise or Detailed")
	asJSON := flag.Bool("json", false, "Print the -query reply as JSON")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	opts := options{
		configPath: *configPath,
		filePath:   *filePath,
		query:      *query,
		mode:       models.ParseResponseMode(*mode),
		asJSON:     *asJSON,
	}
	if err := run(context.Background(), opts); err != nil {
		log.Fatal().Err(err).Msg("Exiting")
	}
}

type options struct {
	configPath string
	filePath   string
	query      string
	mode       models.ResponseMode
	asJSON     bool
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cfg.LLM.Key == "" {
		log.Warn().Str("key", config.APIKeyName).Msg("No chat model API key configured")
	}
	if opts.query == "" && opts.filePath != "" {
		return errors.New("the -file flag is only used together with -query")
	}

	scorer := perplexity.NewLazyScorer(&cfg.Perplexity)
	defer func() {
		if err := scorer.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing perplexity model")
		}
	}()

	svc, err := newService(cfg, scorer)
	if err != nil {
		return fmt.Errorf("error initializing services: %w", err)
	}

	if opts.query != "" {
		return askOnce(ctx, svc, opts.filePath, opts.query, opts.mode, opts.asJSON)
	}
	return serve(cfg, svc)
}

func newService(cfg *config.Config, scorer chatbot.PerplexityScorer) (*chatbot.Service, error) {
	embedder, err := embedding.New(&cfg.EmbedLLM)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	searcher, err := websearch.New(&cfg.Search)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	return chatbot.NewService(cfg, embedder, llmservice.Factory(&cfg.LLM), searcher, scorer), nil
}

func askOnce(ctx context.Context, svc *chatbot.Service, filePath, query string, mode models.ResponseMode, asJSON bool) error {
	sess := session.New("cli")
	if filePath != "" {
		f, err := os.Open(filePath)
		if err != nil {
			return fmt.Errorf("error opening document: %w", err)
		}
		defer f.Close()
		if err := svc.Ingest(ctx, sess, filePath, f); err != nil {
			return fmt.Errorf("error processing document: %w", err)
		}
		log.Info().Msg(models.IndexedNotice)
	}

	reply := svc.Reply(ctx, sess, query, mode)
	if asJSON {
		helper.PrettyPrint(reply)
		return nil
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", reply.Content)
	return nil
}

func serve(cfg *config.Config, svc *chatbot.Service) error {
	store := session.NewStore(&cfg.Session)
	router := server.New(cfg, svc, store).Router()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	return waitForShutdown(srv, serveErr)
}

func waitForShutdown(srv *http.Server, serveErr <-chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}
