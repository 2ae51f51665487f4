package chatbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"

	"document-chat/internal/chromemdb"
	"document-chat/internal/config"
	"document-chat/internal/helper"
	"document-chat/internal/models"
	"document-chat/internal/parser"
	"document-chat/internal/rag"
	"document-chat/internal/session"
)

// ErrNoContent is returned for a supported file that yields no text.
var ErrNoContent = errors.New("document contains no text")

// WebSearcher answers a query from the live web.
type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// PerplexityScorer scores generated text.
type PerplexityScorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// Service runs uploads and chat turns against a session.
type Service struct {
	rag       config.RAGConfig
	uploadDir string
	embedder  embeddings.Embedder
	newLLM    func() (llms.Model, error)
	searcher  WebSearcher
	scorer    PerplexityScorer
}

func NewService(cfg *config.Config, embedder embeddings.Embedder, newLLM func() (llms.Model, error), searcher WebSearcher, scorer PerplexityScorer) *Service {
	return &Service{
		rag:       cfg.RAG,
		uploadDir: cfg.App.UploadDir,
		embedder:  embedder,
		newLLM:    newLLM,
		searcher:  searcher,
		scorer:    scorer,
	}
}

// Ingest stores an uploaded file under the session's upload folder, indexes it and attaches a fresh conversation
// chain to the session. On failure the session keeps its previous document
// and an error notice is set.
func (s *Service) Ingest(ctx context.Context, sess *session.Session, filename string, r io.Reader) error {
	defer sess.BeginTurn()()

	if err := s.ingest(ctx, sess, filename, r); err != nil {
		log.Error().Err(err).Str("session", sess.ID).Str("file", filename).Msg("Failed to process document")
		sess.SetNotice(models.IngestErrorPrefix+err.Error(), true)
		return err
	}
	sess.SetNotice(models.IndexedNotice, false)
	return nil
}

func (s *Service) ingest(ctx context.Context, sess *session.Session, filename string, r io.Reader) error {
	// each session gets its own folder so same-named uploads never collide
	dir := filepath.Join(s.uploadDir, sess.ID)
	if err := helper.CreateFolder(dir); err != nil {
		return err
	}
	path := helper.UploadPath(dir, filename)
	if err := saveFile(path, r); err != nil {
		return err
	}

	docs, err := parser.LoadDocuments(path)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return ErrNoContent
	}

	chunks, err := parser.ChunkDocuments(docs, s.rag.ChunkSize, s.rag.ChunkOverlap)
	if err != nil {
		return err
	}
	index, err := chromemdb.BuildIndex(ctx, s.embedder, chunks)
	if err != nil {
		return err
	}

	llm, err := s.newLLM()
	if err != nil {
		return fmt.Errorf("failed to create chat model: %w", err)
	}
	chain := rag.NewChain(llm, index.Retriever(s.rag.TopK), s.rag.MemoryWindow)

	sess.Attach(index, chain, filepath.Base(filename))
	log.Info().
		Str("session", sess.ID).
		Str("file", path).
		Int("pages", len(docs)).
		Int("chunks", len(chunks)).
		Msg("Document indexed")
	return nil
}

func saveFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	return nil
}

// Reply runs one chat turn: the user's prompt and the formatted answer are
// appended to the session history and the answer is returned.
func (s *Service) Reply(ctx context.Context, sess *session.Session, prompt string, mode models.ResponseMode) models.Message {
	defer sess.BeginTurn()()

	sess.Append(models.RoleUser, prompt)
	res := s.answer(ctx, sess, prompt)
	return sess.Append(models.RoleAssistant, Format(res, mode, s.rag.ConciseLimit))
}

func (s *Service) answer(ctx context.Context, sess *session.Session, prompt string) models.PromptResponse {
	res := models.PromptResponse{Query: prompt, Perplexity: models.PerplexitySentinel}

	var err error
	if chain := sess.Chain(); chain != nil {
		res.Source = models.SourceDocument
		res.Content, err = chain.Ask(ctx, prompt)
	} else {
		res.Source = models.SourceWebSearch
		res.Content, err = s.searcher.Search(ctx, prompt)
	}
	if err != nil {
		log.Error().Err(err).Str("session", sess.ID).Str("source", res.Source).Msg("Failed to generate response")
		return models.PromptResponse{
			Query:      prompt,
			Content:    models.GenerationErrorPrefix + err.Error(),
			Perplexity: models.PerplexitySentinel,
			Failed:     true,
		}
	}

	res.Perplexity = s.perplexity(ctx, res.Content)
	return res
}

func (s *Service) perplexity(ctx context.Context, text string) float64 {
	if s.scorer == nil {
		return models.PerplexitySentinel
	}
	ppl, err := s.scorer.Score(ctx, text)
	if err != nil || ppl < 0 {
		log.Warn().Err(err).Msg("Perplexity unavailable")
		return models.PerplexitySentinel
	}
	return ppl
}

// ClearHistory empties the displayed history and the chain's memory.
func (s *Service) ClearHistory(ctx context.Context, sess *session.Session) error {
	defer sess.BeginTurn()()

	sess.ClearHistory()
	if chain := sess.Chain(); chain != nil {
		return chain.Reset(ctx)
	}
	return nil
}
