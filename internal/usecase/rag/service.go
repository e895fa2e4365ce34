// Package rag answers questions by retrieving context chunks and asking the
// chat model to answer from them.
package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/museumrag/internal/domain"
	"github.com/kailas-cloud/museumrag/internal/logger"
	"github.com/kailas-cloud/museumrag/internal/metrics"
	"github.com/kailas-cloud/museumrag/internal/prompt"
)

// Defaults for Config fields left at zero.
const (
	DefaultK       = 3
	DefaultMaxK    = 5
	DefaultTimeout = 30 * time.Second
)

// Config tunes the pipeline.
type Config struct {
	DefaultK int
	MaxK     int
	Timeout  time.Duration // per outbound stage
}

// Service runs the retrieve-then-generate cycle. It only holds immutable
// collaborators, so concurrent Answer calls do not interact.
type Service struct {
	index  Index
	embed  Embedder // nil when the index embeds the question itself
	gen    Generator
	cfg    Config
	logger *zap.Logger
}

// New creates the orchestrator. embed is nil in index-embedding mode.
func New(index Index, embed Embedder, gen Generator, cfg Config, log *zap.Logger) *Service {
	if cfg.MaxK <= 0 {
		cfg.MaxK = DefaultMaxK
	}
	if cfg.DefaultK <= 0 || cfg.DefaultK > cfg.MaxK {
		cfg.DefaultK = min(DefaultK, cfg.MaxK)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{index: index, embed: embed, gen: gen, cfg: cfg, logger: log}
}

// DefaultK is the depth used when the caller does not choose one.
func (s *Service) DefaultK() int { return s.cfg.DefaultK }

// MaxK is the largest accepted depth.
func (s *Service) MaxK() int { return s.cfg.MaxK }

// Answer retrieves the k most similar chunks and generates an answer grounded
// in them. k must be within 1..MaxK.
func (s *Service) Answer(ctx context.Context, question string, k int) (domain.Answer, error) {
	log := logger.FromContext(ctx, s.logger)
	run := &cycle{log: log, state: StateIdle}

	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, run.reject(fmt.Errorf("question is empty: %w", domain.ErrValidation))
	}
	if k < 1 || k > s.cfg.MaxK {
		return domain.Answer{}, run.reject(fmt.Errorf("k=%d, want 1..%d: %w", k, s.cfg.MaxK, domain.ErrInvalidK))
	}

	run.to(StateRetrieving)
	chunks, err := s.retrieve(ctx, question, k)
	if err != nil {
		return domain.Answer{}, run.fail(domain.NewRetrievalError(err))
	}

	run.to(StateGenerating)
	p := prompt.Build(question, chunks)
	text, err := s.generate(ctx, p)
	if err != nil {
		return domain.Answer{}, run.fail(domain.NewGenerationError(err))
	}

	run.to(StateDone)
	metrics.RAGRequestsTotal.WithLabelValues(string(StateDone)).Inc()

	return domain.Answer{
		Question: question,
		K:        k,
		Text:     text,
		Context:  prompt.Context(chunks),
		Chunks:   chunks,
	}, nil
}

func (s *Service) retrieve(ctx context.Context, question string, k int) ([]domain.RetrievedChunk, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	defer observe(StateRetrieving, time.Now())

	q := domain.Query{Text: question}
	if s.embed != nil {
		res, err := s.embed.Embed(ctx, question)
		if err != nil {
			return nil, fmt.Errorf("embed question: %w", err)
		}
		q = domain.Query{Vector: res.Embedding}
	}

	chunks, err := s.index.Query(ctx, q, k)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	return chunks, nil
}

func (s *Service) generate(ctx context.Context, p string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	defer observe(StateGenerating, time.Now())

	res, err := s.gen.Generate(ctx, p)
	if err != nil {
		return "", err
	}
	domain.UsageFromContext(ctx).AddGenerationTokens(res.TotalTokens)
	return res.Text, nil
}

func observe(stage State, start time.Time) {
	metrics.RAGStageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
}

// cycle tracks the state of one Answer call.
type cycle struct {
	log   *zap.Logger
	state State
}

func (c *cycle) to(next State) {
	c.log.Debug("rag transition", zap.String("from", string(c.state)), zap.String("to", string(next)))
	c.state = next
}

func (c *cycle) fail(err error) error {
	c.to(StateFailed)
	metrics.RAGRequestsTotal.WithLabelValues(string(StateFailed)).Inc()
	return err
}

func (c *cycle) reject(err error) error {
	c.to(StateRejected)
	metrics.RAGRequestsTotal.WithLabelValues(string(StateRejected)).Inc()
	return err
}
