// Package memory is the long-term memory accessor: similarity reads and
// append-only writes over per-user vector namespaces.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hrygo/kokoro/ai/embedding"
	"github.com/hrygo/kokoro/ai/llm"
	"github.com/hrygo/kokoro/store"
)

// canonicalProbe is the fixed phrase used to sample a user's namespace for
// its dominant theme. It deliberately ignores the live message.
const canonicalProbe = "the important things we have talked about"

const themePromptFormat = `Summarize the dominant theme of the following remembered facts in one descriptive sentence. Reply with only that sentence.

%s`

// VectorStore is the slice of the store the accessor needs.
type VectorStore interface {
	AddMemoryRecord(ctx context.Context, add *store.MemoryRecord) (*store.MemoryRecord, error)
	SearchMemoryRecords(ctx context.Context, search *store.SearchMemoryRecords) ([]*store.MemoryRecordWithScore, error)
}

// Accessor reads and writes a user's long-term memory.
type Accessor struct {
	store    VectorStore
	embedder embedding.Service
	llm      llm.Service
}

func NewAccessor(store VectorStore, embedder embedding.Service, llmService llm.Service) *Accessor {
	return &Accessor{store: store, embedder: embedder, llm: llmService}
}

// RetrieveRelevant returns the k memory texts nearest to query. An empty or
// unreachable namespace yields an empty list, never an error; downstream
// composition tolerates missing memories.
func (a *Accessor) RetrieveRelevant(ctx context.Context, userID int64, query string, k int) []string {
	if k <= 0 || strings.TrimSpace(query) == "" {
		return nil
	}
	vector, err := a.embedder.Embed(ctx, query)
	if err != nil {
		slog.Warn("memory: embed query failed", "user", userID, "error", err)
		return nil
	}
	results, err := a.store.SearchMemoryRecords(ctx, &store.SearchMemoryRecords{
		UserID:    userID,
		Embedding: vector,
		Limit:     k,
	})
	if err != nil {
		slog.Warn("memory: similarity search failed", "user", userID, "error", err)
		return nil
	}
	texts := make([]string, 0, len(results))
	for _, result := range results {
		texts = append(texts, result.Record.Text)
	}
	return texts
}

// RetrieveThematic samples the namespace with the canonical probe phrase and
// asks the generation service to fold the samples into one descriptive
// sentence. Returns "" on any failure.
func (a *Accessor) RetrieveThematic(ctx context.Context, userID int64, k int) string {
	samples := a.RetrieveRelevant(ctx, userID, canonicalProbe, k)
	if len(samples) == 0 {
		return ""
	}
	theme, err := a.llm.Complete(ctx, llm.CompletionRequest{
		Prompt:      fmt.Sprintf(themePromptFormat, strings.Join(samples, "\n")),
		MaxTokens:   80,
		Temperature: 0.3,
		TopP:        0.9,
	})
	if err != nil {
		slog.Warn("memory: theme summarization failed", "user", userID, "error", err)
		return ""
	}
	return strings.TrimSpace(theme)
}

// Store appends one memory record with a fresh UID and timestamp metadata.
// If the single nearest neighbor already holds byte-identical text the
// insert is skipped, so storing the same summary twice leaves one record.
func (a *Accessor) Store(ctx context.Context, userID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("memory text cannot be empty")
	}
	vector, err := a.embedder.Embed(ctx, text)
	if err != nil {
		return errors.Wrap(err, "failed to embed memory text")
	}

	nearest, err := a.store.SearchMemoryRecords(ctx, &store.SearchMemoryRecords{
		UserID:    userID,
		Embedding: vector,
		Limit:     1,
	})
	if err != nil {
		slog.Warn("memory: dedup lookup failed, storing anyway", "user", userID, "error", err)
	} else if len(nearest) > 0 && nearest[0].Record.Text == text {
		slog.Debug("memory: skipping duplicate record", "user", userID)
		return nil
	}

	if _, err := a.store.AddMemoryRecord(ctx, &store.MemoryRecord{
		UID:       uuid.NewString(),
		UserID:    userID,
		Text:      text,
		Embedding: vector,
		CreatedTs: time.Now().Unix(),
	}); err != nil {
		return errors.Wrap(err, "failed to add memory record")
	}
	return nil
}
