package chroma

import (
	"context"
	"fmt"
	"os"
	"strings"

	"miinplanner-backend/internal/task/domain"
	"miinplanner-backend/pkg/config"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
	"go.uber.org/zap"
)

const (
	collectionName = "tasks"
	maxDocumentLen = 8000
)

// ChromaClient keeps a semantic index of task text in a Chroma collection.
type ChromaClient struct {
	client     chroma.Client
	collection chroma.Collection
	log        *zap.Logger
}

func NewChromaClient(ctx context.Context, cfg *config.Config, log *zap.Logger) (*ChromaClient, error) {
	if cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY is required")
	}

	if cfg.GeminiAPIKey != "" {
		os.Setenv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	}

	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	opts := []chroma.ClientOption{
		chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
		chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
	}
	switch {
	case cfg.ChromaDatabase != "" && cfg.ChromaTenant != "":
		opts = append(opts, chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant))
	case cfg.ChromaTenant != "":
		opts = append(opts, chroma.WithTenant(cfg.ChromaTenant))
	}

	client, err := chroma.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	collection, err := client.GetOrCreateCollection(ctx, collectionName,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	log.Info("chroma collection ready", zap.String("collection", collectionName))

	return &ChromaClient{
		client:     client,
		collection: collection,
		log:        log.Named("chroma"),
	}, nil
}

// Document renders the text that gets embedded for a task.
func Document(t domain.Task) string {
	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(t.Title)
	if t.Description != nil && *t.Description != "" {
		b.WriteString("\n\nDescription: ")
		b.WriteString(*t.Description)
	}
	if len(t.Tags) > 0 {
		b.WriteString("\n\nTags: ")
		b.WriteString(strings.Join(t.Tags, ", "))
	}
	text := b.String()
	if len(text) > maxDocumentLen {
		text = text[:maxDocumentLen]
	}
	return text
}

// UpsertTask adds or replaces the embedding for a task, keyed by task ID.
func (c *ChromaClient) UpsertTask(ctx context.Context, t domain.Task) error {
	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"user_id":  t.UserID,
		"task_id":  t.ID,
		"status":   t.Status,
		"archived": t.Archived,
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = c.collection.Upsert(ctx,
		chroma.WithIDs(chroma.DocumentID(t.ID)),
		chroma.WithMetadatas(metadata),
		chroma.WithTexts(Document(t)),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert task embedding: %w", err)
	}
	return nil
}

func (c *ChromaClient) DeleteTask(ctx context.Context, taskID string) error {
	if err := c.collection.Delete(ctx, chroma.WithIDsDelete(chroma.DocumentID(taskID))); err != nil {
		return fmt.Errorf("failed to delete task embedding: %w", err)
	}
	return nil
}

// SearchTasks returns the IDs of the user's tasks closest to query, best first.
func (c *ChromaClient) SearchTasks(ctx context.Context, userID, query string, limit int) ([]string, error) {
	results, err := c.collection.Query(ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(limit),
		chroma.WithWhereQuery(chroma.EqString("user_id", userID)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	if results == nil || results.CountGroups() == 0 {
		return []string{}, nil
	}
	idGroups := results.GetIDGroups()
	if len(idGroups) == 0 {
		return []string{}, nil
	}

	ids := make([]string, 0, len(idGroups[0]))
	for _, id := range idGroups[0] {
		ids = append(ids, string(id))
	}
	c.log.Debug("semantic search", zap.String("user", userID), zap.Int("hits", len(ids)))
	return ids, nil
}
