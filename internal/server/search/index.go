// Package search keeps an external group index synchronized with lifecycle
// events. The index entry is keyed by group id and carries the denormalized
// fields used for searching.
package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/openpaas/groupd/uid"
)

// Document is one denormalized index entry.
type Document struct {
	ID    uid.ID
	Name  string
	Email string
}

// Index is the consumer-side contract of the search backend.
type Index interface {
	Upsert(ctx context.Context, doc Document) error
	Delete(ctx context.Context, id uid.ID) error
}

// redisIndex stores documents as redis hashes under groups:index:<id>.
type redisIndex struct {
	client *redis.Client
}

// Options configures the redis search backend. A zero Host disables redis
// and falls back to the in-memory index.
type Options struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Options  string `yaml:"options"`
}

// NewIndex returns a redis-backed index, or an in-memory one when no redis
// host is configured.
func NewIndex(options Options) (Index, error) {
	if options.Host == "" {
		return NewMemoryIndex(), nil
	}

	redisOptions, err := redis.ParseURL(fmt.Sprintf("redis://%s:%d?%s", options.Host, options.Port, options.Options))
	if err != nil {
		return nil, fmt.Errorf("invalid redis options: %w", err)
	}
	redisOptions.Username = options.Username
	redisOptions.Password = options.Password

	return &redisIndex{client: redis.NewClient(redisOptions)}, nil
}

func indexKey(id uid.ID) string {
	return "groups:index:" + id.String()
}

func (i *redisIndex) Upsert(ctx context.Context, doc Document) error {
	return i.client.HSet(ctx, indexKey(doc.ID),
		"name", doc.Name,
		"email", doc.Email,
	).Err()
}

func (i *redisIndex) Delete(ctx context.Context, id uid.ID) error {
	return i.client.Del(ctx, indexKey(id)).Err()
}

// MemoryIndex holds documents in process. Used when redis is not configured
// and by tests.
type MemoryIndex struct {
	mu   sync.Mutex
	docs map[uid.ID]Document
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[uid.ID]Document)}
}

func (i *MemoryIndex) Upsert(_ context.Context, doc Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.docs[doc.ID] = doc
	return nil
}

func (i *MemoryIndex) Delete(_ context.Context, id uid.ID) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.docs, id)
	return nil
}

// Get returns the stored document, for tests and diagnostics.
func (i *MemoryIndex) Get(id uid.ID) (Document, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	doc, ok := i.docs[id]
	return doc, ok
}
