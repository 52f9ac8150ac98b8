package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/ledger"
)

const (
	usersKey      = "users"
	categoriesKey = "categories"
)

// DirectoryService serves users and categories through a TTL cache.
// The directory changes only through migrations, so entries simply expire.
type DirectoryService struct {
	reader     ledger.DirectoryReader
	users      *cache.LRUCache[[]core.User]
	categories *cache.LRUCache[[]core.Category]
}

func NewDirectoryService(reader ledger.DirectoryReader, ttl time.Duration) *DirectoryService {
	return &DirectoryService{
		reader:     reader,
		users:      cache.NewLRUCache[[]core.User](64, ttl),
		categories: cache.NewLRUCache[[]core.Category](64, ttl),
	}
}

// RegisterCaches hands the service caches to m for periodic cleanup.
func (s *DirectoryService) RegisterCaches(m *cache.Manager) {
	m.Register("directory_users", s.users)
	m.Register("directory_categories", s.categories)
}

func (s *DirectoryService) ListUsers(ctx context.Context) ([]core.User, error) {
	users, err := s.users.GetOrLoad(usersKey, func() ([]core.User, error) {
		return s.reader.ListUsers(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *DirectoryService) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := s.users.GetOrLoad(usersKey+":"+strconv.FormatInt(id, 10), func() ([]core.User, error) {
		u, err := s.reader.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		return []core.User{u}, nil
	})
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u[0], nil
}

func (s *DirectoryService) ListCategories(ctx context.Context) ([]core.Category, error) {
	cats, err := s.categories.GetOrLoad(categoriesKey, func() ([]core.Category, error) {
		return s.reader.ListCategories(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *DirectoryService) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := s.categories.GetOrLoad(categoriesKey+":"+strconv.FormatInt(id, 10), func() ([]core.Category, error) {
		c, err := s.reader.GetCategory(ctx, id)
		if err != nil {
			return nil, err
		}
		return []core.Category{c}, nil
	})
	if errors.Is(err, core.ErrNotFound) {
		return core.Category{}, ErrCategoryNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c[0], nil
}

// Invalidate drops all cached directory entries.
func (s *DirectoryService) Invalidate() {
	s.users.Purge()
	s.categories.Purge()
}

func (s *DirectoryService) CacheStats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"users":      s.users.Stats(),
		"categories": s.categories.Stats(),
	}
}
