// Package category resolves free-text category hints from statement imports
// to stable per-user category codes, creating categories on first sight.
package category

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("category not found")

type Category struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Code      string
	Name      string
	CreatedAt time.Time
}

type Repository interface {
	// FindByName matches case-insensitively on the display name.
	FindByName(ctx context.Context, userID uuid.UUID, name string) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ResolveOrCreate returns the code for a named category, creating it when
// the user has no category by that name yet. An empty name resolves to an
// empty code.
func (s *Service) ResolveOrCreate(ctx context.Context, userID uuid.UUID, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}

	existing, err := s.repo.FindByName(ctx, userID, name)
	if err == nil {
		return existing.Code, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	c := &Category{
		UserID: userID,
		Code:   slugify(name),
		Name:   name,
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return "", err
	}

	return c.Code, nil
}

// slugify turns a display name into a code: lowercase, non-alphanumerics
// collapsed to single hyphens.
func slugify(name string) string {
	var b strings.Builder

	lastHyphen := true // suppress a leading hyphen

	for _, r := range strings.ToLower(name) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if isAlnum {
			b.WriteRune(r)
			lastHyphen = false

			continue
		}

		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
