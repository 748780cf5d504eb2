package revision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/mathboard/internal/rubric"
)

const defaultMaxAttempts = 3

// ErrPriorVersionMissing is returned by Revise when the assignment has no
// rubric yet. A rubric must be generated before it can be edited.
var ErrPriorVersionMissing = fmt.Errorf("no previous rubric for assignment: %w", ErrNotFound)

// ServiceConfig holds dependencies for the revision service.
type ServiceConfig struct {
	Store       Store
	Publisher   Publisher // optional; defaults to NopPublisher
	MaxAttempts int       // version-conflict retries for Revise (default 3)
}

// Service applies the revision policy: edited text becomes the next rubric version.
type Service struct {
	store       Store
	publisher   Publisher
	maxAttempts int
}

// NewService creates a revision service.
func NewService(cfg ServiceConfig) *Service {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = NopPublisher{}
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	return &Service{
		store:       store,
		publisher:   publisher,
		maxAttempts: attempts,
	}
}

// Revise parses editedText against the latest version of the assignment's
// rubric and stores the result as the next version, together with a change
// entry that requests a regrade. Unparsable text keeps the previous content
// under the new version number.
func (s *Service) Revise(ctx context.Context, assignmentID, editedText string) (Change, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		prev, err := s.store.Latest(ctx, assignmentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Change{}, ErrPriorVersionMissing
			}
			return Change{}, fmt.Errorf("load latest rubric: %w", err)
		}

		parsed := rubric.Parse(editedText, &prev.Rubric)
		if parsed == &prev.Rubric {
			slog.Info("rubric edit had no recognizable questions, keeping previous content",
				"assignment_id", assignmentID,
				"version", prev.Version,
			)
		}

		change := Change{
			AssignmentID:     assignmentID,
			OldVersion:       prev.Version,
			NewVersion:       prev.Version + 1,
			TriggeredRegrade: true,
			CreatedAt:        time.Now(),
		}

		_, err = s.store.Append(ctx, *parsed, change)
		if errors.Is(err, ErrVersionConflict) {
			lastErr = err
			slog.Warn("rubric version conflict, retrying",
				"assignment_id", assignmentID,
				"version", change.NewVersion,
				"attempt", attempt,
			)
			continue
		}
		if err != nil {
			return Change{}, fmt.Errorf("store rubric version: %w", err)
		}

		slog.Info("rubric revised",
			"assignment_id", assignmentID,
			"old_version", change.OldVersion,
			"new_version", change.NewVersion,
			"questions", len(parsed.Questions),
		)
		s.publish(ctx, change)
		return change, nil
	}
	return Change{}, fmt.Errorf("store rubric version after %d attempts: %w", s.maxAttempts, lastErr)
}

// Create stores the first version of an assignment's rubric.
func (s *Service) Create(ctx context.Context, assignmentID string, r *rubric.Rubric) (Version, error) {
	if r.IsEmpty() {
		return Version{}, rubric.ErrEmptyRubric
	}
	v, err := s.store.Create(ctx, assignmentID, *r)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return Version{}, err
		}
		return Version{}, fmt.Errorf("store initial rubric: %w", err)
	}
	slog.Info("rubric created", "assignment_id", assignmentID, "questions", len(r.Questions))
	return v, nil
}

// Latest returns the newest version of an assignment's rubric.
func (s *Service) Latest(ctx context.Context, assignmentID string) (Version, error) {
	return s.store.Latest(ctx, assignmentID)
}

// Get returns a specific version.
func (s *Service) Get(ctx context.Context, assignmentID string, version int) (Version, error) {
	return s.store.Get(ctx, assignmentID, version)
}

// Versions lists all versions, newest first.
func (s *Service) Versions(ctx context.Context, assignmentID string) ([]Version, error) {
	return s.store.Versions(ctx, assignmentID)
}

// Changes lists the change log, oldest first.
func (s *Service) Changes(ctx context.Context, assignmentID string) ([]Change, error) {
	return s.store.Changes(ctx, assignmentID)
}

func (s *Service) publish(ctx context.Context, change Change) {
	if err := s.publisher.Publish(ctx, change); err != nil {
		slog.Error("failed to publish rubric change",
			"assignment_id", change.AssignmentID,
			"new_version", change.NewVersion,
			"error", err,
		)
	}
}
