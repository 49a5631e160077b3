package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/insighted/schoolprofile/internal/logger"
	"github.com/insighted/schoolprofile/internal/metrics"
	"github.com/insighted/schoolprofile/internal/models"
	"github.com/insighted/schoolprofile/internal/reference"
)

var referenceTracer = otel.Tracer("schoolprofile/services/reference")

// IndexProvider yields the current reference index. *reference.Loader
// implements it.
type IndexProvider interface {
	Index(ctx context.Context) (*reference.Index, error)
	Reload(ctx context.Context) (*reference.Index, error)
	Status() reference.Status
}

// ReferenceService defines the reference lookups used by the profile form.
type ReferenceService interface {
	// Options lists the values at level consistent with the chosen parents.
	// Returns ErrInvalidLevel for an unknown level and an empty slice when
	// the parents have no children.
	Options(ctx context.Context, level string, parents models.Hierarchy) ([]string, error)

	// DistrictsOf lists the districts of a division.
	DistrictsOf(ctx context.Context, division string) ([]string, error)

	// ResolveByID returns the candidate for a school id, tolerating a
	// trailing ".suffix". Returns ErrCandidateNotFound when absent.
	ResolveByID(ctx context.Context, id string) (*models.ResolvedCandidate, error)

	// ResolveByName returns the first candidate whose name matches,
	// ignoring case. Returns ErrCandidateNotFound when absent.
	ResolveByName(ctx context.Context, name string) (*models.ResolvedCandidate, error)

	// Normalize maps raw hierarchy values onto canonical options.
	Normalize(ctx context.Context, raw models.Hierarchy) (models.Hierarchy, error)

	// Reload rebuilds the index from its source.
	Reload(ctx context.Context) (reference.Status, error)

	Status() reference.Status
}

type referenceService struct {
	provider IndexProvider
	metrics  *metrics.Metrics
	log      *logger.Logger
}

// NewReferenceService creates a new instance of ReferenceService.
func NewReferenceService(provider IndexProvider, m *metrics.Metrics, log *logger.Logger) ReferenceService {
	return &referenceService{
		provider: provider,
		metrics:  m,
		log:      log,
	}
}

// index returns the current index. Every failure is reported as
// ErrReferenceUnavailable.
func (s *referenceService) index(ctx context.Context) (*reference.Index, error) {
	ix, err := s.provider.Index(ctx)
	if err != nil {
		s.log.Warn("Reference data unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("%w: %w", ErrReferenceUnavailable, err)
	}
	return ix, nil
}

func (s *referenceService) Options(ctx context.Context, level string, parents models.Hierarchy) ([]string, error) {
	l, ok := models.ParseLevel(level)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}
	ix, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	return ix.OptionsFor(l, parents), nil
}

func (s *referenceService) DistrictsOf(ctx context.Context, division string) ([]string, error) {
	ix, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	return ix.DistrictsOf(division), nil
}

func (s *referenceService) ResolveByID(ctx context.Context, id string) (*models.ResolvedCandidate, error) {
	ctx, span := referenceTracer.Start(ctx, "reference.ResolveByID")
	defer span.End()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}
	span.SetAttributes(attribute.String("school.query_id", id))

	ix, err := s.index(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	c, found := ix.ResolveByID(id)
	s.metrics.ObserveResolution("id", found)
	span.SetAttributes(attribute.Bool("reference.found", found))
	if !found {
		s.log.Debug("No reference row for id", map[string]interface{}{
			"id": id,
		})
		return nil, ErrCandidateNotFound
	}
	return &c, nil
}

func (s *referenceService) ResolveByName(ctx context.Context, name string) (*models.ResolvedCandidate, error) {
	ctx, span := referenceTracer.Start(ctx, "reference.ResolveByName")
	defer span.End()

	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	ix, err := s.index(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	c, found := ix.ResolveByName(name)
	s.metrics.ObserveResolution("name", found)
	span.SetAttributes(attribute.Bool("reference.found", found))
	if !found {
		s.log.Debug("No reference row for name", map[string]interface{}{
			"name": name,
		})
		return nil, ErrCandidateNotFound
	}
	return &c, nil
}

func (s *referenceService) Normalize(ctx context.Context, raw models.Hierarchy) (models.Hierarchy, error) {
	ix, err := s.index(ctx)
	if err != nil {
		return raw, err
	}
	return ix.NormalizeHierarchy(raw), nil
}

func (s *referenceService) Reload(ctx context.Context) (reference.Status, error) {
	ctx, span := referenceTracer.Start(ctx, "reference.Reload")
	defer span.End()

	if _, err := s.provider.Reload(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return s.provider.Status(), fmt.Errorf("%w: %w", ErrReferenceUnavailable, err)
	}
	return s.provider.Status(), nil
}

func (s *referenceService) Status() reference.Status {
	return s.provider.Status()
}
