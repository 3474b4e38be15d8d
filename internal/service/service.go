package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nearby-offers/internal/cache"
	"nearby-offers/internal/database"
	"nearby-offers/internal/events"
	"nearby-offers/internal/features"
	"nearby-offers/internal/models"
	"nearby-offers/internal/selector"
	"nearby-offers/internal/storage"
	"nearby-offers/internal/tracing"
	"nearby-offers/internal/validation"
)

// ErrCatalogNotFound is returned when a requested catalog does not exist.
var ErrCatalogNotFound = database.ErrCatalogNotFound

// LatestCatalog selects the most recently stored catalog.
const LatestCatalog = "latest"

// Options holds the optional collaborators of a Service.
type Options struct {
	Cache    cache.Cache
	CacheTTL time.Duration
	Events   *events.Manager
	Features *features.Manager
}

// Service runs the nearby offer selection for documents and stored catalogs.
type Service struct {
	db       *database.DB
	cache    cache.Cache
	cacheTTL time.Duration
	events   *events.Manager
	features *features.Manager
	now      func() time.Time
}

// NewService creates a new service instance. db may be nil when only
// documents are filtered.
func NewService(db *database.DB, opts Options) *Service {
	if opts.Events == nil {
		opts.Events = events.NewManager(false)
	}
	if opts.Features == nil {
		opts.Features = features.NewManager()
	}
	return &Service{
		db:       db,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		events:   opts.Events,
		features: opts.Features,
		now:      time.Now,
	}
}

// FilterDocument validates an offers document and returns the selected
// offers for checkin.
func (s *Service) FilterDocument(ctx context.Context, data []byte, checkin time.Time) ([]models.SelectedOffer, error) {
	ctx, span := tracing.GetTracer().StartSpan(ctx, "service.FilterDocument")
	defer span.End()

	selected, err := s.filter(ctx, data, checkin)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	s.publishSelection(ctx, "", checkin, selected, false)
	return selected, nil
}

func (s *Service) filter(ctx context.Context, data []byte, checkin time.Time) ([]models.SelectedOffer, error) {
	tracer := tracing.GetTracer()

	_, span := tracer.StartSpan(ctx, "offers.validate")
	offers, err := validation.Decode(data)
	if err != nil {
		recordError(span, err)
		span.End()
		return nil, err
	}
	span.SetAttributes(attribute.Int("offers.count", len(offers)))
	span.End()

	_, span = tracer.StartSpan(ctx, "offers.select")
	table := selector.Select(offers, checkin)
	span.SetAttributes(
		attribute.String("offers.checkin", checkin.Format(models.DateLayout)),
		attribute.Int("offers.winners", len(table.Winners())),
	)
	span.End()

	_, span = tracer.StartSpan(ctx, "offers.rank")
	selected := selector.Rank(table, selector.MaxResults)
	span.SetAttributes(attribute.Int("offers.selected", len(selected)))
	span.End()

	slog.DebugContext(ctx, "offers selected",
		"offers", len(offers),
		"selected", len(selected),
		"checkin", checkin.Format(models.DateLayout))

	return selected, nil
}

// StoreCatalog validates an offers document and stores it under a new id.
func (s *Service) StoreCatalog(ctx context.Context, data []byte) (models.Catalog, error) {
	if s.db == nil {
		return models.Catalog{}, errors.New("catalog storage is not configured")
	}

	_, span := tracing.GetTracer().StartSpan(ctx, "service.StoreCatalog")
	defer span.End()

	offers, err := validation.Decode(data)
	if err != nil {
		recordError(span, err)
		return models.Catalog{}, err
	}

	catalog := models.Catalog{
		ID:         uuid.New().String(),
		OfferCount: len(offers),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.db.InsertCatalog(catalog, data); err != nil {
		recordError(span, err)
		return models.Catalog{}, err
	}
	span.SetAttributes(attribute.String("catalog.id", catalog.ID))

	if s.features.IsEnabled(features.FeatureEventHooksEnabled) {
		s.events.PublishCatalogStored(ctx, catalog)
	}
	return catalog, nil
}

// ListCatalogs returns up to limit stored catalogs, newest first.
func (s *Service) ListCatalogs(ctx context.Context, limit int) ([]models.Catalog, error) {
	if s.db == nil {
		return nil, errors.New("catalog storage is not configured")
	}
	return s.db.ListCatalogs(limit)
}

// FilterCatalog selects offers from a stored catalog. An empty id or
// LatestCatalog picks the most recent one. Results are cached per catalog
// and check-in date when the cache feature is on.
func (s *Service) FilterCatalog(ctx context.Context, catalogID string, checkin time.Time) ([]models.SelectedOffer, error) {
	if s.db == nil {
		return nil, errors.New("catalog storage is not configured")
	}

	ctx, span := tracing.GetTracer().StartSpan(ctx, "service.FilterCatalog")
	defer span.End()

	var (
		catalog  models.Catalog
		document []byte
		err      error
	)
	if catalogID == "" || catalogID == LatestCatalog {
		catalog, document, err = s.db.GetLatestCatalog()
		if err != nil {
			recordError(span, err)
			return nil, err
		}
		catalogID = catalog.ID
	}
	span.SetAttributes(attribute.String("catalog.id", catalogID))

	useCache := s.cache != nil && s.features.IsEnabled(features.FeatureCacheEnabled)
	key := cache.SelectionKey(catalogID, checkin)
	if useCache {
		var cached []models.SelectedOffer
		err := cache.GetJSON(ctx, s.cache, key, &cached)
		switch {
		case err == nil:
			span.SetAttributes(attribute.Bool("cache.hit", true))
			s.publishSelection(ctx, catalogID, checkin, cached, true)
			return cached, nil
		case !errors.Is(err, cache.ErrNotFound):
			slog.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		}
	}

	if document == nil {
		_, document, err = s.db.GetCatalog(catalogID)
		if err != nil {
			recordError(span, err)
			return nil, err
		}
	}

	selected, err := s.filter(ctx, document, checkin)
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("catalog %s: %w", catalogID, err)
	}

	if useCache {
		if err := cache.SetJSON(ctx, s.cache, key, selected, s.cacheTTL); err != nil {
			slog.WarnContext(ctx, "cache write failed", "key", key, "error", err)
		}
	}

	s.publishSelection(ctx, catalogID, checkin, selected, false)
	return selected, nil
}

// Run loads the document at input, filters it for checkin and writes the
// output document to output.
func (s *Service) Run(ctx context.Context, store storage.Store, input, output string, checkin time.Time) ([]models.SelectedOffer, error) {
	ctx, span := tracing.GetTracer().StartSpan(ctx, "service.Run")
	defer span.End()

	data, err := store.Load(ctx, input)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	selected, err := s.FilterDocument(ctx, data, checkin)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	encoded, err := models.NewOutputDocument(selected).Encode()
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to encode output: %w", err)
	}
	if err := store.Save(ctx, output, encoded); err != nil {
		recordError(span, err)
		return nil, err
	}

	return selected, nil
}

func (s *Service) publishSelection(ctx context.Context, catalogID string, checkin time.Time, selected []models.SelectedOffer, cacheHit bool) {
	if !s.features.IsEnabled(features.FeatureEventHooksEnabled) {
		return
	}
	s.events.PublishSelectionCompleted(ctx, events.SelectionCompletedData{
		RunID:     uuid.New().String(),
		CatalogID: catalogID,
		Checkin:   checkin,
		Offers:    selected,
		CacheHit:  cacheHit,
	})
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
