package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	catalogerrors "wanderly/internal/catalog/errors"
	"wanderly/internal/catalog/repository"
	"wanderly/pkg/client"
	"wanderly/pkg/config"
	apperrors "wanderly/pkg/errors"
	"wanderly/pkg/logger"
	"wanderly/pkg/model"
)

// Service exposes the listing reference data the booking coordinator needs.
type Service interface {
	GetListing(ctx context.Context, id string) (*model.Listing, error)
}

type catalogService struct {
	repo repository.ListingRepository
	log  *logger.Logger
}

// NewService returns the Mongo-backed catalog. When CatalogBaseURL is set the
// remote HTTP catalog is used instead; see NewHTTPService.
func NewService(cfg *config.Config) Service {
	if cfg.CatalogBaseURL != "" {
		return NewHTTPService(cfg.CatalogBaseURL, cfg.Log)
	}
	return &catalogService{
		repo: repository.NewMongoListingRepository(cfg),
		log:  cfg.Log,
	}
}

func (s *catalogService) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrNotFound) || errors.Is(err, catalogerrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("listing", id)
		}
		return nil, apperrors.StorageUnavailable("catalog lookup", err)
	}
	return listing, nil
}

type httpCatalogService struct {
	client *client.HTTPClient
	log    *logger.Logger
}

// NewHTTPService talks to an external catalog deployment.
func NewHTTPService(baseURL string, log *logger.Logger) Service {
	return &httpCatalogService{
		client: client.NewHTTPClient(baseURL),
		log:    log,
	}
}

func (s *httpCatalogService) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	resp, err := s.client.Get(ctx, "/api/v1/listings/"+id)
	if err != nil {
		s.log.Error("Catalog request failed", "listing_id", id, "error", err)
		return nil, apperrors.StorageUnavailable("catalog lookup", catalogerrors.ErrUnreachable)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, apperrors.NotFoundWithID("listing", id)
	default:
		return nil, apperrors.StorageUnavailable("catalog lookup",
			fmt.Errorf("catalog returned status %d", resp.StatusCode))
	}

	var listing model.Listing
	if err := resp.DecodeJSON(&listing); err != nil {
		return nil, apperrors.Internal("failed to decode catalog response", err)
	}

	return &listing, nil
}
