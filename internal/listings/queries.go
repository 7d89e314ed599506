package listings

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
	"github.com/angelmondragon/petpair-backend/pkg/pagination"
	"github.com/angelmondragon/petpair-backend/pkg/visibility"
)

// ListQuery carries optional narrowing filters plus pagination.
type ListQuery struct {
	Page    int
	Limit   int
	CityID  *uuid.UUID
	Species string
	Sex     string
	Status  string
}

// SearchQuery is a free-text search over breed and description.
type SearchQuery struct {
	Query   string
	Page    int
	Limit   int
	CityID  *uuid.UUID
	Species string
	Sex     string
}

func (s *service) Get(ctx context.Context, actorID, id uuid.UUID) (*ListingDTO, error) {
	viewer, err := s.viewer(ctx, actorID)
	if err != nil {
		return nil, err
	}
	listing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := visibility.EnsureListingVisible(visibility.ListingVisibilityInput{
		Listing: listing,
		Viewer:  visibility.Viewer{UserID: viewer.ID, IsAdmin: viewer.IsAdmin},
	}); err != nil {
		return nil, err
	}
	if err := s.applyExpiry(ctx, listing); err != nil {
		return nil, err
	}

	if !listing.IsOwnedBy(viewer.ID) {
		views, err := s.repo.IncrementViews(ctx, listing.ID)
		if err != nil {
			return nil, mapLookupError(err, "listing")
		}
		listing.Views = views
	}

	dto := s.toDTO(ctx, listing, viewer, nil, nil)
	return &dto, nil
}

func (s *service) ListPublic(ctx context.Context, actorID uuid.UUID, query ListQuery) (*ListResult, error) {
	viewer, err := s.viewer(ctx, actorID)
	if err != nil {
		return nil, err
	}
	filter, err := buildFilter(query)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin {
		filter.PublicOnly = true
		filter.Status = nil
	}
	return s.list(ctx, viewer, filter)
}

func (s *service) ListByCity(ctx context.Context, cityID uuid.UUID, query ListQuery) (*ListResult, error) {
	if cityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "city id required")
	}
	if _, err := s.resolveCity(ctx, cityID); err != nil {
		return nil, err
	}
	query.CityID = &cityID
	query.Status = ""
	filter, err := buildFilter(query)
	if err != nil {
		return nil, err
	}
	filter.PublicOnly = true
	return s.list(ctx, Identity{}, filter)
}

func (s *service) Search(ctx context.Context, query SearchQuery) (*ListResult, error) {
	text := strings.TrimSpace(query.Query)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}
	filter, err := buildFilter(ListQuery{
		Page:    query.Page,
		Limit:   query.Limit,
		CityID:  query.CityID,
		Species: query.Species,
		Sex:     query.Sex,
	})
	if err != nil {
		return nil, err
	}
	filter.PublicOnly = true
	filter.Text = text
	return s.list(ctx, Identity{}, filter)
}

func (s *service) ListByOwner(ctx context.Context, actorID, ownerID uuid.UUID, query ListQuery) (*ListResult, error) {
	viewer, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if ownerID == uuid.Nil {
		ownerID = viewer.ID
	}
	if ownerID != viewer.ID && !viewer.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you can only list your own listings")
	}
	filter, err := buildFilter(query)
	if err != nil {
		return nil, err
	}
	filter.OwnerID = &ownerID
	return s.list(ctx, viewer, filter)
}

func (s *service) Hydrate(ctx context.Context, actorID uuid.UUID, ids []uuid.UUID) ([]ListingDTO, error) {
	viewer, err := s.viewer(ctx, actorID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listings")
	}
	byID := make(map[uuid.UUID]*models.Listing, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	owners := map[uuid.UUID]string{}
	cities := map[uuid.UUID]string{}
	out := make([]ListingDTO, 0, len(ids))
	for _, id := range ids {
		listing, ok := byID[id]
		if !ok {
			continue
		}
		if visibility.EnsureListingVisible(visibility.ListingVisibilityInput{
			Listing: listing,
			Viewer:  visibility.Viewer{UserID: viewer.ID, IsAdmin: viewer.IsAdmin},
		}) != nil {
			continue
		}
		if err := s.applyExpiry(ctx, listing); err != nil {
			return nil, err
		}
		out = append(out, s.toDTO(ctx, listing, viewer, owners, cities))
	}
	return out, nil
}

func (s *service) list(ctx context.Context, viewer Identity, filter ListFilter) (*ListResult, error) {
	filter.Now = s.now()
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listings")
	}

	owners := map[uuid.UUID]string{}
	cities := map[uuid.UUID]string{}
	items := make([]ListingDTO, 0, len(rows))
	for i := range rows {
		listing := &rows[i]
		if err := s.applyExpiry(ctx, listing); err != nil {
			return nil, err
		}
		items = append(items, s.toDTO(ctx, listing, viewer, owners, cities))
	}
	return &ListResult{
		Items:      items,
		Pagination: pagination.NewPage(filter.Page, total),
	}, nil
}

func buildFilter(query ListQuery) (ListFilter, error) {
	filter := ListFilter{
		CityID: query.CityID,
		Page:   pagination.Params{Page: query.Page, Limit: query.Limit}.Normalize(),
	}
	if raw := strings.TrimSpace(query.Species); raw != "" {
		species, err := enums.ParseSpecies(raw)
		if err != nil {
			return ListFilter{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "species filter is invalid")
		}
		filter.Species = &species
	}
	if raw := strings.TrimSpace(query.Sex); raw != "" {
		sex, err := enums.ParsePetSex(raw)
		if err != nil {
			return ListFilter{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "sex filter is invalid")
		}
		filter.Sex = &sex
	}
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status, err := enums.ParseListingStatus(raw)
		if err != nil {
			return ListFilter{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "status filter is invalid")
		}
		filter.Status = &status
	}
	return filter, nil
}
