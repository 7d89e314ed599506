package cities

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/petpair-backend/internal/listings"
	"github.com/angelmondragon/petpair-backend/pkg/db"
	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
)

const (
	nameConstraint = "cities_name_key"
	maxNameLength  = 80
)

// Service manages the city list. Write operations are admin-only and guarded by the router.
type Service interface {
	List(ctx context.Context) ([]CityDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CityDTO, error)
	Create(ctx context.Context, name string) (*CityDTO, error)
	Update(ctx context.Context, id uuid.UUID, name string) (*CityDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ResolveCity(ctx context.Context, id uuid.UUID) (listings.City, error)
}

// CityDTO is the transport view of a city.
type CityDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type citiesRepository interface {
	List(ctx context.Context) ([]models.City, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.City, error)
	Create(ctx context.Context, city *models.City) error
	Rename(ctx context.Context, id uuid.UUID, name string, at time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	CountListings(ctx context.Context, id uuid.UUID) (int64, error)
}

type service struct {
	repo citiesRepository
	now  func() time.Time
}

// NewService builds the cities service.
func NewService(repo citiesRepository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cities repository required")
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: repo, now: now}, nil
}

func (s *service) List(ctx context.Context) ([]CityDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cities")
	}
	out := make([]CityDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CityDTO, error) {
	city, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(city)
	return &dto, nil
}

func (s *service) ResolveCity(ctx context.Context, id uuid.UUID) (listings.City, error) {
	city, err := s.load(ctx, id)
	if err != nil {
		return listings.City{}, err
	}
	return listings.City{ID: city.ID, Name: city.Name}, nil
}

func (s *service) Create(ctx context.Context, name string) (*CityDTO, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	now := s.now()
	city := &models.City{ID: uuid.New(), Name: name, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.Create(ctx, city); err != nil {
		if db.IsUniqueViolation(err, nameConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "city already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create city")
	}
	dto := toDTO(city)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, name string) (*CityDTO, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	city, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if _, err := s.repo.Rename(ctx, id, name, now); err != nil {
		if db.IsUniqueViolation(err, nameConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "city already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update city")
	}
	city.Name = name
	city.UpdatedAt = now
	dto := toDTO(city)
	return &dto, nil
}

// Delete removes a city that no listing references.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	inUse, err := s.repo.CountListings(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count city listings")
	}
	if inUse > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "city is referenced by listings").
			WithDetails(map[string]any{"listings": inUse})
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete city")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "city not found")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.City, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "city id required")
	}
	city, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "city not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load city")
	}
	return city, nil
}

func normalizeName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "city name is required")
	}
	if len([]rune(name)) > maxNameLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "city name is too long")
	}
	return name, nil
}

func toDTO(city *models.City) CityDTO {
	return CityDTO{ID: city.ID, Name: city.Name, CreatedAt: city.CreatedAt, UpdatedAt: city.UpdatedAt}
}
