package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/petpair-backend/api/responses"
	"github.com/angelmondragon/petpair-backend/api/validators"
	"github.com/angelmondragon/petpair-backend/internal/listings"
	"github.com/angelmondragon/petpair-backend/pkg/logger"
)

type createListingRequest struct {
	Species     string    `json:"species" validate:"required"`
	Sex         string    `json:"sex" validate:"required"`
	Breed       string    `json:"breed" validate:"required,max=80"`
	Age         *int      `json:"age,omitempty" validate:"omitempty,min=0,max=40"`
	Description string    `json:"description" validate:"max=2000"`
	Images      []string  `json:"images" validate:"omitempty,dive,required"`
	CityID      uuid.UUID `json:"cityId" validate:"required"`
}

type updateListingRequest struct {
	Species     *string    `json:"species,omitempty"`
	Sex         *string    `json:"sex,omitempty"`
	Breed       *string    `json:"breed,omitempty" validate:"omitempty,max=80"`
	Age         *int       `json:"age,omitempty" validate:"omitempty,min=0,max=40"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	Images      *[]string  `json:"images,omitempty"`
	CityID      *uuid.UUID `json:"cityId,omitempty"`
}

type extendListingRequest struct {
	Days *int `json:"days,omitempty"`
}

func listQuery(r *http.Request) (listings.ListQuery, error) {
	page, err := pageQuery(r)
	if err != nil {
		return listings.ListQuery{}, err
	}
	cityID, err := optionalUUIDQuery(r, "cityId")
	if err != nil {
		return listings.ListQuery{}, err
	}
	q := r.URL.Query()
	return listings.ListQuery{
		Page:    page.Page,
		Limit:   page.Limit,
		CityID:  cityID,
		Species: strings.TrimSpace(q.Get("species")),
		Sex:     strings.TrimSpace(q.Get("sex")),
		Status:  strings.TrimSpace(q.Get("status")),
	}, nil
}

// ListListings returns the public catalogue. Admins may filter by any status.
func ListListings(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("listings"))
			return
		}
		query, err := listQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListPublic(r.Context(), optionalActorID(r), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func SearchListings(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("listings"))
			return
		}
		base, err := listQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Search(r.Context(), listings.SearchQuery{
			Query:   validators.SanitizeString(r.URL.Query().Get("q"), 120),
			Page:    base.Page,
			Limit:   base.Limit,
			CityID:  base.CityID,
			Species: base.Species,
			Sex:     base.Sex,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("listings"))
			return
		}
		listingID, err := uuidParam(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Get(r.Context(), optionalActorID(r), listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func ListCityListings(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("listings"))
			return
		}
		cityID, err := uuidParam(r, "cityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query, err := listQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListByCity(r.Context(), cityID, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListUserListings shows another user's listings. Owners and admins also
// see blocked and expired entries.
func ListUserListings(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("listings"))
			return
		}
		ownerID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query, err := listQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListByOwner(r.Context(), optionalActorID(r), ownerID, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ListMyListings(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("listings"))
			return
		}
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query, err := listQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListByOwner(r.Context(), userID, userID, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CreateListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("listings"))
			return
		}
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createListingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Create(r.Context(), userID, listings.CreateInput{
			Species:     body.Species,
			Sex:         body.Sex,
			Breed:       body.Breed,
			Age:         body.Age,
			Description: body.Description,
			Images:      body.Images,
			CityID:      body.CityID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

func UpdateListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("listings"))
			return
		}
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := uuidParam(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateListingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Update(r.Context(), userID, listingID, listings.UpdateInput{
			Species:     body.Species,
			Sex:         body.Sex,
			Breed:       body.Breed,
			Age:         body.Age,
			Description: body.Description,
			Images:      body.Images,
			CityID:      body.CityID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

// DeleteListing removes a listing. Admin callers may pass ?reason= which is
// forwarded to the owner.
func DeleteListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("listings"))
			return
		}
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := uuidParam(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reason := validators.SanitizeString(r.URL.Query().Get("reason"), 500)
		if err := svc.Delete(r.Context(), userID, listingID, reason); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func ExtendListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("listings"))
			return
		}
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := uuidParam(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body extendListingRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		listing, err := svc.Extend(r.Context(), userID, listingID, body.Days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func ToggleListingBlock(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("listings"))
			return
		}
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := uuidParam(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.ToggleBlock(r.Context(), userID, listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}
