package controllers

import (
	"net/http"

	"github.com/angelmondragon/petpair-backend/api/responses"
	"github.com/angelmondragon/petpair-backend/api/validators"
	"github.com/angelmondragon/petpair-backend/internal/cities"
	"github.com/angelmondragon/petpair-backend/pkg/logger"
)

type cityRequest struct {
	Name string `json:"name" validate:"required,min=2,max=80"`
}

func ListCities(svc cities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cities"))
			return
		}
		items, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

func GetCity(svc cities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cities"))
			return
		}
		cityID, err := uuidParam(r, "cityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		city, err := svc.Get(r.Context(), cityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, city)
	}
}

func AdminCreateCity(svc cities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cities"))
			return
		}
		var body cityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		city, err := svc.Create(r.Context(), body.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, city)
	}
}

func AdminUpdateCity(svc cities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cities"))
			return
		}
		cityID, err := uuidParam(r, "cityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body cityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		city, err := svc.Update(r.Context(), cityID, body.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, city)
	}
}

func AdminDeleteCity(svc cities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cities"))
			return
		}
		cityID, err := uuidParam(r, "cityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), cityID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
