package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/petpair-backend/api/responses"
	"github.com/angelmondragon/petpair-backend/api/validators"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
	"github.com/angelmondragon/petpair-backend/pkg/logger"
	"github.com/angelmondragon/petpair-backend/pkg/storage"
)

// ImageStore is the object storage used for listing photos.
type ImageStore interface {
	PresignListingImage(ctx context.Context, userID uuid.UUID, contentType string) (*storage.Upload, error)
	Delete(ctx context.Context, key string) error
}

type presignImageRequest struct {
	FileName    string `json:"fileName" validate:"max=255"`
	ContentType string `json:"contentType" validate:"required"`
}

type deleteImageRequest struct {
	Key string `json:"key" validate:"required,max=512"`
}

func errUploadsDisabled() error {
	return pkgerrors.New(pkgerrors.CodeDependency, "image uploads are not configured")
}

// PresignListingImage hands the client a short-lived PUT URL. The returned
// publicUrl is what goes into a listing's images.
func PresignListingImage(store ImageStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, errUploadsDisabled())
			return
		}
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body presignImageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		upload, err := store.PresignListingImage(r.Context(), userID, body.ContentType)
		if err != nil {
			if errors.Is(err, storage.ErrUnsupportedContentType) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported image type").WithDetails(map[string]any{"field": "contentType"}))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presign image upload"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, upload)
	}
}

// DeleteListingImage removes an uploaded object. Callers may only remove keys
// under their own prefix.
func DeleteListingImage(store ImageStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, errUploadsDisabled())
			return
		}
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body deleteImageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key := strings.TrimLeft(strings.TrimSpace(body.Key), "/")
		if !strings.HasPrefix(key, "listings/"+userID.String()+"/") || strings.Contains(key, "..") {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "image does not belong to caller"))
			return
		}

		if err := store.Delete(r.Context(), key); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete image"))
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
