package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/petpair-backend/internal/notifications"
	"github.com/angelmondragon/petpair-backend/pkg/db"
	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
	"github.com/angelmondragon/petpair-backend/pkg/pagination"
)

const pendingPairRequestConstraint = "ux_pair_requests_pending"

// SendPairRequestInput is the requester side of a pairing proposal.
type SendPairRequestInput struct {
	MyListingID uuid.UUID
	Message     string
}

var (
	errDuplicatePending = errors.New("duplicate pending pair request")
	errTargetChanged    = errors.New("target listing changed")
)

func (s *service) SendPairRequest(ctx context.Context, actorID, targetID uuid.UUID, input SendPairRequestInput) (*PairRequestDTO, error) {
	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if input.MyListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "myListingId is required")
	}
	message := strings.TrimSpace(input.Message)
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("message must be at most %d characters", MaxMessageLength))
	}

	target, err := s.load(ctx, targetID)
	if err != nil {
		return nil, err
	}
	mine, err := s.load(ctx, input.MyListingID)
	if err != nil {
		return nil, err
	}
	if err := s.applyExpiry(ctx, target); err != nil {
		return nil, err
	}
	if err := s.applyExpiry(ctx, mine); err != nil {
		return nil, err
	}

	if target.Status != enums.ListingStatusActive || target.IsBlocked {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "pair requests can only be sent to active listings").
			WithDetails(map[string]any{"status": target.Status})
	}
	if target.IsOwnedBy(actor.ID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot send a pair request to your own listing")
	}
	if !mine.IsOwnedBy(actor.ID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "the offered listing does not belong to you")
	}
	if mine.Status != enums.ListingStatusActive || mine.IsBlocked {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "your offered listing must be active").
			WithDetails(map[string]any{"status": mine.Status})
	}

	pending, err := s.repo.HasPendingPairRequest(ctx, target.ID, actor.ID, mine.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending pair requests")
	}
	if pending {
		return nil, errDuplicateRequest()
	}

	now := s.now()
	request := &models.PairRequest{
		ID:                 uuid.New(),
		ListingID:          target.ID,
		RequesterID:        actor.ID,
		RequesterListingID: mine.ID,
		Message:            message,
		Status:             enums.PairRequestPending,
		CreatedAt:          now,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByIDForUpdate(ctx, target.ID)
		if err != nil {
			return err
		}
		if current.Status != enums.ListingStatusActive || current.IsBlocked || current.IsStale(now) {
			return errTargetChanged
		}
		exists, err := repo.HasPendingPairRequest(ctx, target.ID, actor.ID, mine.ID)
		if err != nil {
			return err
		}
		if exists {
			return errDuplicatePending
		}
		if err := repo.CreatePairRequest(ctx, request); err != nil {
			return err
		}
		swapped, err := repo.CompareAndSwap(ctx, current.ID, current.Version, map[string]any{"updated_at": now})
		if err != nil {
			return err
		}
		if !swapped {
			return errTargetChanged
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, errDuplicatePending), db.IsUniqueViolation(err, pendingPairRequestConstraint):
			return nil, errDuplicateRequest()
		case errors.Is(err, errTargetChanged):
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "listing changed while sending the request, retry")
		default:
			return nil, mapLookupError(err, "listing")
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"listing_id":      target.ID.String(),
		"pair_request_id": request.ID.String(),
		"user_id":         actor.ID.String(),
		"event":           "pair_request_sent",
	}), "pair request sent")

	requesterName := strings.TrimSpace(actor.DisplayName)
	if requesterName == "" {
		requesterName = "Someone"
	}
	listingID := target.ID
	requesterID := actor.ID
	s.notify(ctx, notifications.Notice{
		UserID:        target.OwnerID,
		Kind:          enums.NotificationPairRequest,
		Title:         "New pairing request",
		Message:       fmt.Sprintf("%s sent a pairing request for your %s listing", requesterName, target.Breed),
		ListingID:     &listingID,
		RelatedUserID: &requesterID,
	})

	dto := pairRequestToDTO(*request)
	return &dto, nil
}

func (s *service) RespondToPairRequest(ctx context.Context, actorID, listingID, requestID uuid.UUID, decision string) (*PairRequestDTO, error) {
	status, err := enums.ParsePairDecision(strings.TrimSpace(decision))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "status must be accepted or rejected")
	}
	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	listing, err := s.load(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := s.applyExpiry(ctx, listing); err != nil {
		return nil, err
	}
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	request, err := s.repo.FindPairRequest(ctx, listing.ID, requestID)
	if err != nil {
		return nil, mapLookupError(err, "pair request")
	}
	if !listing.IsOwnedBy(actor.ID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the listing owner can respond to pair requests")
	}
	if request.Status != enums.PairRequestPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "pair request was already resolved").
			WithDetails(map[string]any{"status": request.Status})
	}
	if status == enums.PairRequestAccepted && listing.Status != enums.ListingStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot accept a request on a %s listing", listing.Status)).
			WithDetails(map[string]any{"status": listing.Status})
	}

	now := s.now()
	errAlreadyResolved := errors.New("pair request already resolved")
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		resolved, err := repo.ResolvePairRequest(ctx, request.ID, status, now)
		if err != nil {
			return err
		}
		if !resolved {
			return errAlreadyResolved
		}
		updates := map[string]any{"updated_at": now}
		if status == enums.PairRequestAccepted {
			updates["status"] = enums.ListingStatusPaired
		}
		swapped, err := repo.CompareAndSwap(ctx, listing.ID, listing.Version, updates)
		if err != nil {
			return err
		}
		if !swapped {
			return errTargetChanged
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, errAlreadyResolved):
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "pair request was already resolved")
		case errors.Is(err, errTargetChanged):
			return nil, errConcurrentUpdate()
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "respond to pair request")
		}
	}

	request.Status = status
	request.RespondedAt = &now
	if status == enums.PairRequestAccepted {
		listing.Status = enums.ListingStatusPaired
		s.logTransition(ctx, listing.ID, actor.ID, "listing_paired")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"listing_id":      listing.ID.String(),
		"pair_request_id": request.ID.String(),
		"user_id":         actor.ID.String(),
		"decision":        status,
		"event":           "pair_request_resolved",
	}), "pair request resolved")

	notice := notifications.Notice{
		UserID:        request.RequesterID,
		ListingID:     &listing.ID,
		RelatedUserID: &actor.ID,
	}
	if status == enums.PairRequestAccepted {
		notice.Kind = enums.NotificationPairAccepted
		notice.Title = "Your request was accepted"
		notice.Message = fmt.Sprintf("Your pairing request for the %s listing was accepted", listing.Breed)
	} else {
		notice.Kind = enums.NotificationPairRejected
		notice.Title = "Your request was rejected"
		notice.Message = fmt.Sprintf("Your pairing request for the %s listing was rejected", listing.Breed)
	}
	s.notify(ctx, notice)

	dto := pairRequestToDTO(*request)
	return &dto, nil
}

func (s *service) ListPairRequests(ctx context.Context, actorID, listingID uuid.UUID) ([]PairRequestDTO, error) {
	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	listing, err := s.load(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && !listing.IsOwnedBy(actor.ID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the owner or an admin can view pair requests")
	}
	rows, err := s.repo.ListPairRequests(ctx, listing.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pair requests")
	}
	return pairRequestsToDTO(rows), nil
}

func (s *service) ListSentPairRequests(ctx context.Context, actorID uuid.UUID, params pagination.Params) (*PairRequestListResult, error) {
	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	normalized := params.Normalize()
	rows, total, err := s.repo.ListSentPairRequests(ctx, actor.ID, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sent pair requests")
	}
	return &PairRequestListResult{
		Items:      pairRequestsToDTO(rows),
		Pagination: pagination.NewPage(normalized, total),
	}, nil
}

func errDuplicateRequest() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "a pending pair request already exists for this listing")
}
