// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package showcase

import (
	"context"
	"errors"
	"slices"

	"github.com/go-kit/kit/endpoint"
	"github.com/xmidt-org/sallust"
	"github.com/xmidt-org/showcase/model"
	"github.com/xmidt-org/showcase/store"
	"go.uber.org/zap"
)

// Service is the part of the Coordinator the HTTP surface uses.
type Service interface {
	CreateShare(CreateRequest) (CreateResult, error)
	CreateCaptureShare(req CaptureRequest, report func(CreateResult)) (CreateResult, error)
	NotifyOpened(category model.Category, actor model.Actor, snapshot model.Snapshot) bool
	ViewShare(viewer model.Actor, ref model.Reference) ViewResult
	Describe(viewer model.Actor, ref model.Reference) ViewResult
	GetEntry(ref model.Reference) (model.Entry, bool)
	CancelShare(requester model.Actor, ref model.Reference) bool
	ForceCancel(ref model.Reference) bool
	CancelAllForPlayer(owner model.Actor) int
	ListLiveReferences() []model.Reference
	SharesOwnedBy(owner model.Actor) map[model.Reference]model.Entry
	IsOnCooldown(actor model.Actor, category model.Category) bool
	RemainingCooldownSeconds(actor model.Actor, category model.Category) int
}

var _ Service = (*Coordinator)(nil)

func newCreateShareEndpoint(s Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*createShareRequest)
		if req.Owner != req.Initiator && !req.adminMode {
			return nil, errForeignOwner
		}
		result, err := s.CreateShare(req.CreateRequest)
		if err != nil {
			return nil, err
		}
		if result.Status == Denied {
			return nil, errCreationDenied
		}
		return &result, nil
	}
}

func newCaptureShareEndpoint(s Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*CaptureRequest)
		// the request context is gone by the time the capture resolves
		logger := sallust.Get(ctx).With(
			zap.Stringer("initiator", req.Initiator),
			zap.String("category", string(req.Category)),
		)
		result, err := s.CreateCaptureShare(*req, func(r CreateResult) {
			logger.Info("capture finished",
				zap.Stringer("status", r.Status),
				zap.String("reference", string(r.Reference)),
				zap.String("message", r.Message),
			)
		})
		if errors.Is(err, ErrNotCaptureCategory) {
			return nil, store.BadRequestErr{Message: err.Error()}
		}
		if err != nil {
			return nil, err
		}
		return &result, nil
	}
}

func newOpenedEndpoint(s Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*openedRequest)
		return &openedResponse{
			Resolved: s.NotifyOpened(req.category, req.actor, req.snapshot),
		}, nil
	}
}

func newListSharesEndpoint(s Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*listSharesRequest)
		if req.adminMode {
			return s.ListLiveReferences(), nil
		}
		if !req.hasActor {
			return nil, errActorMissing
		}
		refs := []model.Reference{}
		for ref := range s.SharesOwnedBy(req.actor) {
			refs = append(refs, ref)
		}
		slices.Sort(refs)
		return refs, nil
	}
}

func newGetShareEndpoint(s Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*referenceRequest)
		notFound := store.ReferenceNotFoundError{Reference: req.reference}
		if req.adminMode {
			entry, ok := s.GetEntry(req.reference)
			if !ok {
				return nil, notFound
			}
			resp := newShareResponse(req.reference, entry)
			return &resp, nil
		}
		var viewer model.Actor
		if req.hasActor {
			viewer = req.actor
		}
		result := s.Describe(viewer, req.reference)
		switch result.Status {
		case Granted:
			resp := newShareResponse(req.reference, result.Entry)
			return &resp, nil
		case NotRecipient:
			if !req.hasActor {
				return nil, errActorMissing
			}
			return nil, errNotRecipient
		default:
			return nil, notFound
		}
	}
}

func newViewShareEndpoint(s Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*referenceRequest)
		if !req.hasActor {
			return nil, errActorMissing
		}
		result := s.ViewShare(req.actor, req.reference)
		switch result.Status {
		case Granted:
			return &viewResponse{
				Reference: req.reference,
				Snapshot:  result.Snapshot(),
				ViewCount: result.Entry.ViewCount,
			}, nil
		case NotRecipient:
			return nil, errNotRecipient
		case ViewDenied:
			return nil, errViewDenied
		default:
			return nil, store.ReferenceNotFoundError{Reference: req.reference}
		}
	}
}

func newCancelShareEndpoint(s Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*referenceRequest)
		notFound := store.ReferenceNotFoundError{Reference: req.reference}
		if req.adminMode {
			if !s.ForceCancel(req.reference) {
				return nil, notFound
			}
			return nil, nil
		}
		if !req.hasActor {
			return nil, errActorMissing
		}
		if _, ok := s.GetEntry(req.reference); !ok {
			return nil, notFound
		}
		if !s.CancelShare(req.actor, req.reference) {
			return nil, errNotShareOwner
		}
		return nil, nil
	}
}

func newCancelAllEndpoint(s Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*ownerRequest)
		if !req.adminMode {
			return nil, errAdminRequired
		}
		return &cancelAllResponse{Cancelled: s.CancelAllForPlayer(req.owner)}, nil
	}
}

func newCooldownEndpoint(s Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*cooldownRequest)
		return &cooldownResponse{
			OnCooldown:       s.IsOnCooldown(req.actor, req.category),
			RemainingSeconds: s.RemainingCooldownSeconds(req.actor, req.category),
		}, nil
	}
}
