// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package showcase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/xmidt-org/bascule"
	"github.com/xmidt-org/httpaux/erraux"
	"github.com/xmidt-org/sallust"
	"github.com/xmidt-org/showcase/model"
	"github.com/xmidt-org/showcase/store"
	"go.uber.org/zap"
)

// request URL path keys
const (
	referenceVarKey = "reference"
	ownerVarKey     = "owner"
	actorVarKey     = "actor"
	categoryVarKey  = "category"
)

// Request and Response Headers
const (
	ActorHeaderKey = "X-Showcase-Actor"
	ErrorHeaderKey = "X-Showcase-Error"
)


// ErrCasting indicates there was a middleware wiring mistake with the go-kit style
// encoders.
var ErrCasting = errors.New("casting error due to middleware wiring mistake")

var (
	errActorMissing   = &erraux.Error{Err: errors.New("the " + ActorHeaderKey + " header must be set"), Code: http.StatusUnauthorized}
	errAdminRequired  = &erraux.Error{Err: errors.New("admin credentials are required"), Code: http.StatusForbidden}
	errNotShareOwner  = &erraux.Error{Err: errors.New("only the share owner may do that"), Code: http.StatusForbidden}
	errForeignOwner   = &erraux.Error{Err: errors.New("sharing someone else's content requires admin credentials"), Code: http.StatusForbidden}
	errViewDenied     = &erraux.Error{Err: errors.New("viewing this share was denied"), Code: http.StatusForbidden}
	errNotRecipient   = &erraux.Error{Err: errors.New("this share is restricted to other recipients"), Code: http.StatusForbidden}
	errCreationDenied = &erraux.Error{Err: errors.New("creating this share was denied"), Code: http.StatusForbidden}
)

// isAdmin reports whether the request went through the admin authentication
// chain, which leaves its bascule.Authentication in the context.
func isAdmin(ctx context.Context) bool {
	_, ok := bascule.FromContext(ctx)
	return ok
}

// Request ttls are seconds. The upper bound keeps the conversion to a
// time.Duration from overflowing; the configured MaxTTL caps it further.
type createShareBody struct {
	Owner       string   `json:"owner" validate:"omitempty,uuid"`
	Category    string   `json:"category" validate:"required"`
	Snapshot    any      `json:"snapshot" validate:"required"`
	TTL         int64    `json:"ttl" validate:"gte=0,lte=2147483647"`
	Recipients  []string `json:"recipients" validate:"dive,uuid"`
	Description string   `json:"description" validate:"max=256"`
}

type captureShareBody struct {
	Category       string   `json:"category" validate:"required"`
	TTL            int64    `json:"ttl" validate:"gte=0,lte=2147483647"`
	Recipients     []string `json:"recipients" validate:"dive,uuid"`
	Description    string   `json:"description" validate:"max=256"`
	TimeoutMessage string   `json:"timeoutMessage" validate:"max=256"`
}

type openedBody struct {
	Snapshot any `json:"snapshot"`
}

// capturedSnapshot is content delivered by the action source. JSON null,
// an empty object and an empty array hold nothing.
type capturedSnapshot struct {
	value any
}

func (c capturedSnapshot) IsEmpty() bool {
	switch v := c.value.(type) {
	case nil:
		return true
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}

func (c capturedSnapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.value)
}

type createShareRequest struct {
	CreateRequest
	adminMode bool
}

type referenceRequest struct {
	reference model.Reference
	actor     model.Actor
	hasActor  bool
	adminMode bool
}

type listSharesRequest struct {
	actor     model.Actor
	hasActor  bool
	adminMode bool
}

type openedRequest struct {
	category model.Category
	actor    model.Actor
	snapshot capturedSnapshot
}

type ownerRequest struct {
	owner     model.Actor
	adminMode bool
}

type cooldownRequest struct {
	actor    model.Actor
	category model.Category
}

type shareResponse struct {
	Reference   model.Reference `json:"reference"`
	Owner       model.Actor     `json:"owner"`
	Category    model.Category  `json:"category"`
	Recipients  []model.Actor   `json:"recipients,omitempty"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	ViewCount   int64           `json:"viewCount"`
}

func newShareResponse(ref model.Reference, e model.Entry) shareResponse {
	return shareResponse{
		Reference:   ref,
		Owner:       e.Owner,
		Category:    e.Category,
		Recipients:  e.Recipients,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		ExpiresAt:   e.ExpiresAt(),
		ViewCount:   e.ViewCount,
	}
}

type viewResponse struct {
	Reference model.Reference `json:"reference"`
	Snapshot  model.Snapshot  `json:"snapshot"`
	ViewCount int64           `json:"viewCount"`
}

type cancelAllResponse struct {
	Cancelled int `json:"cancelled"`
}

type openedResponse struct {
	Resolved bool `json:"resolved"`
}

type cooldownResponse struct {
	OnCooldown       bool `json:"onCooldown"`
	RemainingSeconds int  `json:"remainingSeconds"`
}

// decodeActor reads the acting user from the request headers. An absent
// header is not an error; a malformed one is.
func decodeActor(r *http.Request) (model.Actor, bool, error) {
	raw := r.Header.Get(ActorHeaderKey)
	if raw == "" {
		return model.Actor{}, false, nil
	}
	a, err := model.ParseActor(raw)
	if err != nil {
		return model.Actor{}, false, store.BadRequestErr{Message: "invalid " + ActorHeaderKey + " header"}
	}
	return a, true, nil
}

func requireActor(r *http.Request) (model.Actor, error) {
	a, ok, err := decodeActor(r)
	if err != nil {
		return a, err
	}
	if !ok {
		return a, errActorMissing
	}
	return a, nil
}

func decodeReference(r *http.Request) (model.Reference, error) {
	raw, ok := mux.Vars(r)[referenceVarKey]
	if !ok {
		return "", store.BadRequestErr{Message: "{reference} URL path parameter missing"}
	}
	return store.ValidateReference(raw)
}

// decodeBody reads the JSON body into v and validates it.
func decodeBody(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return store.BadRequestErr{Message: "failed to read body"}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return store.BadRequestErr{Message: "failed to unmarshal json"}
	}
	if err := configValidator.Struct(v); err != nil {
		return store.BadRequestErr{Message: err.Error()}
	}
	return nil
}

func parseRecipients(raw []string) ([]model.Actor, error) {
	recipients, err := ParseAdmins(raw)
	if err != nil {
		return nil, store.BadRequestErr{Message: err.Error()}
	}
	if len(recipients) == 0 {
		return nil, nil
	}
	return recipients, nil
}

func decodeCreateShareRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	initiator, err := requireActor(r)
	if err != nil {
		return nil, err
	}
	var body createShareBody
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	category, err := store.ValidateCategory(body.Category)
	if err != nil {
		return nil, err
	}
	owner := initiator
	if body.Owner != "" {
		owner, _ = model.ParseActor(body.Owner)
	}
	recipients, err := parseRecipients(body.Recipients)
	if err != nil {
		return nil, err
	}

	sallust.Get(ctx).Info("create share request",
		zap.Stringer("initiator", initiator), zap.String("category", string(category)))

	return &createShareRequest{
		CreateRequest: CreateRequest{
			Initiator:   initiator,
			Owner:       owner,
			Category:    category,
			Snapshot:    body.Snapshot,
			Recipients:  recipients,
			Description: body.Description,
			Duration:    time.Duration(body.TTL) * time.Second,
		},
		adminMode: isAdmin(ctx),
	}, nil
}

func decodeCaptureShareRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	initiator, err := requireActor(r)
	if err != nil {
		return nil, err
	}
	var body captureShareBody
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	category, err := store.ValidateCategory(body.Category)
	if err != nil {
		return nil, err
	}
	if !category.Captured() {
		return nil, store.BadRequestErr{Message: "category " + string(category) + " is not captured"}
	}
	recipients, err := parseRecipients(body.Recipients)
	if err != nil {
		return nil, err
	}
	return &CaptureRequest{
		Initiator:      initiator,
		Category:       category,
		Recipients:     recipients,
		Description:    body.Description,
		Duration:       time.Duration(body.TTL) * time.Second,
		TimeoutMessage: body.TimeoutMessage,
	}, nil
}

func decodeOpenedRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	actor, err := requireActor(r)
	if err != nil {
		return nil, err
	}
	category, err := store.ValidateCategory(mux.Vars(r)[categoryVarKey])
	if err != nil {
		return nil, err
	}
	var body openedBody
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	return &openedRequest{
		category: category,
		actor:    actor,
		snapshot: capturedSnapshot{value: body.Snapshot},
	}, nil
}

func decodeReferenceRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	ref, err := decodeReference(r)
	if err != nil {
		return nil, err
	}
	actor, ok, err := decodeActor(r)
	if err != nil {
		return nil, err
	}
	return &referenceRequest{
		reference: ref,
		actor:     actor,
		hasActor:  ok,
		adminMode: isAdmin(ctx),
	}, nil
}

func decodeListSharesRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	actor, ok, err := decodeActor(r)
	if err != nil {
		return nil, err
	}
	return &listSharesRequest{
		actor:     actor,
		hasActor:  ok,
		adminMode: isAdmin(ctx),
	}, nil
}

func decodeOwnerRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	raw, ok := mux.Vars(r)[ownerVarKey]
	if !ok {
		return nil, store.BadRequestErr{Message: "{owner} URL path parameter missing"}
	}
	owner, err := model.ParseActor(raw)
	if err != nil {
		return nil, store.BadRequestErr{Message: "invalid owner"}
	}
	return &ownerRequest{
		owner:     owner,
		adminMode: isAdmin(ctx),
	}, nil
}

func decodeCooldownRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	actor, err := model.ParseActor(vars[actorVarKey])
	if err != nil {
		return nil, store.BadRequestErr{Message: "invalid actor"}
	}
	category, err := store.ValidateCategory(vars[categoryVarKey])
	if err != nil {
		return nil, err
	}
	return &cooldownRequest{actor: actor, category: category}, nil
}

func encodeJSON(rw http.ResponseWriter, code int, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	rw.Header().Add("Content-Type", "application/json")
	rw.WriteHeader(code)
	rw.Write(data)
	return nil
}

func encodeCreateShareResponse(ctx context.Context, rw http.ResponseWriter, response interface{}) error {
	r, ok := response.(*CreateResult)
	if !ok {
		return ErrCasting
	}
	code := http.StatusCreated
	if r.Status == OnCooldown {
		rw.Header().Set("Retry-After", strconv.Itoa(r.RemainingSeconds))
		code = http.StatusTooManyRequests
	}
	return encodeJSON(rw, code, r)
}

func encodeCaptureShareResponse(ctx context.Context, rw http.ResponseWriter, response interface{}) error {
	r, ok := response.(*CreateResult)
	if !ok {
		return ErrCasting
	}
	code := http.StatusAccepted
	if r.Status == OnCooldown {
		rw.Header().Set("Retry-After", strconv.Itoa(r.RemainingSeconds))
		code = http.StatusTooManyRequests
	}
	return encodeJSON(rw, code, r)
}

func encodeOpenedResponse(ctx context.Context, rw http.ResponseWriter, response interface{}) error {
	r, ok := response.(*openedResponse)
	if !ok {
		return ErrCasting
	}
	return encodeJSON(rw, http.StatusOK, r)
}

func encodeListSharesResponse(ctx context.Context, rw http.ResponseWriter, response interface{}) error {
	refs, ok := response.([]model.Reference)
	if !ok {
		return ErrCasting
	}
	return encodeJSON(rw, http.StatusOK, refs)
}

func encodeGetShareResponse(ctx context.Context, rw http.ResponseWriter, response interface{}) error {
	r, ok := response.(*shareResponse)
	if !ok {
		return ErrCasting
	}
	return encodeJSON(rw, http.StatusOK, r)
}

func encodeViewShareResponse(ctx context.Context, rw http.ResponseWriter, response interface{}) error {
	r, ok := response.(*viewResponse)
	if !ok {
		return ErrCasting
	}
	return encodeJSON(rw, http.StatusOK, r)
}

func encodeCancelShareResponse(ctx context.Context, rw http.ResponseWriter, _ interface{}) error {
	rw.WriteHeader(http.StatusNoContent)
	return nil
}

func encodeCancelAllResponse(ctx context.Context, rw http.ResponseWriter, response interface{}) error {
	r, ok := response.(*cancelAllResponse)
	if !ok {
		return ErrCasting
	}
	return encodeJSON(rw, http.StatusOK, r)
}

func encodeCooldownResponse(ctx context.Context, rw http.ResponseWriter, response interface{}) error {
	r, ok := response.(*cooldownResponse)
	if !ok {
		return ErrCasting
	}
	return encodeJSON(rw, http.StatusOK, r)
}

func encodeError(ctx context.Context, err error, w http.ResponseWriter) {
	w.Header().Set(ErrorHeaderKey, err.Error())
	var headerer kithttp.Headerer
	if errors.As(err, &headerer) {
		for k, values := range headerer.Headers() {
			for _, v := range values {
				w.Header().Add(k, v)
			}
		}
	}
	code := http.StatusInternalServerError
	var sc kithttp.StatusCoder
	if errors.As(err, &sc) {
		code = sc.StatusCode()
	}
	if code >= http.StatusInternalServerError {
		sallust.Get(ctx).Error("share request failed", zap.Error(err))
	}
	w.WriteHeader(code)
}
