// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package showcase

import (
	"net/http"

	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"
)

type Handler http.Handler

func newServer(e func(Service) endpoint.Endpoint, dec kithttp.DecodeRequestFunc, enc kithttp.EncodeResponseFunc, s Service) Handler {
	return kithttp.NewServer(
		e(s),
		dec,
		enc,
		kithttp.ServerErrorEncoder(encodeError),
	)
}

func newCreateShareHandler(s Service) Handler {
	return newServer(newCreateShareEndpoint, decodeCreateShareRequest, encodeCreateShareResponse, s)
}

func newCaptureShareHandler(s Service) Handler {
	return newServer(newCaptureShareEndpoint, decodeCaptureShareRequest, encodeCaptureShareResponse, s)
}

func newOpenedHandler(s Service) Handler {
	return newServer(newOpenedEndpoint, decodeOpenedRequest, encodeOpenedResponse, s)
}

func newListSharesHandler(s Service) Handler {
	return newServer(newListSharesEndpoint, decodeListSharesRequest, encodeListSharesResponse, s)
}

func newGetShareHandler(s Service) Handler {
	return newServer(newGetShareEndpoint, decodeReferenceRequest, encodeGetShareResponse, s)
}

func newViewShareHandler(s Service) Handler {
	return newServer(newViewShareEndpoint, decodeReferenceRequest, encodeViewShareResponse, s)
}

func newCancelShareHandler(s Service) Handler {
	return newServer(newCancelShareEndpoint, decodeReferenceRequest, encodeCancelShareResponse, s)
}

func newCancelAllHandler(s Service) Handler {
	return newServer(newCancelAllEndpoint, decodeOwnerRequest, encodeCancelAllResponse, s)
}

func newCooldownHandler(s Service) Handler {
	return newServer(newCooldownEndpoint, decodeCooldownRequest, encodeCooldownResponse, s)
}
