// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"net/http"
	"strings"

	"github.com/justinas/alice"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

// setLogger creates an alice constructor that sets up a logger that can be
// used for all logging related to the current request.  The logger is added to
// the request's context.
func setLogger(logger *zap.Logger, serverName string) alice.Constructor {
	return func(delegate http.Handler) http.Handler {
		return http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				logHeader := r.Header.Clone()
				if str := logHeader.Get("Authorization"); str != "" {
					logHeader.Del("Authorization")
					logHeader.Set("Authorization-Type", strings.Split(str, " ")[0])
				}
				r = r.WithContext(sallust.With(r.Context(), logger.With(
					zap.Any("requestHeaders", logHeader),
					zap.String("requestURL", r.URL.EscapedPath()),
					zap.String("method", r.Method),
					zap.String("server", serverName),
				)))
				delegate.ServeHTTP(w, r)
			})
	}
}
