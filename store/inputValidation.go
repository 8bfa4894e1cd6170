// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/xmidt-org/showcase/model"
)

// ReferenceFormatRegexSource helps validate references on incoming requests.
// References are lowercase hex tokens between 4 and 32 characters long.
const ReferenceFormatRegexSource = "^[0-9a-f]{4,32}$"

var referenceFormatRegex = regexp.MustCompile(ReferenceFormatRegexSource)

var (
	errInvalidReference = BadRequestErr{Message: "Invalid share reference format."}
	errInvalidCategory  = BadRequestErr{Message: "Invalid share category."}
)

// NormalizeReference trims and lowercases a reference provided by a user.
func NormalizeReference(raw string) model.Reference {
	return model.Reference(strings.ToLower(strings.TrimSpace(raw)))
}

// isReferenceValid returns true if the given reference is a short lowercase hex
// token. Note that per the input name, we expect the reference to be
// normalized by the time it gets here.
func isReferenceValid(ref model.Reference) bool {
	return referenceFormatRegex.MatchString(string(ref))
}

// ValidateReference normalizes the raw reference and returns a 400-coded
// error if it can't possibly name a share.
func ValidateReference(raw string) (model.Reference, error) {
	ref := NormalizeReference(raw)
	if !isReferenceValid(ref) {
		return "", errInvalidReference
	}
	return ref, nil
}

// ValidateCategory parses the category and returns a 400-coded error for
// unknown ones.
func ValidateCategory(raw string) (model.Category, error) {
	c, err := model.ParseCategory(raw)
	if err != nil {
		return "", BadRequestErr{Message: fmt.Sprintf("%s %v", errInvalidCategory.Message, err)}
	}
	return c, nil
}

// ClampTTL resolves the validity duration of a new share: a non-positive
// value selects the default and anything above maxTTL is capped. Durations
// are truncated to whole seconds, with a minimum of one second.
func ClampTTL(requested, defaultTTL, maxTTL time.Duration) time.Duration {
	ttl := requested
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if maxTTL > 0 && ttl > maxTTL {
		ttl = maxTTL
	}
	ttl = ttl.Truncate(time.Second)
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}
