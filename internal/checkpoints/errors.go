// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package checkpoints

import "errors"

var (
	errTooFew       = errors.New("need at least the depth-0 and max-depth sentinels")
	errMissingZero  = errors.New("first entry must be at depth 0")
	errMissingMax   = errors.New("last entry must be at the family's max depth")
	errOutOfRange   = errors.New("depth exceeds family width")
	errNotMonotonic = errors.New("depths must be strictly increasing")
)
