// Copyright (c) 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package replica

import "errors"

var (
	ErrTruncated    = errors.New("message truncated")
	ErrInvalidIndex = errors.New("invalid entity index")
)
