// Copyright (c) 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package node

import "errors"

var (
	ErrAlreadyStarted = errors.New("already started")
	ErrNotRunning     = errors.New("node not running")
	ErrNoTransport    = errors.New("transport not provided")
	ErrNoEntities     = errors.New("no entities defined")
)
