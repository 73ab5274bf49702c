// Copyright (c) 2023, 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package util

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Recover must be deferred directly. It logs a panic with its stack instead of crashing the process.
// The args are logged with it as key-value pairs, to identify what was being processed.
func Recover(log *slog.Logger, args ...any) {
	if r := recover(); r != nil {
		args = append(args,
			"panic", fmt.Sprintf("[%T] %v", r, r),
			"stack", string(debug.Stack()))
		log.Error("panic recovered", args...)
	}
}
