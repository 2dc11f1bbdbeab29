/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package obslog wraps go.uber.org/zap into a context-scoped logger, the
// way the teacher threads a logr.Logger through context via
// sigs.k8s.io/controller-runtime/pkg/log — here the underlying sink is
// *zap.Logger instead of logr, since this module has no controller
// runtime to borrow the logr convention from.
package obslog

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// NewProduction builds the process-wide root logger: JSON to stderr at
// info level, or console-encoded and debug level when dev is true.
func NewProduction(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Into returns a context carrying logger, retrievable later with From.
func Into(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// From returns the logger stashed in ctx by Into, or a no-op logger if none
// was stashed — callers never need a nil check.
func From(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// With returns a context whose logger has the given fields appended, the
// way the teacher's controllers narrow log.FromContext(ctx) per-reconcile.
func With(ctx context.Context, fields ...zap.Field) context.Context {
	return Into(ctx, From(ctx).With(fields...))
}
