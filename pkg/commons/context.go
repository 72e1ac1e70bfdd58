// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package commons

import "context"

type contextKey string

const requestIDKey contextKey = "cartline.request_id"

// SEPARATOR joins multi-valued option strings (normalizer dictionaries,
// tag lists) throughout the codebase.
const SEPARATOR = ","

// WithRequestID stamps a request identifier on the context for Tracef.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request identifier carried on the context, or "".
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
