package utils

import (
	"context"
	"log"
	"runtime/debug"
)

// Go runs fn on a new goroutine with panic containment. A panicking worker
// must never take the whole call server down mid-conversation.
func Go(ctx context.Context, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("recovered panic in goroutine: %v\n%s", r, debug.Stack())
			}
		}()
		select {
		case <-ctx.Done():
			return
		default:
		}
		fn()
	}()
}
