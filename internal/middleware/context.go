// Package middleware provides the HTTP middleware chain for the API server.
package middleware

import (
	"context"
	"sync"
)

// requestInfo is shared between the outer logging middleware and inner
// handlers, which learn the user and error code only after routing.
type requestInfo struct {
	mu        sync.Mutex
	requestID string
	userID    string
	errorCode string
}

type requestInfoKey struct{}

func infoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(*requestInfo)
	return info
}

// withInfo returns ctx carrying a requestInfo, reusing an existing one.
func withInfo(ctx context.Context) (context.Context, *requestInfo) {
	if info := infoFrom(ctx); info != nil {
		return ctx, info
	}
	info := &requestInfo{}
	return context.WithValue(ctx, requestInfoKey{}, info), info
}

// GetRequestID returns the request ID, or "" outside RequestID.
func GetRequestID(ctx context.Context) string {
	info := infoFrom(ctx)
	if info == nil {
		return ""
	}
	info.mu.Lock()
	defer info.mu.Unlock()
	return info.requestID
}

// SetUserID records the authenticated user for the request.
func SetUserID(ctx context.Context, userID string) context.Context {
	ctx, info := withInfo(ctx)
	info.mu.Lock()
	info.userID = userID
	info.mu.Unlock()
	return ctx
}

// GetUserID returns the authenticated user, or "".
func GetUserID(ctx context.Context) string {
	info := infoFrom(ctx)
	if info == nil {
		return ""
	}
	info.mu.Lock()
	defer info.mu.Unlock()
	return info.userID
}

// SetErrorCode records the error code of an error response so the request
// log line can include it.
func SetErrorCode(ctx context.Context, code string) {
	info := infoFrom(ctx)
	if info == nil {
		return
	}
	info.mu.Lock()
	info.errorCode = code
	info.mu.Unlock()
}

// GetErrorCode returns the recorded error code, or "".
func GetErrorCode(ctx context.Context) string {
	info := infoFrom(ctx)
	if info == nil {
		return ""
	}
	info.mu.Lock()
	defer info.mu.Unlock()
	return info.errorCode
}
