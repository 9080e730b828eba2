// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the sandbox API.
//
// # Authentication Flow
//
// The auth middleware extracts a bearer token from the Authorization header,
// checks it with the configured Authenticator, and stores the resulting
// identity in the Gin context for downstream handlers.
//
//	Request
//	   │
//	   ▼
//	AuthMiddleware
//	   │
//	   ├─► Extract token from "Authorization: Bearer <token>"
//	   │
//	   ├─► authenticator.Authenticate(ctx, token)
//	   │
//	   └─► Store identity in context
//	           │
//	           ▼
//	       Handler (retrieves via GetIdentity)
//
// # Default Behavior
//
// With the Anonymous authenticator every request is accepted as
// "anonymous". With StaticToken only the configured token is accepted.
package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// identityKey is the Gin context key for the authenticated identity.
const identityKey = "flowadmin_identity"

// ErrUnauthorized is returned by an Authenticator that rejects a token.
var ErrUnauthorized = errors.New("unauthorized")

// Authenticator maps a bearer token to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (identity string, err error)
}

// Anonymous accepts every request.
type Anonymous struct{}

func (Anonymous) Authenticate(context.Context, string) (string, error) {
	return "anonymous", nil
}

// StaticToken accepts exactly one token.
//
// # Thread Safety
//
// Safe for concurrent use; the fields are read-only after construction.
type StaticToken struct {
	Token    []byte
	Identity string
}

// Authenticate compares in constant time.
func (s StaticToken) Authenticate(_ context.Context, token string) (string, error) {
	if len(s.Token) == 0 || subtle.ConstantTimeCompare(s.Token, []byte(token)) != 1 {
		return "", ErrUnauthorized
	}
	if s.Identity == "" {
		return "admin", nil
	}
	return s.Identity, nil
}

// SetIdentity stores the authenticated identity in the Gin context.
func SetIdentity(c *gin.Context, identity string) {
	c.Set(identityKey, identity)
}

// GetIdentity returns the identity stored by AuthMiddleware, or
// "anonymous" when none is present.
//
// # Thread Safety
//
// Safe to call concurrently (Gin context is request-scoped).
func GetIdentity(c *gin.Context) string {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	return "anonymous"
}

// AuthMiddleware creates a Gin middleware that authenticates requests.
//
// # Description
//
// Extracts the bearer token from the Authorization header, checks it with
// auth, and stores the identity for downstream handlers. A missing or
// malformed header is passed on as the empty token.
//
// # Outputs
//
// Rejected requests are aborted with 401 and {"error": "unauthorized"}.
//
// # Examples
//
//	api := router.Group("/flowadmin-api")
//	api.Use(middleware.AuthMiddleware(middleware.StaticToken{Token: token}))
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)

		identity, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
			return
		}

		SetIdentity(c, identity)
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
