// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package assistant_talk_api

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cartlineai/config"
)

// tokenIssuer tags stream tokens so other JWTs signed with the same secret
// can never claim a call.
const tokenIssuer = "cartline-talk"

// MintStreamToken signs the short-lived token the telephony webhooks embed
// in the stream URL. The subject is the pending session id; whoever presents
// the token claims that session.
func MintStreamToken(cfg *config.AppConfig, sessionID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.StreamConfig.TokenTtlSeconds) * time.Second)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign stream token: %w", err)
	}
	return signed, nil
}

// VerifyStreamToken returns the session id a valid stream token points at.
func VerifyStreamToken(cfg *config.AppConfig, raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("invalid stream token: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("invalid stream token: missing session subject")
	}
	return claims.Subject, nil
}
