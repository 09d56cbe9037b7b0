package service

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	jwt "github.com/golang-jwt/jwt/v4"
)

// Identity is what a verified credential resolves to. A nil *Identity means
// guest: missing, malformed and expired credentials all land there, they only
// differ in what gets logged.
type Identity struct {
	Subject       string
	Email         string
	DisplayName   string
	EmailVerified bool
}

// IdentityService verifies bearer credentials issued by the identity
// provider. Token issuance is not our business; we only check the signature
// and lift the claims.
type IdentityService struct {
	secret []byte
}

func NewIdentityService(secret string) *IdentityService {
	return &IdentityService{secret: []byte(secret)}
}

func (s *IdentityService) extractToken(r *http.Request) string {
	bearToken := r.Header.Get("Authorization")
	strArr := strings.Split(bearToken, " ")
	if len(strArr) == 2 && strings.EqualFold(strArr[0], "Bearer") {
		return strArr[1]
	}
	return ""
}

// Resolve returns the identity behind the request's bearer token, or nil for
// guests. It never returns an error for a bad credential.
func (s *IdentityService) Resolve(r *http.Request) *Identity {
	tokenString := s.extractToken(r)
	if tokenString == "" {
		return nil
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			logger.Infof("Token verification failed: token expired")
		} else {
			logger.Warnf("Token verification failed: %s", err)
		}
		return nil
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		logger.Warnf("Token parsed but claims invalid")
		return nil
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		logger.Warnf("Token verified but subject missing")
		return nil
	}

	identity := &Identity{Subject: subject}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		identity.DisplayName = name
	}
	if verified, ok := claims["email_verified"].(bool); ok {
		identity.EmailVerified = verified
	}
	return identity
}
