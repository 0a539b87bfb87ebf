package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"cleaning-duty/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	KeyMemberID   = "member_id"
	KeyMemberName = "member_name"
)

// renewWithin is how close to expiry a token gets a replacement in
// X-New-Token.
const renewWithin = 24 * time.Hour

type sessionClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// IssueToken signs a session token for the member.
func IssueToken(secret []byte, memberID, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   memberID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}).SignedString(secret)
}

func JWTAuth(secret []byte, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		var claims sessionClaims
		token, err := jwt.ParseWithClaims(auth[7:], &claims, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(KeyMemberID, claims.Subject)
		c.Set(KeyMemberName, claims.Name)

		if claims.ExpiresAt != nil && time.Until(claims.ExpiresAt.Time) < renewWithin {
			if fresh, err := IssueToken(secret, claims.Subject, claims.Name, ttl); err == nil {
				c.Header("X-New-Token", fresh)
			}
		}

		c.Next()
	}
}

// MemberLookup loads the signed-in member for permission checks.
type MemberLookup interface {
	GetMember(ctx context.Context, id string) (*model.Member, error)
}

// AdminOnly must run after JWTAuth. Admin rights are read from the store on
// every request so revocation applies immediately.
func AdminOnly(members MemberLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := members.GetMember(c.Request.Context(), c.GetString(KeyMemberID))
		if err != nil || !m.IsActive || !m.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

type identityClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

var ErrIdentityToken = errors.New("invalid identity token")

// VerifyIdentity checks an identity provider token and returns who it names.
func VerifyIdentity(idpSecret []byte, raw string) (model.Identity, error) {
	var claims identityClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return idpSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid || claims.Subject == "" {
		return model.Identity{}, ErrIdentityToken
	}
	return model.Identity{
		ExternalID: claims.Subject,
		Email:      claims.Email,
		Name:       claims.Name,
		AvatarURL:  claims.Picture,
	}, nil
}
