package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const subjectContextKey = "Subject"

// OperatorClaims represents JWT claims for the admin API.
type OperatorClaims struct {
	jwt.RegisteredClaims
}

func generateToken(subject, secret string, expiresAt time.Time) (string, error) {
	claims := OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseToken(tokenStr, secret string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if claims, ok := token.Claims.(*OperatorClaims); ok && token.Valid {
		return claims.Subject, nil
	}
	return "", errors.New("invalid token claims")
}

// AuthMiddleware enforces JWT auth for the admin routes.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  "MISSING_TOKEN",
				"error": "missing Authorization header",
			})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  "INVALID_AUTH_HEADER",
				"error": "invalid Authorization header",
			})
			return
		}

		subject, err := parseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  "INVALID_TOKEN",
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(subjectContextKey, subject)
		c.Next()
	}
}

// login exchanges the gateway secret for an admin token. This is a
// single-operator service; there is no user store.
func (s *Server) login(c *gin.Context) {
	var req struct {
		Secret string `json:"secret"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "invalid request payload",
		})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.WebhookSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":  "INVALID_CREDENTIALS",
			"error": "invalid credentials",
		})
		return
	}

	expiresAt := time.Now().Add(72 * time.Hour)
	token, err := generateToken("operator", s.JWTSecret, expiresAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": "failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}
