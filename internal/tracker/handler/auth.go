package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler exchanges the configured admin secret for a short-lived bearer
// token and guards mutating routes. The ledger itself has no notion of users;
// this is the thin administrative gate in front of append, ingest, and reset.
type AuthHandler struct {
	adminSecret string // plaintext, or a bcrypt hash when prefixed "$2"
	signingKey  []byte
	tokenTTL    time.Duration
	logger      *zap.Logger
}

// NewAuthHandler creates an AuthHandler. adminSecret may be either the
// plaintext secret or its bcrypt hash; signingKey signs issued HS256 tokens.
func NewAuthHandler(adminSecret string, signingKey []byte, tokenTTL time.Duration, logger *zap.Logger) *AuthHandler {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &AuthHandler{
		adminSecret: adminSecret,
		signingKey:  signingKey,
		tokenTTL:    tokenTTL,
		logger:      logger,
	}
}

// Register mounts the auth routes on the given router group.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/token", h.IssueToken)
}

type tokenRequest struct {
	Secret string `json:"secret" binding:"required"`
}

// IssueToken handles POST /auth/token — verifies the admin secret and
// returns a signed bearer token.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	if h.adminSecret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin access is not configured"})
		return
	}

	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "secret is required"})
		return
	}

	if !h.secretMatches(req.Secret) {
		h.logger.Warn("admin token request with wrong secret", zap.String("ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
		return
	}

	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    "lexledger",
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(h.tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.signingKey)
	if err != nil {
		h.logger.Error("sign admin token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": claims.ExpiresAt.Time,
	})
}

func (h *AuthHandler) secretMatches(supplied string) bool {
	if strings.HasPrefix(h.adminSecret, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(h.adminSecret), []byte(supplied)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(h.adminSecret), []byte(supplied)) == 1
}

// RequireAdmin returns a middleware that admits only requests carrying a
// valid bearer token issued by IssueToken.
func (h *AuthHandler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if raw == "" || raw == c.GetHeader("Authorization") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
			return
		}

		token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return h.signingKey, nil
		}, jwt.WithIssuer("lexledger"), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Next()
	}
}
