package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sms-ingress-server/internal/config"
	"sms-ingress-server/internal/models"
	"sms-ingress-server/pkg/logger"
	"sms-ingress-server/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const smscConfigKey = "smscConfig"

var claimsValidator = validator.New()

// Claims represents the JWT claims. The routing config of the sender travels
// inside the token.
type Claims struct {
	Config models.SmscConfig `json:"config"`
	jwt.RegisteredClaims
}

func unauthorized(c *gin.Context, message, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, utils.Fail(message, code))
}

// AuthMiddleware creates a middleware for JWT authentication
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header is required", utils.CodeUnauthenticated)
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			unauthorized(c, "Invalid token", utils.CodeInvalidToken)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWT.Secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

		if err != nil {
			logger.Ctx(c.Request.Context()).Warn("Rejected token", zap.Error(err))
			if errors.Is(err, jwt.ErrTokenExpired) {
				unauthorized(c, "Token has expired", utils.CodeInvalidToken)
				return
			}
			unauthorized(c, "Invalid token", utils.CodeInvalidToken)
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			unauthorized(c, "Invalid token", utils.CodeInvalidToken)
			return
		}

		if err := claimsValidator.Struct(claims.Config); err != nil {
			logger.Ctx(c.Request.Context()).Warn("Token carries an invalid client configuration", zap.Error(err))
			unauthorized(c, "Invalid client configuration", utils.CodeUnauthenticated)
			return
		}

		c.Set(smscConfigKey, claims.Config)
		c.Next()
	}
}

// SmscConfigFrom returns the routing config attached by AuthMiddleware
func SmscConfigFrom(c *gin.Context) (models.SmscConfig, bool) {
	v, exists := c.Get(smscConfigKey)
	if !exists {
		return models.SmscConfig{}, false
	}
	smsc, ok := v.(models.SmscConfig)
	return smsc, ok
}

// GenerateToken issues a token carrying the given routing config
func GenerateToken(smsc models.SmscConfig, cfg *config.Config) (string, error) {
	if cfg == nil {
		return "", errors.New("config is required")
	}
	if cfg.JWT.Secret == "" {
		return "", errors.New("JWT secret is required")
	}
	if err := claimsValidator.Struct(smsc); err != nil {
		return "", fmt.Errorf("invalid client configuration: %w", err)
	}

	expiry := cfg.JWT.TokenExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}

	now := time.Now()
	claims := &Claims{
		Config: smsc,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   smsc.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWT.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}
