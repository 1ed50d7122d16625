package middleware

import (
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/freight-quote-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/freight-quote-service/internal/platform/config"
	"github.com/jsamuelsen/freight-quote-service/internal/platform/logging"
)

// ContextKeyClaims is the gin context key of the caller's *Claims.
const ContextKeyClaims = "claims"

const (
	defaultSubjectHeader = "X-User-ID"
	defaultRolesHeader   = "X-User-Roles"
)

// Claims is the caller identity forwarded by the API gateway. The gateway
// has already validated the token; this service only reads the headers.
type Claims struct {
	Subject string
	Roles   []string
}

// HasRole reports whether the caller holds role.
func (c *Claims) HasRole(role string) bool {
	return c != nil && slices.Contains(c.Roles, role)
}

// HasAnyRole reports whether the caller holds one of roles.
func (c *Claims) HasAnyRole(roles ...string) bool {
	return slices.ContainsFunc(roles, c.HasRole)
}

// ExtractClaims reads the identity headers named in cfg. Roles are a comma
// separated list.
func ExtractClaims(c *gin.Context, cfg *config.AuthConfig) *Claims {
	subjectHeader, rolesHeader := defaultSubjectHeader, defaultRolesHeader

	if cfg != nil {
		if cfg.SubjectHeader != "" {
			subjectHeader = cfg.SubjectHeader
		}

		if cfg.RolesHeader != "" {
			rolesHeader = cfg.RolesHeader
		}
	}

	claims := &Claims{Subject: strings.TrimSpace(c.GetHeader(subjectHeader))}

	for _, role := range strings.Split(c.GetHeader(rolesHeader), ",") {
		if role = strings.TrimSpace(role); role != "" {
			claims.Roles = append(claims.Roles, role)
		}
	}

	return claims
}

// GetClaims returns the claims stored by Identify or a Require middleware,
// or nil.
func GetClaims(c *gin.Context) *Claims {
	claims, _ := c.Value(ContextKeyClaims).(*Claims)

	return claims
}

// Subject returns the caller's subject, or "" for anonymous calls.
func Subject(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil {
		return claims.Subject
	}

	return ""
}

// Identify stores the caller's claims without enforcing anything. The
// subject is added to the context logger.
func Identify(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFor(c, cfg)

		if claims.Subject != "" {
			c.Request = c.Request.WithContext(logging.With(c.Request.Context(), "subject", claims.Subject))
		}

		c.Next()
	}
}

// RequireAuth rejects calls without a subject with 401.
func RequireAuth(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claimsFor(c, cfg).Subject == "" {
			dto.AbortWithErrorCode(c, dto.ErrorCodeUnauthorized, "authentication required")
			return
		}

		c.Next()
	}
}

// RequireRole rejects callers without role with 403.
func RequireRole(cfg *config.AuthConfig, role string) gin.HandlerFunc {
	return RequireAnyRole(cfg, role)
}

// RequireAnyRole rejects callers holding none of roles with 403.
func RequireAnyRole(cfg *config.AuthConfig, roles ...string) gin.HandlerFunc {
	message := "requires role " + strings.Join(roles, " or ")

	return func(c *gin.Context) {
		if !claimsFor(c, cfg).HasAnyRole(roles...) {
			dto.AbortWithErrorCode(c, dto.ErrorCodeForbidden, message)
			return
		}

		c.Next()
	}
}

func claimsFor(c *gin.Context, cfg *config.AuthConfig) *Claims {
	if claims := GetClaims(c); claims != nil {
		return claims
	}

	claims := ExtractClaims(c, cfg)
	c.Set(ContextKeyClaims, claims)

	return claims
}
