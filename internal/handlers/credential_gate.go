package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/authz"
	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
)

const (
	RefreshTokenHeader = "X-Refresh-Token"
	AccessTokenHeader  = "X-Access-Token"

	contextActorKey    = "actor"
	contextUserIDKey   = "user_id"
	contextUserRoleKey = "user_role"
)

// CredentialGate resolves the caller from the bearer access token and, when
// the access token has expired, renews it from the X-Refresh-Token header.
type CredentialGate struct {
	BaseHandler
	auth services.AuthService
}

func NewCredentialGate(auth services.AuthService, logger utils.Logger) *CredentialGate {
	return &CredentialGate{
		BaseHandler: NewBaseHandler(logger),
		auth:        auth,
	}
}

// Authenticate rejects requests without a usable credential
func (g *CredentialGate) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := g.resolve(c)
		if err != nil {
			g.handleServiceError(c, err)
			c.Abort()
			return
		}
		g.attach(c, session)
		c.Next()
	}
}

// Optional attaches the caller when a usable credential is present and
// otherwise lets the request through anonymously.
func (g *CredentialGate) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if bearerToken(c) == "" {
			c.Next()
			return
		}
		session, err := g.resolve(c)
		if err != nil {
			g.LogRequest(c, "Ignoring unusable credential", "error", err)
			c.Next()
			return
		}
		g.attach(c, session)
		c.Next()
	}
}

// RequireAdmin must run after Authenticate
func (g *CredentialGate) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := g.actor(c)
		if !actor.IsAdmin() {
			c.JSON(http.StatusForbidden, ErrorResponse{
				Message: "Access denied",
				Details: map[string]interface{}{"reason": "admin role required"},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (g *CredentialGate) resolve(c *gin.Context) (*services.Session, error) {
	return g.auth.ResolveSession(c.Request.Context(), bearerToken(c), strings.TrimSpace(c.GetHeader(RefreshTokenHeader)))
}

func (g *CredentialGate) attach(c *gin.Context, session *services.Session) {
	if session.RenewedAccessToken != "" {
		c.Header(AccessTokenHeader, session.RenewedAccessToken)
	}
	setActor(c, session.Actor)
}

func setActor(c *gin.Context, actor *authz.Actor) {
	c.Set(contextActorKey, actor)
	c.Set(contextUserIDKey, actor.UserID)
	c.Set(contextUserRoleKey, actor.Role)
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
