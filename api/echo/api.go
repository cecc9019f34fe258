// Package echo exposes the verification and linking protocol over HTTP.
package echo

import (
	"context"
	goerrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/cousinlabs/cousin-link/domain"
	"github.com/cousinlabs/cousin-link/errors"
	"github.com/cousinlabs/cousin-link/internal/federation"
	"github.com/cousinlabs/cousin-link/services"
)

// RateLimiter is the counting policy applied to the signature-authenticated
// endpoints.
type RateLimiter interface {
	Allow(ctx context.Context, clientID string) (bool, error)
}

// VerificationService verifies wallet ownership claims.
type VerificationService interface {
	VerifyOwnership(ctx context.Context, walletAddress, signature, message string) (*services.VerificationResult, error)
}

// TokenBridge exchanges verification tokens for temporary linking tokens.
type TokenBridge interface {
	ExchangeForTempToken(ctx context.Context, verificationToken string) (string, error)
}

// LinkingService finalizes identity links.
type LinkingService interface {
	CompleteLink(ctx context.Context, tempToken string, info *federation.ExternalUserInfo) error
	LinkHandleManually(ctx context.Context, walletAddress, xHandle, signature, message string) error
	VerifiedMembers(ctx context.Context) ([]domain.VerifiedMember, error)
}

// AuthFlow drives the provider redirect leg of the OAuth link.
type AuthFlow interface {
	BeginLink(ctx context.Context, tempToken string) (string, error)
	CompleteAuth(ctx context.Context, state, code string) (*federation.ExternalUserInfo, string, error)
}

// LinkAPI holds the handler dependencies.
type LinkAPI struct {
	verification VerificationService
	bridge       TokenBridge
	linking      LinkingService
	fedService   AuthFlow
	limiter      RateLimiter
	baseURL      string
	healthChecks []func(context.Context) error
}

// NewLinkAPI initializes the HTTP API.
func NewLinkAPI(
	verification VerificationService,
	bridge TokenBridge,
	linking LinkingService,
	fedService AuthFlow,
	limiter RateLimiter,
	baseURL string,
	healthChecks ...func(context.Context) error,
) *LinkAPI {
	return &LinkAPI{
		verification: verification,
		bridge:       bridge,
		linking:      linking,
		fedService:   fedService,
		limiter:      limiter,
		baseURL:      baseURL,
		healthChecks: healthChecks,
	}
}

// RegisterRoutes registers the protocol routes.
func (a *LinkAPI) RegisterRoutes(e *echo.Echo) {
	rateLimited := a.rateLimitMiddleware()

	e.POST("/verify-nft", a.VerifyNFTHandler, rateLimited)
	e.POST("/store-token", a.StoreTokenHandler)
	e.POST("/verify-handle", a.VerifyHandleHandler, rateLimited)
	e.GET("/verified-list", a.VerifiedListHandler)

	e.GET("/auth/x/login", a.XLoginHandler)
	e.GET("/auth/x/callback", a.XCallbackHandler)

	e.GET("/healthz", a.HealthzHandler)
}

// rateLimitMiddleware enforces the fixed-window budget per client IP. A
// limiter backend failure fails open: verification availability is preferred
// over strict limiting when Redis is down.
func (a *LinkAPI) rateLimitMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			allowed, err := a.limiter.Allow(c.Request().Context(), c.RealIP())
			if err != nil {
				log.Warn().Err(err).Msg("Rate limiter unavailable, failing open")
				return next(c)
			}
			if !allowed {
				return writeError(c, errors.NewRateLimited())
			}
			return next(c)
		}
	}
}

type verifyNFTRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
	Message       string `json:"message"`
}

// VerifyNFTHandler handles POST /verify-nft.
func (a *LinkAPI) VerifyNFTHandler(c echo.Context) error {
	var req verifyNFTRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, errors.NewMissingParameter("Wallet address, signature, and message are required"))
	}

	result, err := a.verification.VerifyOwnership(c.Request().Context(), req.WalletAddress, req.Signature, req.Message)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

type storeTokenRequest struct {
	Token string `json:"token"`
}

type storeTokenResponse struct {
	TempKey string `json:"tempKey"`
}

// StoreTokenHandler handles POST /store-token, exchanging a verification
// token for the temporary token carried across the OAuth redirect.
func (a *LinkAPI) StoreTokenHandler(c echo.Context) error {
	var req storeTokenRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, errors.NewMissingParameter("Verification token is required"))
	}

	tempToken, err := a.bridge.ExchangeForTempToken(c.Request().Context(), req.Token)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, storeTokenResponse{TempKey: tempToken})
}

type verifyHandleRequest struct {
	WalletAddress string `json:"walletAddress"`
	XHandle       string `json:"xHandle"`
	Signature     string `json:"signature"`
	Message       string `json:"message"`
}

// VerifyHandleHandler handles POST /verify-handle, the OAuth-free manual
// path.
func (a *LinkAPI) VerifyHandleHandler(c echo.Context) error {
	var req verifyHandleRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, errors.NewMissingParameter("All fields are required"))
	}

	if err := a.linking.LinkHandleManually(c.Request().Context(), req.WalletAddress, req.XHandle, req.Signature, req.Message); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type verifiedListResponse struct {
	VerifiedCousins []domain.VerifiedMember `json:"verifiedCousins"`
	Error           string                  `json:"error,omitempty"`
}

// VerifiedListHandler handles GET /verified-list. Failures still return the
// envelope with an empty list so clients render consistently.
func (a *LinkAPI) VerifiedListHandler(c echo.Context) error {
	members, err := a.linking.VerifiedMembers(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, verifiedListResponse{
			VerifiedCousins: []domain.VerifiedMember{},
			Error:           "Internal server error",
		})
	}
	return c.JSON(http.StatusOK, verifiedListResponse{VerifiedCousins: members})
}

// XLoginHandler handles GET /auth/x/login. It requires the tempKey issued by
// the token bridge and redirects the user to the provider's authorization
// page with a state correlated to that key.
func (a *LinkAPI) XLoginHandler(c echo.Context) error {
	tempKey := c.QueryParam("tempKey")
	if tempKey == "" {
		return writeError(c, errors.NewMissingParameter("tempKey is required"))
	}

	authURL, err := a.fedService.BeginLink(c.Request().Context(), tempKey)
	if err != nil {
		log.Error().Err(err).Msg("Failed to begin OAuth linking flow")
		return writeError(c, errors.NewFinalizationFailed("Failed to start linking flow"))
	}
	return c.Redirect(http.StatusFound, authURL)
}

// XCallbackHandler handles the provider redirect. Failures route to the
// application's generic error page; the redirect channel cannot carry
// structured error payloads. Post-auth navigation always lands on the base
// URL, ignoring any provider-suggested target.
func (a *LinkAPI) XCallbackHandler(c echo.Context) error {
	if providerErr := c.QueryParam("error"); providerErr != "" {
		log.Warn().Str("provider_error", providerErr).Msg("OAuth provider returned an error")
		return c.Redirect(http.StatusFound, a.errorRedirect())
	}

	state := c.QueryParam("state")
	code := c.QueryParam("code")
	if state == "" || code == "" {
		return c.Redirect(http.StatusFound, a.errorRedirect())
	}

	info, tempToken, err := a.fedService.CompleteAuth(c.Request().Context(), state, code)
	if err != nil {
		log.Warn().Err(err).Msg("OAuth callback rejected")
		return c.Redirect(http.StatusFound, a.errorRedirect())
	}

	if err := a.linking.CompleteLink(c.Request().Context(), tempToken, info); err != nil {
		log.Warn().Err(err).Msg("Linking finalization rejected, blocking sign-in")
		return c.Redirect(http.StatusFound, a.errorRedirect())
	}

	return c.Redirect(http.StatusFound, a.baseURL)
}

func (a *LinkAPI) errorRedirect() string {
	return a.baseURL + "/?error=link_failed"
}

// HealthzHandler reports dependency health.
func (a *LinkAPI) HealthzHandler(c echo.Context) error {
	for _, check := range a.healthChecks {
		if err := check(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// writeError renders a taxonomy error as the structured {error} payload with
// its mapped status code.
func writeError(c echo.Context, err error) error {
	var le *errors.LinkError
	if goerrors.As(err, &le) {
		return c.JSON(le.Status, map[string]string{"error": le.Description})
	}
	return c.JSON(errors.StatusOf(err), map[string]string{"error": "Internal server error"})
}
