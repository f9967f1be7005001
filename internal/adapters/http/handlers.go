package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/touristroute/internal/core/domain"
)

const (
	sessionHeader   = "X-Session-ID"
	maxSessionIDLen = 128
)

type routeViewRequest struct {
	StartCity string `json:"start_city"`
	EndCity   string `json:"end_city"`
}

// validSessionID accepts ids made of letters, digits, '-' and '_'.
func validSessionID(sid string) bool {
	if sid == "" || len(sid) > maxSessionIDLen {
		return false
	}
	for _, r := range sid {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// RouteViewHandler runs a search and returns the derived view. With an
// X-Session-ID header the view also becomes the session's latest.
func RouteViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req routeViewRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		sid := c.Get(sessionHeader)
		if sid != "" && !validSessionID(sid) {
			return errBadRequest(c, "invalid X-Session-ID")
		}

		view, err := deps.Planner.Search(c.UserContext(), sid, req.StartCity, req.EndCity)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Warn("route search failed",
				"start_city", req.StartCity, "end_city", req.EndCity, "error", err)
			return errFromDomain(c, err)
		}
		return c.JSON(view)
	}
}

// SessionViewHandler returns the session's latest view, or the empty view.
func SessionViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Params("sid")
		if !validSessionID(sid) {
			return errBadRequest(c, "invalid session id")
		}
		view, err := deps.Planner.LatestView(c.UserContext(), sid)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(view)
	}
}

// SessionViewGeoJSONHandler exports the latest view as a FeatureCollection.
func SessionViewGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Params("sid")
		if !validSessionID(sid) {
			return errBadRequest(c, "invalid session id")
		}
		view, err := deps.Planner.LatestView(c.UserContext(), sid)
		if err != nil {
			return errFromDomain(c, err)
		}
		data, err := ViewFeatureCollection(view).MarshalJSON()
		if err != nil {
			return errInternal(c, "encode geojson")
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}

// SessionSearchesHandler lists a session's search history.
func SessionSearchesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Params("sid")
		if !validSessionID(sid) {
			return errBadRequest(c, "invalid session id")
		}

		offset, limit := pageParams(c)

		recs, total, err := deps.History.List(c.UserContext(), sid, offset, limit)
		if err != nil {
			return errFromDomain(c, err)
		}
		if recs == nil {
			recs = []domain.SearchRecord{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: recs, Pagination: pg})
	}
}

// GetStateHandler returns a stored client blob verbatim.
func GetStateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		blob, err := deps.State.Get(c.UserContext(), c.Params("key"))
		if errors.Is(err, domain.ErrNotFound) {
			return errNotFound(c, "no state stored under this key")
		}
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
		return c.Send(blob)
	}
}

// PutStateHandler replaces the blob under a key with the request body.
func PutStateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := append([]byte(nil), c.Body()...)
		if err := deps.State.Set(c.UserContext(), c.Params("key"), body); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DeleteStateHandler removes a key.
func DeleteStateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.State.Delete(c.UserContext(), c.Params("key")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// LoginHandler forwards credentials and returns a session token on success.
func LoginHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var creds domain.Credentials
		if err := c.BodyParser(&creds); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		res, err := deps.Auth.Login(c.UserContext(), creds)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(res)
	}
}

// RegisterHandler creates an account and returns a session token.
func RegisterHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var creds domain.Credentials
		if err := c.BodyParser(&creds); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		res, err := deps.Auth.Register(c.UserContext(), creds)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// MeHandler echoes the claims of the bearer token.
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(claimsKey).(*domain.SessionClaims)
		if !ok {
			return errUnauthorized(c, "missing session")
		}
		return c.JSON(claims)
	}
}

const claimsKey = "session_claims"

// RequireAuth rejects requests without a valid "Authorization: Bearer" token.
func RequireAuth(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			return errUnauthorized(c, "bearer token required")
		}
		claims, err := deps.Auth.VerifyToken(strings.TrimSpace(token))
		if err != nil {
			return errUnauthorized(c, "invalid or expired token")
		}
		c.Locals(claimsKey, claims)
		return c.Next()
	}
}
