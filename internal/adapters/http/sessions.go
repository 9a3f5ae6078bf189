package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/hiitroute/internal/core/domain"
	"github.com/samirrijal/hiitroute/internal/core/usecases"
	"github.com/samirrijal/hiitroute/internal/pkg/geospatial"
)

type startSessionRequest struct {
	CrewID            string `json:"crew_id"`
	MeetingLocationID string `json:"meeting_location_id"`
}

// pointRequest carries either one coordinate or a Google encoded polyline of
// several points to append in order.
type pointRequest struct {
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	Polyline string   `json:"polyline"`
}

type finalizeRequest struct {
	Name string `json:"name"`
}

type sessionResponse struct {
	ID              string                  `json:"id"`
	CrewID          string                  `json:"crew_id"`
	MeetingLocation *domain.MeetingLocation `json:"meeting_location,omitempty"`
	Version         int64                   `json:"version"`
	Finalized       bool                    `json:"finalized"`
	SavedRouteID    string                  `json:"saved_route_id,omitempty"`
	View            domain.RouteView        `json:"view"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

func newSessionResponse(sess *domain.Session) sessionResponse {
	return sessionResponse{
		ID:              sess.ID,
		CrewID:          sess.CrewID,
		MeetingLocation: sess.MeetingLocation,
		Version:         sess.Version,
		Finalized:       sess.Finalized,
		SavedRouteID:    sess.SavedRouteID,
		View:            usecases.SessionView(sess),
		CreatedAt:       sess.CreatedAt,
		UpdatedAt:       sess.UpdatedAt,
	}
}

// StartSessionHandler opens a route-editing session at a meeting location.
func StartSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req startSessionRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		sess, err := deps.Sessions.Start(c.UserContext(), req.CrewID, req.MeetingLocationID)
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Location("/v1/sessions/" + sess.ID)
		return c.Status(fiber.StatusCreated).JSON(newSessionResponse(sess))
	}
}

// GetSessionHandler returns the current snapshot of a session.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Sessions.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(newSessionResponse(sess))
	}
}

// SessionGeoJSONHandler renders the session's current view as GeoJSON.
func SessionGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		exp, err := deps.Exports.SessionGeoJSON(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set(fiber.HeaderContentType, exp.ContentType)
		return c.Send(exp.Data)
	}
}

// AddPointHandler appends one point, or every point of an encoded polyline.
func AddPointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req pointRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		ctx := c.UserContext()
		id := c.Params("id")

		var (
			sess *domain.Session
			err  error
		)
		switch {
		case req.Polyline != "":
			pairs, decodeErr := geospatial.DecodePolyline(req.Polyline)
			if decodeErr != nil {
				return errBadRequest(c, decodeErr.Error())
			}
			points := make([]domain.GeoPoint, len(pairs))
			for i, p := range pairs {
				points[i] = domain.GeoPoint{Lat: p[0], Lon: p[1]}
			}
			sess, err = deps.Sessions.AddPoints(ctx, id, points)
		case req.Lat != nil && req.Lon != nil:
			sess, err = deps.Sessions.AddPoint(ctx, id, domain.GeoPoint{Lat: *req.Lat, Lon: *req.Lon})
		default:
			return errBadRequest(c, "lat and lon, or polyline, are required")
		}
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(newSessionResponse(sess))
	}
}

// MarkStopHandler closes the current leg.
func MarkStopHandler(deps *Dependencies) fiber.Handler {
	return sessionOpHandler(func(ctx context.Context, id string) (*domain.Session, error) {
		return deps.Sessions.MarkStop(ctx, id)
	})
}

// UndoHandler removes the most recently placed point or stop.
func UndoHandler(deps *Dependencies) fiber.Handler {
	return sessionOpHandler(func(ctx context.Context, id string) (*domain.Session, error) {
		return deps.Sessions.Undo(ctx, id)
	})
}

// ResetHandler clears the route and starts over in the same session.
func ResetHandler(deps *Dependencies) fiber.Handler {
	return sessionOpHandler(func(ctx context.Context, id string) (*domain.Session, error) {
		return deps.Sessions.Reset(ctx, id)
	})
}

func sessionOpHandler(op func(ctx context.Context, id string) (*domain.Session, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := op(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(newSessionResponse(sess))
	}
}

// FinalizeSessionHandler names the route and saves it.
func FinalizeSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req finalizeRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}

		route, err := deps.Sessions.Finalize(c.UserContext(), c.Params("id"), req.Name)
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Location("/v1/routes/" + route.ID)
		return c.Status(fiber.StatusCreated).JSON(newRouteResponse(route))
	}
}

// DiscardSessionHandler drops a session without saving.
func DiscardSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.Discard(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
