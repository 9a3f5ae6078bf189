package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/hiitroute/internal/core/domain"
	"github.com/samirrijal/hiitroute/internal/pkg/geospatial"
	"github.com/samirrijal/hiitroute/internal/pkg/logging"
)

type createLocationRequest struct {
	CrewID string   `json:"crew_id"`
	Name   string   `json:"name"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
}

// legResponse adds the Google encoded polyline of a leg, for map clients
// that draw from encoded strings.
type legResponse struct {
	domain.PayloadLeg
	EncodedPolyline string `json:"encoded_polyline"`
}

type routeResponse struct {
	*domain.WorkoutRoute
	Legs []legResponse `json:"legs"`
}

func newRouteResponse(r *domain.WorkoutRoute) routeResponse {
	legs := make([]legResponse, len(r.Legs))
	for i, l := range r.Legs {
		legs[i] = legResponse{PayloadLeg: l, EncodedPolyline: encodePoints(l.Polyline)}
	}
	return routeResponse{WorkoutRoute: r, Legs: legs}
}

func newRouteResponses(routes []domain.WorkoutRoute) []routeResponse {
	out := make([]routeResponse, len(routes))
	for i := range routes {
		out[i] = newRouteResponse(&routes[i])
	}
	return out
}

func encodePoints(points []domain.GeoPoint) string {
	pairs := make([][2]float64, len(points))
	for i, p := range points {
		pairs[i] = [2]float64{p.Lat, p.Lon}
	}
	return geospatial.EncodePolyline(pairs)
}

// CreateMeetingLocationHandler stores a meeting location picked on the map.
func CreateMeetingLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createLocationRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Lat == nil || req.Lon == nil {
			return errBadRequest(c, "lat and lon are required")
		}

		loc, err := deps.Locations.Create(c.UserContext(), req.CrewID, req.Name,
			domain.GeoPoint{Lat: *req.Lat, Lon: *req.Lon})
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Location("/v1/meeting-locations/" + loc.ID)
		return c.Status(fiber.StatusCreated).JSON(loc)
	}
}

// ListMeetingLocationsHandler lists a crew's meeting locations.
func ListMeetingLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		crewID := c.Query("crew_id")
		if crewID == "" {
			return errBadRequest(c, "crew_id query parameter is required")
		}

		locs, err := deps.Locations.ListByCrew(c.UserContext(), crewID)
		if err != nil {
			return errFromDomain(c, err)
		}

		offset, limit := pageParams(c)
		page, pg := paginate(locs, offset, limit)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// GetMeetingLocationHandler returns a single meeting location.
func GetMeetingLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		loc, err := deps.Locations.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(loc)
	}
}

// ListRoutesHandler lists saved routes for a crew or a meeting location.
func ListRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		crewID := c.Query("crew_id")
		meetingID := c.Query("meeting_location_id")

		var (
			routes []domain.WorkoutRoute
			err    error
		)
		switch {
		case meetingID != "":
			routes, err = deps.Routes.ListByMeetingLocation(c.UserContext(), meetingID)
		case crewID != "":
			routes, err = deps.Routes.ListByCrew(c.UserContext(), crewID)
		default:
			return errBadRequest(c, "crew_id or meeting_location_id query parameter is required")
		}
		if err != nil {
			return errFromDomain(c, err)
		}

		offset, limit := pageParams(c)
		page, pg := paginate(routes, offset, limit)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: newRouteResponses(page), Pagination: pg})
	}
}

// GetRouteHandler returns a saved route.
func GetRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		route, err := deps.Routes.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(newRouteResponse(route))
	}
}

// DeleteRouteHandler deletes a saved route and, best effort, its stored GPX file.
func DeleteRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		id := c.Params("id")

		route, err := deps.Routes.GetByID(ctx, id)
		if err != nil {
			return errFromDomain(c, err)
		}
		if err := deps.Routes.Delete(ctx, id); err != nil {
			return errFromDomain(c, err)
		}

		if route.GPXObjectKey != "" && deps.Exports != nil {
			if err := deps.Exports.DeleteGPX(ctx, route.GPXObjectKey); err != nil {
				logging.FromContext(ctx).Warn("failed to delete gpx artifact",
					"route_id", id, "key", route.GPXObjectKey, "error", err)
			}
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// RouteGPXHandler downloads a saved route as GPX 1.1.
func RouteGPXHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		exp, err := deps.Exports.GPX(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return sendExport(c, exp.Filename, exp.ContentType, exp.Data)
	}
}

// RouteGeoJSONHandler downloads a saved route as a GeoJSON FeatureCollection.
func RouteGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		exp, err := deps.Exports.GeoJSON(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return sendExport(c, exp.Filename, exp.ContentType, exp.Data)
	}
}

// LegacySaveRouteHandler accepts a finished payload built on the client, the
// way the first mobile release saved routes.
func LegacySaveRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var payload domain.RoutePayload
		if err := c.BodyParser(&payload); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		payload.Name = strings.TrimSpace(payload.Name)

		route, err := deps.saver().SaveRoute(c.UserContext(), c.Params("crew_id"), payload)
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Location("/v1/routes/" + route.ID)
		return c.Status(fiber.StatusCreated).JSON(newRouteResponse(route))
	}
}

func sendExport(c *fiber.Ctx, filename, contentType string, data []byte) error {
	c.Attachment(filename)
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(data)
}
