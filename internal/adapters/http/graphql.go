package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/hiitroute/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
// Object fields resolve through the json tags of the domain structs.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	meetingLocationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MeetingLocation",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"crew_id":    &graphql.Field{Type: graphql.String},
			"name":       &graphql.Field{Type: graphql.String},
			"location":   &graphql.Field{Type: geoPointType},
			"created_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	legType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Leg",
		Fields: graphql.Fields{
			"leg_number": &graphql.Field{Type: graphql.Int},
			"distance":   &graphql.Field{Type: graphql.Int},
			"polyline":   &graphql.Field{Type: graphql.NewList(geoPointType)},
			"encoded_polyline": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					leg, ok := p.Source.(domain.PayloadLeg)
					if !ok {
						return nil, nil
					}
					return encodePoints(leg.Polyline), nil
				},
			},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "WorkoutRoute",
		Fields: graphql.Fields{
			"id":                  &graphql.Field{Type: graphql.String},
			"crew_id":             &graphql.Field{Type: graphql.String},
			"name":                &graphql.Field{Type: graphql.String},
			"meeting_location_id": &graphql.Field{Type: graphql.String},
			"warmup_location":     &graphql.Field{Type: geoPointType},
			"chilldown_location":  &graphql.Field{Type: geoPointType},
			"stops":               &graphql.Field{Type: graphql.NewList(geoPointType)},
			"legs":                &graphql.Field{Type: graphql.NewList(legType)},
			"distance_meters":     &graphql.Field{Type: graphql.Int},
			"created_at":          &graphql.Field{Type: graphql.DateTime},
		},
	})

	viewType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteView",
		Fields: graphql.Fields{
			"phase":                       &graphql.Field{Type: graphql.String},
			"current_leg_distance_meters": &graphql.Field{Type: graphql.Int},
			"total_distance_meters":       &graphql.Field{Type: graphql.Int},
			"can_mark_stop":               &graphql.Field{Type: graphql.Boolean},
			"can_finalize":                &graphql.Field{Type: graphql.Boolean},
			"markers": &graphql.Field{Type: graphql.NewList(graphql.NewObject(graphql.ObjectConfig{
				Name: "Marker",
				Fields: graphql.Fields{
					"kind":     &graphql.Field{Type: graphql.String},
					"title":    &graphql.Field{Type: graphql.String},
					"location": &graphql.Field{Type: geoPointType},
				},
			}))},
			"polylines": &graphql.Field{Type: graphql.NewList(graphql.NewObject(graphql.ObjectConfig{
				Name: "Polyline",
				Fields: graphql.Fields{
					"style":  &graphql.Field{Type: graphql.String},
					"points": &graphql.Field{Type: graphql.NewList(geoPointType)},
				},
			}))},
			"bounds": &graphql.Field{Type: graphql.NewObject(graphql.ObjectConfig{
				Name: "Bounds",
				Fields: graphql.Fields{
					"min_lat": &graphql.Field{Type: graphql.Float},
					"min_lon": &graphql.Field{Type: graphql.Float},
					"max_lat": &graphql.Field{Type: graphql.Float},
					"max_lon": &graphql.Field{Type: graphql.Float},
				},
			})},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":               &graphql.Field{Type: graphql.String},
			"crew_id":          &graphql.Field{Type: graphql.String},
			"meeting_location": &graphql.Field{Type: meetingLocationType},
			"version":          &graphql.Field{Type: graphql.Int},
			"finalized":        &graphql.Field{Type: graphql.Boolean},
			"saved_route_id":   &graphql.Field{Type: graphql.String},
			"view":             &graphql.Field{Type: viewType},
			"created_at":       &graphql.Field{Type: graphql.DateTime},
			"updated_at":       &graphql.Field{Type: graphql.DateTime},
		},
	})

	idArg := graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"route": &graphql.Field{
				Type:        routeType,
				Description: "Get a saved route by ID",
				Args:        idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Routes.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"routes": &graphql.Field{
				Type:        graphql.NewList(routeType),
				Description: "List saved routes for a crew or a meeting location",
				Args: graphql.FieldConfigArgument{
					"crew_id":             &graphql.ArgumentConfig{Type: graphql.String},
					"meeting_location_id": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if id, _ := p.Args["meeting_location_id"].(string); id != "" {
						return deps.Routes.ListByMeetingLocation(p.Context, id)
					}
					if crew, _ := p.Args["crew_id"].(string); crew != "" {
						return deps.Routes.ListByCrew(p.Context, crew)
					}
					return nil, errors.New("crew_id or meeting_location_id is required")
				},
			},
			"meetingLocation": &graphql.Field{
				Type:        meetingLocationType,
				Description: "Get a meeting location by ID",
				Args:        idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Locations.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"meetingLocations": &graphql.Field{
				Type:        graphql.NewList(meetingLocationType),
				Description: "List a crew's meeting locations",
				Args: graphql.FieldConfigArgument{
					"crew_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Locations.ListByCrew(p.Context, p.Args["crew_id"].(string))
				},
			},
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Current snapshot of a route-editing session",
				Args:        idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sess, err := deps.Sessions.Get(p.Context, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return newSessionResponse(sess), nil
				},
			},
		},
	})

	sessionMutation := func(desc string, args graphql.FieldConfigArgument,
		op func(ctx context.Context, p graphql.ResolveParams) (*domain.Session, error)) *graphql.Field {
		return &graphql.Field{
			Type:        sessionType,
			Description: desc,
			Args:        args,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				sess, err := op(p.Context, p)
				if err != nil {
					return nil, err
				}
				return newSessionResponse(sess), nil
			},
		}
	}

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"startSession": sessionMutation("Open a route-editing session",
				graphql.FieldConfigArgument{
					"crew_id":             &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"meeting_location_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				func(ctx context.Context, p graphql.ResolveParams) (*domain.Session, error) {
					return deps.Sessions.Start(ctx, p.Args["crew_id"].(string), p.Args["meeting_location_id"].(string))
				}),
			"addPoint": sessionMutation("Append a point to the route",
				graphql.FieldConfigArgument{
					"id":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				func(ctx context.Context, p graphql.ResolveParams) (*domain.Session, error) {
					pt := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					return deps.Sessions.AddPoint(ctx, p.Args["id"].(string), pt)
				}),
			"markStop": sessionMutation("Close the current leg", idArg,
				func(ctx context.Context, p graphql.ResolveParams) (*domain.Session, error) {
					return deps.Sessions.MarkStop(ctx, p.Args["id"].(string))
				}),
			"undo": sessionMutation("Remove the last point or stop", idArg,
				func(ctx context.Context, p graphql.ResolveParams) (*domain.Session, error) {
					return deps.Sessions.Undo(ctx, p.Args["id"].(string))
				}),
			"reset": sessionMutation("Clear the route", idArg,
				func(ctx context.Context, p graphql.ResolveParams) (*domain.Session, error) {
					return deps.Sessions.Reset(ctx, p.Args["id"].(string))
				}),
			"finalize": &graphql.Field{
				Type:        routeType,
				Description: "Name and save the session's route",
				Args: graphql.FieldConfigArgument{
					"id":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sessions.Finalize(p.Context, p.Args["id"].(string), p.Args["name"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
