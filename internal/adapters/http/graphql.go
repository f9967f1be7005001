package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/touristroute/internal/core/domain"
)

var errInvalidSession = &domain.ValidationError{Field: "session_id", Message: "invalid session id"}

// buildSchema creates the GraphQL schema wired to our services. Field names
// follow the JSON tags of the domain types so the default resolver applies.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
			"south_west": &graphql.Field{
				Type: geoPointType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if b, ok := p.Source.(*domain.Bounds); ok {
						return b.SouthWest(), nil
					}
					return nil, nil
				},
			},
			"north_east": &graphql.Field{
				Type: geoPointType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if b, ok := p.Source.(*domain.Bounds); ok {
						return b.NorthEast(), nil
					}
					return nil, nil
				},
			},
		},
	})

	cityLocationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CityLocation",
		Fields: graphql.Fields{
			"city":     &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: geoPointType},
		},
	})

	routeSummaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteSummary",
		Fields: graphql.Fields{
			"distance_km":    &graphql.Field{Type: graphql.Float},
			"duration_hours": &graphql.Field{Type: graphql.Float},
		},
	})

	placeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Place",
		Fields: graphql.Fields{
			"id":                     &graphql.Field{Type: graphql.String},
			"name":                   &graphql.Field{Type: graphql.String},
			"location":               &graphql.Field{Type: geoPointType},
			"category":               &graphql.Field{Type: graphql.String},
			"description":            &graphql.Field{Type: graphql.String},
			"distance_from_route_km": &graphql.Field{Type: graphql.Float},
		},
	})

	rankedPlaceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RankedPlace",
		Fields: graphql.Fields{
			"place":          &graphql.Field{Type: placeType},
			"is_highlighted": &graphql.Field{Type: graphql.Boolean},
		},
	})

	routeViewType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteView",
		Fields: graphql.Fields{
			"request_id":          &graphql.Field{Type: graphql.String},
			"center":              &graphql.Field{Type: geoPointType},
			"bounding_region":     &graphql.Field{Type: boundsType},
			"route_path":          &graphql.Field{Type: graphql.NewList(geoPointType)},
			"path_length_km":      &graphql.Field{Type: graphql.Float},
			"ranked_places":       &graphql.Field{Type: graphql.NewList(rankedPlaceType)},
			"highlights_only":     &graphql.Field{Type: graphql.NewList(rankedPlaceType)},
			"start_location":      &graphql.Field{Type: cityLocationType},
			"end_location":        &graphql.Field{Type: cityLocationType},
			"route":               &graphql.Field{Type: routeSummaryType},
			"recommendation_text": &graphql.Field{Type: graphql.String},
			"generated_at":        &graphql.Field{Type: graphql.DateTime},
		},
	})

	searchRecordType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchRecord",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"session_id":  &graphql.Field{Type: graphql.String},
			"start_city":  &graphql.Field{Type: graphql.String},
			"end_city":    &graphql.Field{Type: graphql.String},
			"status":      &graphql.Field{Type: graphql.String},
			"place_count": &graphql.Field{Type: graphql.Int},
			"error":       &graphql.Field{Type: graphql.String},
			"created_at":  &graphql.Field{Type: graphql.DateTime},
		},
	})

	searchPageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchPage",
		Fields: graphql.Fields{
			"data":  &graphql.Field{Type: graphql.NewList(searchRecordType)},
			"total": &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"sessionView": &graphql.Field{
				Type:        routeViewType,
				Description: "Latest view of a session (empty view when none)",
				Args: graphql.FieldConfigArgument{
					"sessionId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Planner.LatestView(p.Context, p.Args["sessionId"].(string))
				},
			},
			"searches": &graphql.Field{
				Type:        searchPageType,
				Description: "Search history of a session, newest first",
				Args: graphql.FieldConfigArgument{
					"sessionId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"offset":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					recs, total, err := deps.History.List(p.Context,
						p.Args["sessionId"].(string), p.Args["offset"].(int), p.Args["limit"].(int))
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{"data": recs, "total": total}, nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"routeView": &graphql.Field{
				Type:        routeViewType,
				Description: "Search a route and derive its view",
				Args: graphql.FieldConfigArgument{
					"startCity": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"endCity":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"sessionId": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sid, _ := p.Args["sessionId"].(string)
					if sid != "" && !validSessionID(sid) {
						return nil, errInvalidSession
					}
					return deps.Planner.Search(p.Context,
						sid, p.Args["startCity"].(string), p.Args["endCity"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves POST /graphql.
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
		if req.Query == "" {
			return errBadRequest(c, "query is required")
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
