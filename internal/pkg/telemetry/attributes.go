package telemetry

// Span names.
const (
	SpanFetchRecommendations = "backend.fetch_recommendations"
	SpanAuth                 = "backend.auth"
)

// Span attribute keys shared by the adapters.
const (
	AttrStartCity  = "route.start_city"
	AttrEndCity    = "route.end_city"
	AttrPlaceCount = "route.place_count"
	AttrEndpoint   = "backend.endpoint"
	AttrHTTPStatus = "http.status_code"
)
