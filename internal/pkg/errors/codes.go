package errors

import "net/http"

// StatusClientClosedRequest - нестандартный код nginx для отменённых клиентом запросов
const StatusClientClosedRequest = 499

// Нарушения контракта: ошибки вызывающей стороны, никогда не ретраятся
var (
	ErrInvalidLegRequest = New(
		"INVALID_LEG_REQUEST",
		"Hub-to-hub legs must be built as air legs",
		http.StatusBadRequest,
	)

	ErrInvalidConfiguration = New(
		"INVALID_CONFIGURATION",
		"Invalid route configuration",
		http.StatusBadRequest,
	)

	ErrEmptySelection = New(
		"EMPTY_SELECTION",
		"Select at least one hub or satellite",
		http.StatusBadRequest,
	)

	ErrSelectionTooLarge = New(
		"SELECTION_TOO_LARGE",
		"Selection exceeds the maximum number of locations",
		http.StatusBadRequest,
	)

	ErrTooManyWaypoints = New(
		"TOO_MANY_WAYPOINTS",
		"Too many waypoints for provider optimization",
		http.StatusBadRequest,
	)
)

// Ошибки провайдера маршрутов и геокодинга
var (
	ErrProviderUnavailable = New(
		"PROVIDER_UNAVAILABLE",
		"Routing provider is unavailable",
		http.StatusServiceUnavailable,
	)

	ErrRouteNotFound = New(
		"ROUTE_NOT_FOUND",
		"Routing provider returned no route",
		http.StatusNotFound,
	)

	ErrQuotaExceeded = New(
		"QUOTA_EXCEEDED",
		"Routing provider quota exceeded, try again later",
		http.StatusTooManyRequests,
	)

	ErrGeocodingFailed = New(
		"GEOCODING_FAILED",
		"Geocoding failed",
		http.StatusUnprocessableEntity,
	)
)

var (
	ErrLocationNotFound = New(
		"LOCATION_NOT_FOUND",
		"Location not found",
		http.StatusNotFound,
	)

	ErrSessionNotFound = New(
		"SESSION_NOT_FOUND",
		"Session not found",
		http.StatusNotFound,
	)

	ErrRouteNotComputed = New(
		"ROUTE_NOT_COMPUTED",
		"No route is displayed for the current selection",
		http.StatusNotFound,
	)

	ErrInvalidCoordinates = New(
		"INVALID_COORDINATES",
		"Invalid coordinates provided",
		http.StatusBadRequest,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrRequestCancelled = New(
		"REQUEST_CANCELLED",
		"Request was cancelled",
		StatusClientClosedRequest,
	)

	ErrCacheError = New(
		"CACHE_ERROR",
		"Cache operation failed",
		http.StatusInternalServerError,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)

var contractViolations = []*AppError{
	ErrInvalidLegRequest,
	ErrInvalidConfiguration,
	ErrEmptySelection,
	ErrSelectionTooLarge,
	ErrTooManyWaypoints,
}

var providerFailures = []*AppError{
	ErrProviderUnavailable,
	ErrRouteNotFound,
	ErrQuotaExceeded,
	ErrGeocodingFailed,
}
