// Package api implements the HTTP client for the Not So Long REST backend.
//
// # Session Client
//
// [Client] is the single point of outbound HTTP traffic. It owns the default
// Authorization header and implements transparent token refresh: a request
// failing with 401 triggers at most one refresh-and-retry, and concurrent
// 401s share a single in-flight refresh call rather than each issuing their
// own. Requests to the refresh endpoint itself are never intercepted.
//
// # Token Storage
//
// The [TokenStore] interface abstracts durable storage of the access/refresh
// token pair. Implementations live in internal/auth. On refresh failure the
// client clears the store and the default header before propagating the
// original error.
//
// # Error Handling
//
// Non-2xx responses decode into [*Error] carrying the status code and the
// backend's field-level payload. [ErrorMessage] humanizes any error for
// display. The random-title endpoint's 404 is translated by [Client.RandomTitle]:
// an empty exclude list means the category has no titles at all
// ([shared.ErrNoTitles]); a non-empty exclude list means recent history is
// exhausted, returned as a nil bundle with no error.
package api
