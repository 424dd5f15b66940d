// Package httpmw provides HTTP middleware for the public site and API.
//
// httpserver.NewHandler composes them outermost first: security headers,
// panic recovery, request ID, client IP, the flood guard, tracing, profile
// headers, trace headers, metrics, request-scoped logging, then the chi
// router with route annotation, access logging and body limits.
//
// Request values supplied by the client (query strings aside) stay out of
// log fields so they cannot inject into log lines.
package httpmw
