// Package server provides the HTTP surface of the video-to-GIF API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// ConvertResponse is the HTTP response of a hosted-url conversion.
type ConvertResponse struct {
	// Success is always true.
	Success bool `json:"success"`
	// GIFURL is the public URL of the hosted GIF.
	GIFURL string `json:"gif_url"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Success is always false.
	Success bool `json:"success"`
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
	// DeliveryMode is the configured delivery mode.
	DeliveryMode string `json:"delivery_mode"`
}
