// Package webresponse holds the small set of JSON envelope helpers every
// httpapi handler uses, keeping field naming (success/error/error_code)
// consistent across the surface described in spec.md §6.
package webresponse

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// OK writes a 200 with body merged into {"success": true}.
func OK(c echo.Context, body map[string]any) error {
	out := map[string]any{"success": true}
	for k, v := range body {
		out[k] = v
	}
	return c.JSON(http.StatusOK, out)
}

// Created writes a 201 with body merged into {"success": true}.
func Created(c echo.Context, body map[string]any) error {
	out := map[string]any{"success": true}
	for k, v := range body {
		out[k] = v
	}
	return c.JSON(http.StatusCreated, out)
}

// Error writes {"error": message, "error_code": code} at status.
func Error(c echo.Context, status int, message, code string) error {
	body := map[string]any{"error": message}
	if code != "" {
		body["error_code"] = code
	}
	return c.JSON(status, body)
}
