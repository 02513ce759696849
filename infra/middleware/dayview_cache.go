// Package middleware provides the HTTP middleware stack: auth, error
// handling, request logging and response cache headers.
package middleware

import (
	"crypto/md5"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ETag generates and validates ETags for GET responses. Aggregated event
// lists are recomputed per request, so conditional requests save the
// transfer even when the payload is unchanged.
func ETag() fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := c.Method()
		if method != "GET" && method != "HEAD" {
			return c.Next()
		}

		if err := c.Next(); err != nil {
			return err
		}

		if c.Response().StatusCode() >= 400 {
			return nil
		}

		body := c.Response().Body()
		if len(body) == 0 {
			return nil
		}

		hash := md5.Sum(body)
		etag := fmt.Sprintf(`"%x"`, hash)
		c.Set("ETag", etag)

		if c.Get("If-None-Match") == etag {
			c.Status(304)
			c.Response().SetBody(nil)
		}

		return nil
	}
}

// PrivateCache sets private cache headers for user-specific data.
func PrivateCache(maxAge time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}

		if c.Response().StatusCode() < 400 {
			c.Set("Cache-Control", fmt.Sprintf("private, max-age=%d", int(maxAge.Seconds())))
		}

		return nil
	}
}

// NoCache sets no-cache headers for dynamic responses.
func NoCache() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Set("Pragma", "no-cache")
		c.Set("Expires", "0")
		return c.Next()
	}
}
