package tracking

import (
	"location-relay/internal/relay"

	"github.com/gofiber/fiber/v2"
)

const errSessionNotFound = "Session not found"

// RegisterRoutes mounts the read-only query endpoints. Nothing here mutates
// relay state.
func RegisterRoutes(r fiber.Router, svc *relay.Service) {
	r.Get("/sessions", func(c *fiber.Ctx) error {
		items, active := svc.Sessions()
		return c.JSON(SessionsResponse{
			Total:    len(items),
			Active:   active,
			Sessions: items,
		})
	})

	r.Get("/sessions/:sessionId", func(c *fiber.Ctx) error {
		detail, ok := svc.Session(c.Params("sessionId"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, errSessionNotFound)
		}
		return c.JSON(detail)
	})

	r.Get("/sessions/:sessionId/locations", func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", defaultLimit)
		if limit <= 0 {
			limit = defaultLimit
		}
		offset := c.QueryInt("offset", defaultOffset)
		if offset < 0 {
			offset = defaultOffset
		}

		page, ok := svc.Locations(c.Params("sessionId"), offset, limit)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, errSessionNotFound)
		}
		return c.JSON(page)
	})

	r.Get("/sessions/:sessionId/summary", func(c *fiber.Ctx) error {
		summary, ok := svc.Summary(c.Params("sessionId"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, errSessionNotFound)
		}
		return c.JSON(summary)
	})

	r.Get("/clients", func(c *fiber.Ctx) error {
		list := svc.Clients()
		return c.JSON(ClientsResponse{
			Total:   len(list),
			Clients: list,
		})
	})
}
