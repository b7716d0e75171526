package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"airvisual-poller/internal/poller"
	"airvisual-poller/internal/store"
)

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, st *store.LatestStore, p *poller.Poller) {
	v1 := app.Group("/api/v1")

	v1.Get("/air/current", func(c *fiber.Ctx) error {
		reading, err := st.Current(time.Now().UTC())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no current air-quality reading")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read air-quality data")
		}
		return c.JSON(reading)
	})

	v1.Get("/air/status", func(c *fiber.Ctx) error {
		status := fiber.Map{
			"state": p.State(),
		}

		if reading, err := st.Latest(); err == nil {
			status["lastReading"] = reading
		}
		if failure, ok := st.LastFailure(); ok {
			status["lastFailure"] = failure
		}

		return c.JSON(status)
	})
}
