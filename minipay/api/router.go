package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// NewApp builds the fiber application with all routes registered.
func NewApp(handler *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "minipay",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return OK(c, fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/v1")

	v1.Post("/users", handler.Register)
	v1.Post("/users/:id/savings-accounts", handler.CreateSavingsAccount)
	v1.Get("/users/:id/accounts", handler.UserAccounts)

	v1.Get("/accounts/:id", handler.Account)
	v1.Get("/accounts/:id/transactions", handler.AccountTransactions)
	v1.Post("/accounts/:id/deposits", handler.Deposit)
	v1.Post("/accounts/:id/withdrawals", handler.Withdraw)

	v1.Post("/transfers", handler.Transfer)

	v1.Post("/settlements", handler.CreateSettlement)
	v1.Get("/settlements/:id", handler.Settlement)
	v1.Post("/settlements/:id/participants/:participantId/approval", handler.ApproveShare)
	v1.Post("/settlements/:id/participants/:participantId/rejection", handler.RejectShare)

	return app
}
