package api

import (
	"context"

	"github.com/Tiel0043/projecthub/minipay/ledger"
	"github.com/Tiel0043/projecthub/minipay/settlement"
	"github.com/Tiel0043/projecthub/minipay/transfer"
	"github.com/Tiel0043/projecthub/minipay/user"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordSource reads the append-only transaction log.
type RecordSource interface {
	RecordsByAccount(ctx context.Context, accountID uuid.UUID) ([]ledger.TransactionRecord, error)
}

// Handler binds the domain services to HTTP routes.
type Handler struct {
	users       *user.Service
	engine      *transfer.Engine
	settlements *settlement.Service
	records     RecordSource
}

// NewHandler creates the route handler.
func NewHandler(users *user.Service, engine *transfer.Engine, settlements *settlement.Service, records RecordSource) *Handler {
	return &Handler{users: users, engine: engine, settlements: settlements, records: records}
}

// ---------------------------------------------------------------------------
// Users and accounts
// ---------------------------------------------------------------------------

type registerRequest struct {
	Username string `json:"username"`
}

type registerResponse struct {
	User        user.User      `json:"user"`
	MainAccount ledger.Account `json:"mainAccount"`
}

// Register creates a user together with their MAIN account.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequest(c, string(ledger.ErrorInvalidInput), "", "invalid request body")
	}

	created, account, err := h.users.Register(c.Context(), req.Username)
	if err != nil {
		return DomainError(c, err)
	}

	return Created(c, registerResponse{User: created, MainAccount: account})
}

// CreateSavingsAccount adds a SAVINGS account to an existing user.
func (h *Handler) CreateSavingsAccount(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequest(c, string(ledger.ErrorInvalidInput), "id", "invalid user id")
	}

	account, err := h.users.CreateSavingsAccount(c.Context(), userID)
	if err != nil {
		return DomainError(c, err)
	}

	return Created(c, account)
}

// UserAccounts lists the user's accounts.
func (h *Handler) UserAccounts(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequest(c, string(ledger.ErrorInvalidInput), "id", "invalid user id")
	}

	accounts, err := h.users.Accounts(c.Context(), userID)
	if err != nil {
		return DomainError(c, err)
	}

	return OK(c, accounts)
}

// Account returns a single account.
func (h *Handler) Account(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequest(c, string(ledger.ErrorInvalidInput), "id", "invalid account id")
	}

	account, err := h.engine.Account(c.Context(), accountID)
	if err != nil {
		return DomainError(c, err)
	}

	return OK(c, account)
}

// AccountTransactions lists the records touching an account, oldest first.
func (h *Handler) AccountTransactions(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequest(c, string(ledger.ErrorInvalidInput), "id", "invalid account id")
	}

	if _, err := h.engine.Account(c.Context(), accountID); err != nil {
		return DomainError(c, err)
	}

	records, err := h.records.RecordsByAccount(c.Context(), accountID)
	if err != nil {
		return DomainError(c, err)
	}

	return OK(c, records)
}

// ---------------------------------------------------------------------------
// Money movement
// ---------------------------------------------------------------------------

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Deposit credits an account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequest(c, string(ledger.ErrorInvalidInput), "id", "invalid account id")
	}

	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequest(c, string(ledger.ErrorInvalidInput), "amount", "invalid request body")
	}

	record, err := h.engine.Deposit(c.Context(), accountID, req.Amount)
	if err != nil {
		return DomainError(c, err)
	}

	return Created(c, record)
}

// Withdraw debits an account, consuming the daily limit on limited accounts.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequest(c, string(ledger.ErrorInvalidInput), "id", "invalid account id")
	}

	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequest(c, string(ledger.ErrorInvalidInput), "amount", "invalid request body")
	}

	record, err := h.engine.WithdrawLimited(c.Context(), accountID, req.Amount)
	if err != nil {
		return DomainError(c, err)
	}

	return Created(c, record)
}

type transferRequest struct {
	FromAccountID uuid.UUID       `json:"fromAccountId"`
	ToAccountID   uuid.UUID       `json:"toAccountId"`
	Amount        decimal.Decimal `json:"amount"`
}

// Transfer moves money between two accounts.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequest(c, string(ledger.ErrorInvalidInput), "", "invalid request body")
	}

	record, err := h.engine.Transfer(c.Context(), req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		return DomainError(c, err)
	}

	return Created(c, record)
}

// ---------------------------------------------------------------------------
// Settlements
// ---------------------------------------------------------------------------

type createSettlementRequest struct {
	RequesterID    uuid.UUID         `json:"requesterId"`
	TotalAmount    decimal.Decimal   `json:"totalAmount"`
	ParticipantIDs []uuid.UUID       `json:"participantIds"`
	Policy         settlement.Policy `json:"policy"`
}

// CreateSettlement splits a total across participants.
func (h *Handler) CreateSettlement(c *fiber.Ctx) error {
	var req createSettlementRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequest(c, string(ledger.ErrorInvalidInput), "", "invalid request body")
	}

	created, err := h.settlements.Create(c.Context(), req.RequesterID, req.TotalAmount, req.ParticipantIDs, req.Policy)
	if err != nil {
		return DomainError(c, err)
	}

	return Created(c, created)
}

// Settlement returns a settlement aggregate.
func (h *Handler) Settlement(c *fiber.Ctx) error {
	settlementID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequest(c, string(ledger.ErrorInvalidInput), "id", "invalid settlement id")
	}

	stored, err := h.settlements.Get(c.Context(), settlementID)
	if err != nil {
		return DomainError(c, err)
	}

	return OK(c, stored)
}

// ApproveShare records a participant's approval.
func (h *Handler) ApproveShare(c *fiber.Ctx) error {
	return h.respondShare(c, h.settlements.ApproveShare)
}

// RejectShare records a participant's rejection, cancelling the settlement.
func (h *Handler) RejectShare(c *fiber.Ctx) error {
	return h.respondShare(c, h.settlements.RejectShare)
}

func (h *Handler) respondShare(c *fiber.Ctx, respond func(context.Context, uuid.UUID, uuid.UUID) (settlement.Settlement, error)) error {
	settlementID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequest(c, string(ledger.ErrorInvalidInput), "id", "invalid settlement id")
	}

	participantID, err := uuid.Parse(c.Params("participantId"))
	if err != nil {
		return BadRequest(c, string(ledger.ErrorInvalidInput), "participantId", "invalid participant id")
	}

	stored, err := respond(c.Context(), settlementID, participantID)
	if err != nil {
		return DomainError(c, err)
	}

	return OK(c, stored)
}
