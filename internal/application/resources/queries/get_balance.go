package queries

import (
	"context"
	"fmt"

	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
)

// GetBalanceQuery fetches a user's current resources
type GetBalanceQuery struct {
	UserID string
}

// GetBalanceResponse carries the balance
type GetBalanceResponse struct {
	Balance *resources.Balance
}

// GetBalanceHandler handles the GetBalance query
type GetBalanceHandler struct {
	ledger resources.Ledger
}

// NewGetBalanceHandler creates a new GetBalanceHandler
func NewGetBalanceHandler(ledger resources.Ledger) *GetBalanceHandler {
	return &GetBalanceHandler{ledger: ledger}
}

// Handle executes the GetBalance query
func (h *GetBalanceHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetBalanceQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetBalanceQuery")
	}

	balance, err := h.ledger.GetBalance(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	return &GetBalanceResponse{Balance: balance}, nil
}
