package queries

import (
	"context"
	"fmt"

	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
)

// GetUserTickStatsQuery aggregates a user's whole tick history
type GetUserTickStatsQuery struct {
	UserID string
}

// GetUserTickStatsResponse carries the aggregate
type GetUserTickStatsResponse struct {
	Stats *resources.TickStats
}

// GetUserTickStatsHandler handles the GetUserTickStats query
type GetUserTickStatsHandler struct {
	tickLog resources.TickLogRepository
}

// NewGetUserTickStatsHandler creates a new GetUserTickStatsHandler
func NewGetUserTickStatsHandler(tickLog resources.TickLogRepository) *GetUserTickStatsHandler {
	return &GetUserTickStatsHandler{tickLog: tickLog}
}

// Handle executes the GetUserTickStats query
func (h *GetUserTickStatsHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetUserTickStatsQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetUserTickStatsQuery")
	}

	stats, err := h.tickLog.StatsForUser(ctx, query.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute tick stats: %w", err)
	}

	return &GetUserTickStatsResponse{Stats: stats}, nil
}
