package queries

import (
	"context"
	"fmt"

	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
)

// GetTickLogsQuery lists audit entries newest first.
//
// With a UserID the default limit is 50, with Recent set it is 20,
// otherwise 100. An explicit positive Limit always wins.
type GetTickLogsQuery struct {
	UserID *string
	Recent bool
	Limit  int
}

// GetTickLogsResponse carries the entries
type GetTickLogsResponse struct {
	Entries []*resources.TickLogEntry
}

// GetTickLogsHandler handles the GetTickLogs query
type GetTickLogsHandler struct {
	tickLog resources.TickLogRepository
}

// NewGetTickLogsHandler creates a new GetTickLogsHandler
func NewGetTickLogsHandler(tickLog resources.TickLogRepository) *GetTickLogsHandler {
	return &GetTickLogsHandler{tickLog: tickLog}
}

// Handle executes the GetTickLogs query
func (h *GetTickLogsHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetTickLogsQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetTickLogsQuery")
	}

	filter := resources.TickLogFilter{
		UserID: query.UserID,
		Limit:  query.Limit,
	}
	if filter.Limit <= 0 {
		switch {
		case query.UserID != nil:
			filter.Limit = resources.DefaultUserTickLogLimit
		case query.Recent:
			filter.Limit = resources.DefaultRecentTickLimit
		default:
			filter.Limit = resources.DefaultTickLogLimit
		}
	}

	entries, err := h.tickLog.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query tick logs: %w", err)
	}

	return &GetTickLogsResponse{Entries: entries}, nil
}
