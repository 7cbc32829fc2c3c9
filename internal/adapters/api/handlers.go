package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	constructionCommands "github.com/andrescamacho/coreloop-go/internal/application/construction/commands"
	constructionQueries "github.com/andrescamacho/coreloop-go/internal/application/construction/queries"
	playerCommands "github.com/andrescamacho/coreloop-go/internal/application/player/commands"
	playerQueries "github.com/andrescamacho/coreloop-go/internal/application/player/queries"
	resourceQueries "github.com/andrescamacho/coreloop-go/internal/application/resources/queries"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

// ─── Users ──────────────────────────────────────────────────────────────────

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !s.decode(w, r, &req) {
		return
	}

	resp, err := s.mediator.Send(r.Context(), &playerCommands.RegisterUserCommand{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	p := resp.(*playerCommands.RegisterUserResponse).Player
	balance, err := s.mediator.Send(r.Context(), &resourceQueries.GetBalanceQuery{UserID: p.ID()})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserDTO(p, balance.(*resourceQueries.GetBalanceResponse).Balance))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	resp, err := s.mediator.Send(r.Context(), &playerQueries.ListUsersQuery{})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	players := resp.(*playerQueries.ListUsersResponse).Players
	users := make([]UserDTO, 0, len(players))
	for _, p := range players {
		balance, err := s.mediator.Send(r.Context(), &resourceQueries.GetBalanceQuery{UserID: p.ID()})
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		users = append(users, toUserDTO(p, balance.(*resourceQueries.GetBalanceResponse).Balance))
	}

	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	resp, err := s.mediator.Send(r.Context(), &playerQueries.GetUserQuery{UserID: chi.URLParam(r, "id")})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	user := resp.(*playerQueries.GetUserResponse)
	writeJSON(w, http.StatusOK, toUserDTO(user.Player, user.Balance))
}

// ─── Resources ──────────────────────────────────────────────────────────────

func (s *Server) handleGetResources(w http.ResponseWriter, r *http.Request) {
	resp, err := s.mediator.Send(r.Context(), &resourceQueries.GetBalanceQuery{UserID: chi.URLParam(r, "userId")})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toResourceDTO(resp.(*resourceQueries.GetBalanceResponse).Balance))
}

func (s *Server) handleTickLogs(w http.ResponseWriter, r *http.Request) {
	query := &resourceQueries.GetTickLogsQuery{}
	if userID := r.URL.Query().Get("userId"); userID != "" {
		query.UserID = &userID
		// Filtering by query string keeps the all-logs default limit
		query.Limit = resources.DefaultTickLogLimit
	}
	s.sendTickLogs(w, r, query)
}

func (s *Server) handleUserTickLogs(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	s.sendTickLogs(w, r, &resourceQueries.GetTickLogsQuery{UserID: &userID})
}

func (s *Server) handleRecentTickLogs(w http.ResponseWriter, r *http.Request) {
	s.sendTickLogs(w, r, &resourceQueries.GetTickLogsQuery{Recent: true})
}

func (s *Server) sendTickLogs(w http.ResponseWriter, r *http.Request, query *resourceQueries.GetTickLogsQuery) {
	limit, ok := s.limit(w, r)
	if !ok {
		return
	}
	if limit > 0 {
		query.Limit = limit
	}

	resp, err := s.mediator.Send(r.Context(), query)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTickLogDTOs(resp.(*resourceQueries.GetTickLogsResponse).Entries))
}

func (s *Server) handleUserTickStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.mediator.Send(r.Context(), &resourceQueries.GetUserTickStatsQuery{UserID: chi.URLParam(r, "userId")})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTickStatsDTO(resp.(*resourceQueries.GetUserTickStatsResponse).Stats))
}

// ─── Upgrades ───────────────────────────────────────────────────────────────

func (s *Server) handleCreateUpgrade(w http.ResponseWriter, r *http.Request) {
	var req CreateUpgradeRequest
	if !s.decode(w, r, &req) {
		return
	}

	cmd := &constructionCommands.CreateUpgradeCommand{
		UserID:      chi.URLParam(r, "id"),
		UpgradeType: req.UpgradeType,
		UpgradeName: req.UpgradeName,
		WoodCost:    req.WoodCost,
		FoodCost:    req.FoodCost,
	}
	if req.DurationSeconds != nil {
		cmd.DurationSeconds = *req.DurationSeconds
	}

	resp, err := s.mediator.Send(r.Context(), cmd)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUpgradeDTO(resp.(*constructionCommands.CreateUpgradeResponse).Task))
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	resp, err := s.mediator.Send(r.Context(), &constructionQueries.GetTaskQuery{TaskID: chi.URLParam(r, "id")})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUpgradeDTO(resp.(*constructionQueries.GetTaskResponse).Task))
}

func (s *Server) handleUserTasks(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.limit(w, r)
	if !ok {
		return
	}

	resp, err := s.mediator.Send(r.Context(), &constructionQueries.GetUserTasksQuery{
		UserID: chi.URLParam(r, "userId"),
		Limit:  limit,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUpgradeDTOs(resp.(*constructionQueries.GetUserTasksResponse).Tasks))
}

func (s *Server) handlePendingTasks(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.limit(w, r)
	if !ok {
		return
	}

	resp, err := s.mediator.Send(r.Context(), &constructionQueries.GetPendingTasksQuery{Limit: limit})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUpgradeDTOs(resp.(*constructionQueries.GetPendingTasksResponse).Tasks))
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	resp, err := s.mediator.Send(r.Context(), &constructionCommands.CancelTaskCommand{TaskID: chi.URLParam(r, "id")})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUpgradeDTO(resp.(*constructionCommands.CancelTaskResponse).Task))
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// decode parses and validates a JSON body, writing a 400 on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeErr(w, r, err)
		return false
	}
	return true
}

// limit reads the optional ?limit= parameter; 0 means not given
func (s *Server) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		s.writeErr(w, r, shared.NewValidationError("limit", "must be a positive integer"))
		return 0, false
	}
	return n, true
}

func zapRequest(r *http.Request, err error) []zap.Field {
	return []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
}
