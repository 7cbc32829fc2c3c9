package setup

import (
	"reflect"

	"go.uber.org/zap"

	constructionCommands "github.com/andrescamacho/coreloop-go/internal/application/construction/commands"
	constructionQueries "github.com/andrescamacho/coreloop-go/internal/application/construction/queries"
	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	playerCommands "github.com/andrescamacho/coreloop-go/internal/application/player/commands"
	playerQueries "github.com/andrescamacho/coreloop-go/internal/application/player/queries"
	resourceCommands "github.com/andrescamacho/coreloop-go/internal/application/resources/commands"
	resourceQueries "github.com/andrescamacho/coreloop-go/internal/application/resources/queries"
	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
	"github.com/andrescamacho/coreloop-go/internal/domain/player"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

// HandlerRegistry holds all application dependencies for handler creation
type HandlerRegistry struct {
	playerRepo player.PlayerRepository
	ledger     resources.Ledger
	tickLog    resources.TickLogRepository
	tasks      construction.TaskRepository
	uow        construction.UnitOfWork
	tickRunner resourceCommands.TickRunner
	clock      shared.Clock
	logger     *zap.Logger
}

// NewHandlerRegistry creates a new handler registry with required dependencies.
// tickRunner may be nil, in which case RunTickCommand is not registered.
func NewHandlerRegistry(
	playerRepo player.PlayerRepository,
	ledger resources.Ledger,
	tickLog resources.TickLogRepository,
	tasks construction.TaskRepository,
	uow construction.UnitOfWork,
	tickRunner resourceCommands.TickRunner,
	clock shared.Clock,
	logger *zap.Logger,
) *HandlerRegistry {
	// Default to real clock if not provided
	if clock == nil {
		clock = shared.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HandlerRegistry{
		playerRepo: playerRepo,
		ledger:     ledger,
		tickLog:    tickLog,
		tasks:      tasks,
		uow:        uow,
		tickRunner: tickRunner,
		clock:      clock,
		logger:     logger,
	}
}

type registration struct {
	request mediator.Request
	handler mediator.RequestHandler
}

func register(m mediator.Mediator, registrations []registration) error {
	for _, reg := range registrations {
		if err := m.Register(reflect.TypeOf(reg.request), reg.handler); err != nil {
			return err
		}
	}
	return nil
}

// RegisterPlayerHandlers registers user registration, seeding and lookup
func (r *HandlerRegistry) RegisterPlayerHandlers(m mediator.Mediator) error {
	return register(m, []registration{
		{&playerCommands.RegisterUserCommand{}, playerCommands.NewRegisterUserHandler(r.playerRepo, r.clock)},
		{&playerCommands.SeedUsersCommand{}, playerCommands.NewSeedUsersHandler(r.playerRepo, r.ledger, r.clock)},
		{&playerQueries.GetUserQuery{}, playerQueries.NewGetUserHandler(r.playerRepo, r.ledger)},
		{&playerQueries.ListUsersQuery{}, playerQueries.NewListUsersHandler(r.playerRepo)},
	})
}

// RegisterResourceHandlers registers balance and tick log handlers
//
// This method registers:
//   - GetBalanceQuery, GetTickLogsQuery, GetUserTickStatsQuery
//   - RunTickCommand, only when a tick runner is available
func (r *HandlerRegistry) RegisterResourceHandlers(m mediator.Mediator) error {
	registrations := []registration{
		{&resourceQueries.GetBalanceQuery{}, resourceQueries.NewGetBalanceHandler(r.ledger)},
		{&resourceQueries.GetTickLogsQuery{}, resourceQueries.NewGetTickLogsHandler(r.tickLog)},
		{&resourceQueries.GetUserTickStatsQuery{}, resourceQueries.NewGetUserTickStatsHandler(r.tickLog)},
	}
	if r.tickRunner != nil {
		registrations = append(registrations,
			registration{&resourceCommands.RunTickCommand{}, resourceCommands.NewRunTickHandler(r.tickRunner)})
	}
	return register(m, registrations)
}

// RegisterConstructionHandlers registers the upgrade task commands and queries
func (r *HandlerRegistry) RegisterConstructionHandlers(m mediator.Mediator) error {
	return register(m, []registration{
		{&constructionCommands.CreateUpgradeCommand{}, constructionCommands.NewCreateUpgradeHandler(r.uow, r.clock, r.logger)},
		{&constructionCommands.TransitionTaskCommand{}, constructionCommands.NewTransitionTaskHandler(r.tasks, r.uow, r.clock)},
		{&constructionCommands.CancelTaskCommand{}, constructionCommands.NewCancelTaskHandler(r.uow, r.clock, r.logger)},
		{&constructionQueries.GetTaskQuery{}, constructionQueries.NewGetTaskHandler(r.tasks)},
		{&constructionQueries.GetUserTasksQuery{}, constructionQueries.NewGetUserTasksHandler(r.tasks)},
		{&constructionQueries.GetPendingTasksQuery{}, constructionQueries.NewGetPendingTasksHandler(r.tasks)},
	})
}

// CreateConfiguredMediator creates a mediator with every handler registered.
// Middlewares run in the order given, the first outermost.
func (r *HandlerRegistry) CreateConfiguredMediator(middlewares ...mediator.Middleware) (mediator.Mediator, error) {
	m := mediator.NewMediator()

	for _, mw := range middlewares {
		m.RegisterMiddleware(mw)
	}

	if err := r.RegisterPlayerHandlers(m); err != nil {
		return nil, err
	}
	if err := r.RegisterResourceHandlers(m); err != nil {
		return nil, err
	}
	if err := r.RegisterConstructionHandlers(m); err != nil {
		return nil, err
	}

	return m, nil
}
