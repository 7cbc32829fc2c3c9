package metrics

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
)

// PrometheusMiddleware records duration and outcome of every mediator request.
// Request names are reduced to the bare type name, so
// "*commands.CreateUpgradeCommand" is recorded as "CreateUpgradeCommand".
func PrometheusMiddleware(collector *CommandMetricsCollector) mediator.Middleware {
	return func(ctx context.Context, request mediator.Request, next mediator.HandlerFunc) (mediator.Response, error) {
		if collector == nil {
			return next(ctx, request)
		}

		start := time.Now()
		response, err := next(ctx, request)
		collector.RecordCommandExecution(RequestName(request), time.Since(start).Seconds(), err == nil)

		return response, err
	}
}

// RequestName returns the unqualified type name of a request
func RequestName(request mediator.Request) string {
	if request == nil {
		return "UnknownCommand"
	}

	fullName := strings.TrimPrefix(reflect.TypeOf(request).String(), "*")
	if idx := strings.LastIndex(fullName, "."); idx >= 0 {
		return fullName[idx+1:]
	}
	return fullName
}
