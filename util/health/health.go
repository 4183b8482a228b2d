// Package health aggregates dependency checks into the JSON documents served on /health.
package health

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bitnames/bitnames/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type Check struct {
	Name  string
	Check func(context.Context, bool) (int, string, error)
}

// CheckAll runs every check and reports 503 if any of them is unhealthy.
func CheckAll(ctx context.Context, checkLiveness bool, checks []Check) (int, string, error) {
	var (
		overallStatus = http.StatusOK
		messages      = make([]string, 0, len(checks))
	)

	for _, check := range checks {
		status, message, err := check.Check(ctx, checkLiveness)
		if err != nil || status != http.StatusOK {
			overallStatus = http.StatusServiceUnavailable
		}

		var msg string

		if len(message) > 0 && message[0] == '{' && message[len(message)-1] == '}' {
			msg = fmt.Sprintf(`{"resource": "%s", "status": "%d", "error": "%v", "dependencies": [%s]}`, check.Name, status, err, message)
		} else {
			msg = fmt.Sprintf(`{"resource": "%s", "status": "%d", "error": "%v", "message": "%s"}`, check.Name, status, err, message)
		}

		messages = append(messages, msg)
	}

	return overallStatus, fmt.Sprintf(`{"status":"%d", "dependencies":[%s]}`, overallStatus, strings.Join(messages, ",\n")), nil
}

// CheckGRPCHealth asks the standard grpc health service on conn whether it is serving.
func CheckGRPCHealth(conn *grpc.ClientConn, service string) func(context.Context, bool) (int, string, error) {
	return func(ctx context.Context, _ bool) (int, string, error) {
		resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
		if err != nil {
			return http.StatusServiceUnavailable, "gRPC health check failed", errors.NewServiceUnavailableError("grpc health check failed", err)
		}

		if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
			return http.StatusServiceUnavailable, fmt.Sprintf("gRPC service %s is %s", service, resp.GetStatus()), nil
		}

		return http.StatusOK, fmt.Sprintf("gRPC service %s is serving", service), nil
	}
}
