package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

// callBuiltin dispatches a BuiltinFunction instruction by name. The
// registry is fixed; an unknown name is a programming defect in the
// planner, never a user condition.
func (e *Executor) callBuiltin(ctx context.Context, name string, args []any) (any, error) {
	switch name {
	case "parse_arn":
		if len(args) != 1 {
			return nil, fmt.Errorf("parse_arn: expected 1 argument, got %d", len(args))
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("parse_arn: expected string argument, got %T", args[0])
		}
		parsed, err := arn.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse_arn: %w", err)
		}
		return map[string]any{
			"partition":  parsed.Partition,
			"service":    parsed.Service,
			"region":     parsed.Region,
			"account_id": parsed.AccountID,
			"resource":   parsed.Resource,
		}, nil

	case "interrogate_profile":
		return e.client.CallerIdentity(ctx)

	case "service_principal":
		if len(args) != 3 {
			return nil, fmt.Errorf("service_principal: expected 3 arguments, got %d", len(args))
		}
		service, sok := args[0].(string)
		region, rok := args[1].(string)
		suffix, uok := args[2].(string)
		if !sok || !rok || !uok {
			return nil, fmt.Errorf("service_principal: expected string arguments")
		}
		return servicePrincipal(service, region, suffix), nil

	default:
		return nil, fmt.Errorf("internal error: unknown builtin function %q", name)
	}
}

// servicePrincipal computes the principal string for a service in a
// given region. Most services use a partition-independent global
// principal; a few are regionalized.
func servicePrincipal(service, region, dnsSuffix string) string {
	switch service {
	case "codedeploy", "logs":
		return fmt.Sprintf("%s.%s.%s", service, region, dnsSuffix)
	case "states":
		return fmt.Sprintf("states.%s.amazonaws.com", region)
	}
	if strings.HasPrefix(region, "cn-") {
		return fmt.Sprintf("%s.amazonaws.com.cn", service)
	}
	return fmt.Sprintf("%s.amazonaws.com", service)
}
