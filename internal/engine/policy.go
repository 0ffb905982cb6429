package engine

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/wharfctl/wharf/internal/model"
)

// generateAppPolicy derives the execution policy for an application's
// functions: log delivery always, plus the permissions its declared
// event sources need at runtime. Resource scopes use wildcards where
// the concrete identifier is only known after deployment.
func generateAppPolicy(app *model.Application) map[string]any {
	statements := []any{
		map[string]any{
			"Effect": "Allow",
			"Action": []any{
				"logs:CreateLogGroup",
				"logs:CreateLogStream",
				"logs:PutLogEvents",
			},
			"Resource": "arn:*:logs:*:*:*",
		},
	}

	var needsSQS, needsVPC bool
	resolver := NewResolver()
	for _, res := range resolver.Order(app) {
		switch r := res.(type) {
		case *model.SQSEventSource:
			needsSQS = true
		case *model.LambdaFunction:
			if len(r.SecurityGroupIDs) > 0 || len(r.SubnetIDs) > 0 {
				needsVPC = true
			}
		}
	}

	if needsSQS {
		statements = append(statements, map[string]any{
			"Effect": "Allow",
			"Action": []any{
				"sqs:ReceiveMessage",
				"sqs:DeleteMessage",
				"sqs:GetQueueAttributes",
			},
			"Resource": "*",
		})
	}
	if needsVPC {
		statements = append(statements, map[string]any{
			"Effect": "Allow",
			"Action": []any{
				"ec2:CreateNetworkInterface",
				"ec2:DescribeNetworkInterfaces",
				"ec2:DeleteNetworkInterface",
			},
			"Resource": "*",
		})
	}

	return map[string]any{
		"Version":   "2012-10-17",
		"Statement": statements,
	}
}

// loadPolicyFile reads a user-supplied policy document.
func loadPolicyFile(filename string) (map[string]any, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse policy file %s: %w", filename, err)
	}
	return doc, nil
}
