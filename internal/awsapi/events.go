package awsapi

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
)

// EventBridge rules always target a single lambda function; the target
// id is fixed so delete can find it again without persisting it.
const ruleTargetID = "1"

func (c *Client) putRule(ctx context.Context, params map[string]any) (any, error) {
	name, err := stringParam(params, "rule_name")
	if err != nil {
		return nil, err
	}
	schedule, err := stringParam(params, "schedule_expression")
	if err != nil {
		return nil, err
	}

	resp, err := c.events.PutRule(ctx, &eventbridge.PutRuleInput{
		Name:               aws.String(name),
		ScheduleExpression: aws.String(schedule),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put rule: %w", err)
	}
	return aws.ToString(resp.RuleArn), nil
}

func (c *Client) connectRuleToLambda(ctx context.Context, params map[string]any) (any, error) {
	name, err := stringParam(params, "rule_name")
	if err != nil {
		return nil, err
	}
	functionARN, err := stringParam(params, "function_arn")
	if err != nil {
		return nil, err
	}

	_, err = c.events.PutTargets(ctx, &eventbridge.PutTargetsInput{
		Rule: aws.String(name),
		Targets: []types.Target{
			{Id: aws.String(ruleTargetID), Arn: aws.String(functionARN)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put rule targets: %w", err)
	}
	return nil, nil
}

func (c *Client) addPermissionForScheduledEvent(ctx context.Context, params map[string]any) (any, error) {
	ruleARN, err := stringParam(params, "rule_arn")
	if err != nil {
		return nil, err
	}
	functionARN, err := stringParam(params, "function_arn")
	if err != nil {
		return nil, err
	}
	return nil, c.addPermission(ctx, functionARN, "events.amazonaws.com", ruleARN, "")
}

// deleteRule detaches the rule's target before deleting it;
// EventBridge rejects deletion of rules with targets still attached.
func (c *Client) deleteRule(ctx context.Context, params map[string]any) (any, error) {
	name, err := stringParam(params, "rule_name")
	if err != nil {
		return nil, err
	}

	_, err = c.events.RemoveTargets(ctx, &eventbridge.RemoveTargetsInput{
		Rule: aws.String(name),
		Ids:  []string{ruleTargetID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove rule targets: %w", err)
	}

	_, err = c.events.DeleteRule(ctx, &eventbridge.DeleteRuleInput{
		Name: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete rule: %w", err)
	}
	return nil, nil
}
