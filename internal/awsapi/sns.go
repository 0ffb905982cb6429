package awsapi

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

func (c *Client) subscribeFunctionToTopic(ctx context.Context, params map[string]any) (any, error) {
	topicARN, err := stringParam(params, "topic_arn")
	if err != nil {
		return nil, err
	}
	functionARN, err := stringParam(params, "function_arn")
	if err != nil {
		return nil, err
	}

	resp, err := c.sns.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn: aws.String(topicARN),
		Protocol: aws.String("lambda"),
		Endpoint: aws.String(functionARN),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe function to topic: %w", err)
	}
	return aws.ToString(resp.SubscriptionArn), nil
}

func (c *Client) unsubscribeFromTopic(ctx context.Context, params map[string]any) (any, error) {
	subscriptionARN, err := stringParam(params, "subscription_arn")
	if err != nil {
		return nil, err
	}
	_, err = c.sns.Unsubscribe(ctx, &sns.UnsubscribeInput{
		SubscriptionArn: aws.String(subscriptionARN),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unsubscribe from topic: %w", err)
	}
	return nil, nil
}

func (c *Client) addPermissionForSNSTopic(ctx context.Context, params map[string]any) (any, error) {
	topicARN, err := stringParam(params, "topic_arn")
	if err != nil {
		return nil, err
	}
	functionARN, err := stringParam(params, "function_arn")
	if err != nil {
		return nil, err
	}
	return nil, c.addPermission(ctx, functionARN, "sns.amazonaws.com", topicARN, "")
}

func (c *Client) removePermissionForSNSTopic(ctx context.Context, params map[string]any) (any, error) {
	topicARN, err := stringParam(params, "topic_arn")
	if err != nil {
		return nil, err
	}
	functionARN, err := stringParam(params, "function_arn")
	if err != nil {
		return nil, err
	}
	return nil, c.removePermission(ctx, functionARN, topicARN)
}
