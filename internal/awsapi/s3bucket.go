package awsapi

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// connectS3BucketToLambda merges a lambda notification for the
// function into the bucket's existing configuration, replacing any
// previous notification pointing at the same function.
func (c *Client) connectS3BucketToLambda(ctx context.Context, params map[string]any) (any, error) {
	bucket, err := stringParam(params, "bucket")
	if err != nil {
		return nil, err
	}
	functionARN, err := stringParam(params, "function_arn")
	if err != nil {
		return nil, err
	}
	events, err := stringSliceParam(params, "events")
	if err != nil {
		return nil, err
	}
	prefix := optionalStringParam(params, "prefix")
	suffix := optionalStringParam(params, "suffix")

	existing, err := c.s3.GetBucketNotificationConfiguration(ctx, &s3.GetBucketNotificationConfigurationInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket notification configuration: %w", err)
	}

	notification := types.LambdaFunctionConfiguration{
		LambdaFunctionArn: aws.String(functionARN),
	}
	for _, event := range events {
		notification.Events = append(notification.Events, types.Event(event))
	}
	if prefix != "" || suffix != "" {
		var rules []types.FilterRule
		if prefix != "" {
			rules = append(rules, types.FilterRule{
				Name:  types.FilterRuleNamePrefix,
				Value: aws.String(prefix),
			})
		}
		if suffix != "" {
			rules = append(rules, types.FilterRule{
				Name:  types.FilterRuleNameSuffix,
				Value: aws.String(suffix),
			})
		}
		notification.Filter = &types.NotificationConfigurationFilter{
			Key: &types.S3KeyFilter{FilterRules: rules},
		}
	}

	merged := []types.LambdaFunctionConfiguration{notification}
	for _, cfg := range existing.LambdaFunctionConfigurations {
		if aws.ToString(cfg.LambdaFunctionArn) != functionARN {
			merged = append(merged, cfg)
		}
	}

	_, err = c.s3.PutBucketNotificationConfiguration(ctx, &s3.PutBucketNotificationConfigurationInput{
		Bucket: aws.String(bucket),
		NotificationConfiguration: &types.NotificationConfiguration{
			LambdaFunctionConfigurations: merged,
			TopicConfigurations:          existing.TopicConfigurations,
			QueueConfigurations:          existing.QueueConfigurations,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put bucket notification configuration: %w", err)
	}
	return nil, nil
}

func (c *Client) disconnectS3BucketFromLambda(ctx context.Context, params map[string]any) (any, error) {
	bucket, err := stringParam(params, "bucket")
	if err != nil {
		return nil, err
	}
	functionARN, err := stringParam(params, "function_arn")
	if err != nil {
		return nil, err
	}

	existing, err := c.s3.GetBucketNotificationConfiguration(ctx, &s3.GetBucketNotificationConfigurationInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket notification configuration: %w", err)
	}

	var kept []types.LambdaFunctionConfiguration
	for _, cfg := range existing.LambdaFunctionConfigurations {
		if aws.ToString(cfg.LambdaFunctionArn) != functionARN {
			kept = append(kept, cfg)
		}
	}

	_, err = c.s3.PutBucketNotificationConfiguration(ctx, &s3.PutBucketNotificationConfigurationInput{
		Bucket: aws.String(bucket),
		NotificationConfiguration: &types.NotificationConfiguration{
			LambdaFunctionConfigurations: kept,
			TopicConfigurations:          existing.TopicConfigurations,
			QueueConfigurations:          existing.QueueConfigurations,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put bucket notification configuration: %w", err)
	}
	return nil, nil
}

func (c *Client) addPermissionForS3Event(ctx context.Context, params map[string]any) (any, error) {
	bucket, err := stringParam(params, "bucket")
	if err != nil {
		return nil, err
	}
	functionARN, err := stringParam(params, "function_arn")
	if err != nil {
		return nil, err
	}
	accountID, err := stringParam(params, "account_id")
	if err != nil {
		return nil, err
	}
	partition := optionalStringParam(params, "partition")
	if partition == "" {
		partition = "aws"
	}

	bucketARN := fmt.Sprintf("arn:%s:s3:::%s", partition, bucket)
	return nil, c.addPermission(ctx, functionARN, "s3.amazonaws.com", bucketARN, accountID)
}

func (c *Client) removePermissionForS3Event(ctx context.Context, params map[string]any) (any, error) {
	bucket, err := stringParam(params, "bucket")
	if err != nil {
		return nil, err
	}
	functionARN, err := stringParam(params, "function_arn")
	if err != nil {
		return nil, err
	}
	partition := optionalStringParam(params, "partition")
	if partition == "" {
		partition = "aws"
	}

	bucketARN := fmt.Sprintf("arn:%s:s3:::%s", partition, bucket)
	return nil, c.removePermission(ctx, functionARN, bucketARN)
}
