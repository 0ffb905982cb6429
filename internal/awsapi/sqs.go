package awsapi

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// getSQSQueueARN resolves a queue name in the caller's account to its
// ARN via the queue's attributes.
func (c *Client) getSQSQueueARN(ctx context.Context, params map[string]any) (any, error) {
	name, err := stringParam(params, "queue_name")
	if err != nil {
		return nil, err
	}

	urlResp, err := c.sqs.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve queue %s: %w", name, err)
	}

	attrResp, err := c.sqs.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       urlResp.QueueUrl,
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameQueueArn},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get queue attributes for %s: %w", name, err)
	}

	arn, ok := attrResp.Attributes[string(types.QueueAttributeNameQueueArn)]
	if !ok {
		return nil, fmt.Errorf("queue %s has no ARN attribute", name)
	}
	return arn, nil
}
