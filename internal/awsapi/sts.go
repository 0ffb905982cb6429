package awsapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// CallerIdentity interrogates the active credentials and region. The
// result is stored in the variable pool, so it is a plain map that
// JMESPath queries can address.
func (c *Client) CallerIdentity(ctx context.Context) (map[string]any, error) {
	resp, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to get caller identity: %w", err)
	}

	callerARN, err := arn.Parse(aws.ToString(resp.Arn))
	if err != nil {
		return nil, fmt.Errorf("failed to parse caller ARN: %w", err)
	}

	return map[string]any{
		"partition":  callerARN.Partition,
		"account_id": aws.ToString(resp.Account),
		"region":     c.region,
		"dns_suffix": dnsSuffix(callerARN.Partition),
	}, nil
}

func dnsSuffix(partition string) string {
	if strings.HasPrefix(partition, "aws-cn") {
		return "amazonaws.com.cn"
	}
	return "amazonaws.com"
}
