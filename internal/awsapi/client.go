package awsapi

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/wharfctl/wharf/internal/logging"
)

type methodFunc func(ctx context.Context, params map[string]any) (any, error)

// Client is the synchronous AWS-facing collaborator the executor and
// remote-state accessor talk to. Mutating operations are addressed by
// the wire-level method names embedded in plan instructions; read
// operations used during planning are exposed as typed methods.
type Client struct {
	lambda     *lambda.Client
	iam        *iam.Client
	apigateway *apigateway.Client
	events     *eventbridge.Client
	s3         *s3.Client
	sns        *sns.Client
	sqs        *sqs.Client
	sts        *sts.Client

	region  string
	retry   *RetryPolicy
	methods map[string]methodFunc
}

// New loads the default AWS configuration (honoring profile and region
// from the environment) and returns a ready client.
func New(ctx context.Context, region, profile string) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return NewFromConfig(cfg), nil
}

// NewFromConfig builds a client on top of an already-resolved AWS
// configuration.
func NewFromConfig(cfg aws.Config) *Client {
	c := &Client{
		lambda:     lambda.NewFromConfig(cfg),
		iam:        iam.NewFromConfig(cfg),
		apigateway: apigateway.NewFromConfig(cfg),
		events:     eventbridge.NewFromConfig(cfg),
		s3:         s3.NewFromConfig(cfg),
		sns:        sns.NewFromConfig(cfg),
		sqs:        sqs.NewFromConfig(cfg),
		sts:        sts.NewFromConfig(cfg),
		region:     cfg.Region,
		retry:      DefaultRetryPolicy(),
	}
	c.methods = c.methodTable()
	return c
}

// Region returns the region the client was configured for.
func (c *Client) Region() string {
	return c.region
}

func (c *Client) methodTable() map[string]methodFunc {
	return map[string]methodFunc{
		"create_function":             c.createFunction,
		"update_function":             c.updateFunction,
		"delete_function":             c.deleteFunction,
		"put_function_concurrency":    c.putFunctionConcurrency,
		"delete_function_concurrency": c.deleteFunctionConcurrency,

		"create_role":               c.createRole,
		"put_role_policy":           c.putRolePolicy,
		"update_assume_role_policy": c.updateAssumeRolePolicy,
		"delete_role":               c.deleteRole,

		"import_rest_api":               c.importRestAPI,
		"update_rest_api":               c.updateRestAPI,
		"deploy_rest_api":               c.deployRestAPI,
		"delete_rest_api":               c.deleteRestAPI,
		"add_permission_for_apigateway": c.addPermissionForAPIGateway,

		"put_rule":                           c.putRule,
		"connect_rule_to_lambda":             c.connectRuleToLambda,
		"delete_rule":                        c.deleteRule,
		"add_permission_for_scheduled_event": c.addPermissionForScheduledEvent,

		"connect_s3_bucket_to_lambda":      c.connectS3BucketToLambda,
		"disconnect_s3_bucket_from_lambda": c.disconnectS3BucketFromLambda,
		"add_permission_for_s3_event":      c.addPermissionForS3Event,
		"remove_permission_for_s3_event":   c.removePermissionForS3Event,

		"subscribe_function_to_topic":     c.subscribeFunctionToTopic,
		"unsubscribe_from_topic":          c.unsubscribeFromTopic,
		"add_permission_for_sns_topic":    c.addPermissionForSNSTopic,
		"remove_permission_for_sns_topic": c.removePermissionForSNSTopic,

		"get_sqs_queue_arn":          c.getSQSQueueARN,
		"create_lambda_event_source": c.createLambdaEventSource,
		"update_lambda_event_source": c.updateLambdaEventSource,
		"remove_lambda_event_source": c.removeLambdaEventSource,
	}
}

// CallMethod dispatches a plan-level method name to its typed wrapper.
// The method set is closed; an unknown name indicates a planner or
// sweeper defect, not a user condition. Transient AWS failures are
// retried with backoff; all other failures propagate to the caller.
func (c *Client) CallMethod(ctx context.Context, name string, params map[string]any) (any, error) {
	fn, ok := c.methods[name]
	if !ok {
		return nil, fmt.Errorf("internal error: unknown client method %q", name)
	}

	logging.Debug("calling cloud API", "method", name)

	var result any
	err := RetryWithBackoff(ctx, c.retry, func() error {
		var callErr error
		result, callErr = fn(ctx, params)
		return callErr
	}, IsTransientError)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return result, nil
}
