package model

// Resource is a node in the declarative graph built for one deploy
// attempt. Resources are always handled through pointers: two nodes
// are the same resource only when they are the same pointer, which is
// how shared sub-resources (one role used by several functions) are
// expressed.
type Resource interface {
	// ResourceName is unique within one graph and stable across runs;
	// it is the identifier deployed records are diffed on.
	ResourceName() string

	// ResourceType is the discriminator persisted to deployed records.
	ResourceType() string

	// Dependencies returns the resources that must be handled before
	// this one, in declaration order.
	Dependencies() []Resource
}

// Resource type discriminators as persisted in deployed records.
const (
	TypeLambdaFunction    = "lambda_function"
	TypeIAMRole           = "iam_role"
	TypeIAMPolicy         = "iam_policy"
	TypeRestAPI           = "rest_api"
	TypeScheduledEvent    = "scheduled_event"
	TypeS3Event           = "s3_event"
	TypeSNSEvent          = "sns_event"
	TypeSQSEvent          = "sqs_event"
	TypeDeploymentPackage = "deployment_package"
)
