package model

// ScheduledEvent triggers a function on an EventBridge schedule
// expression (rate or cron).
type ScheduledEvent struct {
	Name               string
	RuleName           string
	ScheduleExpression string
	LambdaFunction     *LambdaFunction
}

func (e *ScheduledEvent) ResourceName() string { return e.Name }
func (e *ScheduledEvent) ResourceType() string { return TypeScheduledEvent }

func (e *ScheduledEvent) Dependencies() []Resource {
	return []Resource{e.LambdaFunction}
}

// S3BucketNotification invokes a function for object events on an
// existing bucket.
type S3BucketNotification struct {
	Name           string
	Bucket         string
	Events         []string
	Prefix         string
	Suffix         string
	LambdaFunction *LambdaFunction
}

func (e *S3BucketNotification) ResourceName() string { return e.Name }
func (e *S3BucketNotification) ResourceType() string { return TypeS3Event }

func (e *S3BucketNotification) Dependencies() []Resource {
	return []Resource{e.LambdaFunction}
}

// SNSSubscription subscribes a function to an SNS topic. Topic may be
// a bare topic name in the caller's account or a full topic ARN.
type SNSSubscription struct {
	Name           string
	Topic          string
	LambdaFunction *LambdaFunction
}

func (e *SNSSubscription) ResourceName() string { return e.Name }
func (e *SNSSubscription) ResourceType() string { return TypeSNSEvent }

func (e *SNSSubscription) Dependencies() []Resource {
	return []Resource{e.LambdaFunction}
}

// SQSEventSource maps an SQS queue onto a function via an event source
// mapping.
type SQSEventSource struct {
	Name                  string
	Queue                 string
	BatchSize             int32
	MaximumBatchingWindow int32
	LambdaFunction        *LambdaFunction
}

func (e *SQSEventSource) ResourceName() string { return e.Name }
func (e *SQSEventSource) ResourceType() string { return TypeSQSEvent }

func (e *SQSEventSource) Dependencies() []Resource {
	return []Resource{e.LambdaFunction}
}
