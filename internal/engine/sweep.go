package engine

import (
	"fmt"

	"github.com/wharfctl/wharf/internal/ir"
	"github.com/wharfctl/wharf/internal/model"
)

// Sweeper appends teardown instructions for resources present in the
// previous deploy's record but absent from (or renamed in) the new
// plan. Orphans are deleted in reverse of their recorded creation
// order so dependents go before their dependencies.
type Sweeper struct{}

func NewSweeper() *Sweeper {
	return &Sweeper{}
}

// plannedResource is what the new plan intends to record for one
// resource name: the type plus whatever field values are known
// literally at plan time.
type plannedResource struct {
	resourceType string
	fields       map[string]any
}

// Sweep mutates plan in place, appending deletions for every recorded
// resource no longer referenced. A still-referenced event source whose
// recorded attachment point changed (bucket, topic, queue) gets its
// old attachment torn down; the new plan already connects the new one.
func (s *Sweeper) Sweep(plan *ir.Plan, deployed *ir.DeployedResources) error {
	marked := markedResources(plan)

	for i := len(deployed.Resources) - 1; i >= 0; i-- {
		record := deployed.Resources[i]
		name := record.Name()

		planned, ok := marked[name]
		if !ok {
			if err := s.teardown(plan, record); err != nil {
				return err
			}
			continue
		}
		if err := s.teardownDrift(plan, record, planned); err != nil {
			return err
		}
	}
	return nil
}

func markedResources(plan *ir.Plan) map[string]*plannedResource {
	marked := make(map[string]*plannedResource)
	entry := func(name, resourceType string) *plannedResource {
		p, ok := marked[name]
		if !ok {
			p = &plannedResource{resourceType: resourceType, fields: make(map[string]any)}
			marked[name] = p
		}
		return p
	}
	for _, instr := range plan.Instructions {
		switch in := instr.(type) {
		case *ir.RecordResourceValue:
			entry(in.ResourceName, in.ResourceType).fields[in.Field] = in.Value
		case *ir.RecordResourceVariable:
			entry(in.ResourceName, in.ResourceType)
		}
	}
	return marked
}

// teardown emits the full deletion sequence for an orphaned record,
// dispatching on the persisted type discriminator. An unrecognized
// type means the record came from an incompatible schema and is fatal.
func (s *Sweeper) teardown(plan *ir.Plan, record ir.RecordedResource) error {
	switch record.ResourceType() {
	case model.TypeLambdaFunction:
		plan.Append(fmt.Sprintf("Deleting function: %s", record.String("lambda_arn")),
			&ir.APICall{
				Method: "delete_function",
				Params: map[string]any{"function_name": record.String("lambda_arn")},
			},
		)

	case model.TypeIAMRole:
		plan.Append(fmt.Sprintf("Deleting IAM role: %s", record.String("role_name")),
			&ir.APICall{
				Method: "delete_role",
				Params: map[string]any{"name": record.String("role_name")},
			},
		)

	case model.TypeRestAPI:
		plan.Append("Deleting Rest API",
			&ir.APICall{
				Method: "delete_rest_api",
				Params: map[string]any{"rest_api_id": record.String("rest_api_id")},
			},
		)

	case model.TypeScheduledEvent:
		plan.Append(fmt.Sprintf("Deleting scheduled event: %s", record.String("rule_name")),
			&ir.APICall{
				Method: "delete_rule",
				Params: map[string]any{"rule_name": record.String("rule_name")},
			},
		)

	case model.TypeS3Event:
		s.disconnectS3(plan, record.Name(), record.String("bucket"), record.String("lambda_arn"))

	case model.TypeSNSEvent:
		s.unsubscribeSNS(plan, record.String("topic"), record.String("topic_arn"),
			record.String("subscription_arn"), record.String("lambda_arn"))

	case model.TypeSQSEvent:
		s.removeSQS(plan, record.String("queue"), record.String("event_uuid"))

	default:
		return fmt.Errorf("unknown recorded resource type %q for %s; "+
			"the deployed record is from an incompatible version", record.ResourceType(), record.Name())
	}
	return nil
}

// teardownDrift tears down the old attachment of a still-referenced
// event source whose recorded attachment point no longer matches the
// new plan.
func (s *Sweeper) teardownDrift(plan *ir.Plan, record ir.RecordedResource, planned *plannedResource) error {
	changed := func(field string) bool {
		newValue, ok := planned.fields[field]
		return ok && newValue != record[field]
	}

	switch record.ResourceType() {
	case model.TypeS3Event:
		if changed("bucket") {
			s.disconnectS3(plan, record.Name(), record.String("bucket"), record.String("lambda_arn"))
		}
	case model.TypeSNSEvent:
		if changed("topic") {
			s.unsubscribeSNS(plan, record.String("topic"), record.String("topic_arn"),
				record.String("subscription_arn"), record.String("lambda_arn"))
		}
	case model.TypeSQSEvent:
		if changed("queue") {
			s.removeSQS(plan, record.String("queue"), record.String("event_uuid"))
		}
	}
	return nil
}

func (s *Sweeper) disconnectS3(plan *ir.Plan, name, bucket, functionARN string) {
	// The permission's bucket ARN is partition-scoped; recover the
	// partition from the recorded function ARN.
	parsedVar := name + "_sweep_parsed_arn"
	partitionVar := name + "_sweep_partition"
	plan.Append(fmt.Sprintf("Disconnecting S3 bucket %s", bucket),
		&ir.APICall{
			Method: "disconnect_s3_bucket_from_lambda",
			Params: map[string]any{
				"bucket":       bucket,
				"function_arn": functionARN,
			},
		},
		&ir.BuiltinFunction{
			Name:      "parse_arn",
			Args:      []any{functionARN},
			OutputVar: parsedVar,
		},
		&ir.JPSearch{Expression: "partition", InputVar: parsedVar, OutputVar: partitionVar},
		&ir.APICall{
			Method: "remove_permission_for_s3_event",
			Params: map[string]any{
				"bucket":       bucket,
				"function_arn": functionARN,
				"partition":    ir.Variable{Name: partitionVar},
			},
		},
	)
}

func (s *Sweeper) unsubscribeSNS(plan *ir.Plan, topic, topicARN, subscriptionARN, functionARN string) {
	plan.Append(fmt.Sprintf("Unsubscribing from SNS topic %s", topic),
		&ir.APICall{
			Method: "unsubscribe_from_topic",
			Params: map[string]any{"subscription_arn": subscriptionARN},
		},
		&ir.APICall{
			Method: "remove_permission_for_sns_topic",
			Params: map[string]any{
				"topic_arn":    topicARN,
				"function_arn": functionARN,
			},
		},
	)
}

func (s *Sweeper) removeSQS(plan *ir.Plan, queue, mappingUUID string) {
	plan.Append(fmt.Sprintf("Removing SQS event source: %s", queue),
		&ir.APICall{
			Method: "remove_lambda_event_source",
			Params: map[string]any{"event_uuid": mappingUUID},
		},
	)
}
