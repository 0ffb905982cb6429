package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/wharfctl/wharf/internal/ir"
	"github.com/wharfctl/wharf/internal/model"
)

func (p *Planner) planRestAPI(ctx context.Context, api *model.RestAPI) error {
	doc, ok := api.APIDoc.Value()
	if !ok {
		return fmt.Errorf("api document for %s was not generated", api.Name)
	}
	p.ensureAccountContext()

	varname := api.Name + "_rest_api_id"
	urlVar := api.Name + "_rest_api_url"

	exists, err := p.remote.ResourceExists(ctx, api)
	if err != nil {
		return err
	}

	if !exists {
		p.plan.Append("Creating Rest API",
			&ir.APICall{
				Method:    "import_rest_api",
				Params:    map[string]any{"api_doc": doc},
				OutputVar: varname,
			},
		)
	} else {
		deployed, _ := p.remote.DeployedValues(api)
		p.plan.Append("Updating Rest API",
			&ir.StoreValue{Name: varname, Value: deployed.String("rest_api_id")},
			&ir.APICall{
				Method: "update_rest_api",
				Params: map[string]any{
					"rest_api_id": ir.Variable{Name: varname},
					"api_doc":     doc,
				},
			},
		)
	}

	p.plan.Append("",
		&ir.APICall{
			Method: "add_permission_for_apigateway",
			Params: map[string]any{
				"function_name": api.LambdaFunction.FunctionName,
				"region_name":   ir.Variable{Name: "region_name"},
				"account_id":    ir.Variable{Name: "account_id"},
				"partition":     ir.Variable{Name: "partition"},
				"rest_api_id":   ir.Variable{Name: varname},
			},
		},
		&ir.APICall{
			Method: "deploy_rest_api",
			Params: map[string]any{
				"rest_api_id":       ir.Variable{Name: varname},
				"api_gateway_stage": api.APIGatewayStage,
			},
		},
		&ir.StoreValue{
			Name: urlVar,
			Value: ir.StringFormat{
				Template:  fmt.Sprintf("https://{%s}.execute-api.{region_name}.{dns_suffix}/%s/", varname, api.APIGatewayStage),
				Variables: []string{varname, "region_name", "dns_suffix"},
			},
		},
		&ir.RecordResourceVariable{
			ResourceType: model.TypeRestAPI,
			ResourceName: api.Name,
			Field:        "rest_api_id",
			VariableName: varname,
		},
		&ir.RecordResourceVariable{
			ResourceType: model.TypeRestAPI,
			ResourceName: api.Name,
			Field:        "rest_api_url",
			VariableName: urlVar,
		},
	)
	return nil
}

// planScheduledEvent converges a rule with unconditional idempotent
// puts; EventBridge PutRule and PutTargets overwrite in place, so no
// remote diff is needed.
func (p *Planner) planScheduledEvent(ctx context.Context, event *model.ScheduledEvent) error {
	exists, err := p.remote.ResourceExists(ctx, event)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("Creating scheduled event: %s", event.RuleName)
	if exists {
		msg = fmt.Sprintf("Updating scheduled event: %s", event.RuleName)
	}

	fnVar := ir.Variable{Name: functionARNVar(event.LambdaFunction)}
	ruleVar := event.Name + "_rule_arn"

	p.plan.Append(msg,
		&ir.APICall{
			Method: "put_rule",
			Params: map[string]any{
				"rule_name":           event.RuleName,
				"schedule_expression": event.ScheduleExpression,
			},
			OutputVar: ruleVar,
		},
		&ir.APICall{
			Method: "connect_rule_to_lambda",
			Params: map[string]any{
				"rule_name":    event.RuleName,
				"function_arn": fnVar,
			},
		},
		&ir.APICall{
			Method: "add_permission_for_scheduled_event",
			Params: map[string]any{
				"rule_arn":     ir.Variable{Name: ruleVar},
				"function_arn": fnVar,
			},
		},
		&ir.RecordResourceValue{
			ResourceType: model.TypeScheduledEvent,
			ResourceName: event.Name,
			Field:        "rule_name",
			Value:        event.RuleName,
		},
		&ir.RecordResourceVariable{
			ResourceType: model.TypeScheduledEvent,
			ResourceName: event.Name,
			Field:        "rule_arn",
			VariableName: ruleVar,
		},
	)
	return nil
}

// planS3Event always reconnects the notification; the client merges
// into the bucket's existing configuration, so reconnecting is
// idempotent. The account id and partition for the permission scope
// are derived from the function's ARN at execution time.
func (p *Planner) planS3Event(ctx context.Context, event *model.S3BucketNotification) error {
	exists, err := p.remote.ResourceExists(ctx, event)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("Subscribing %s to S3 bucket %s", event.LambdaFunction.FunctionName, event.Bucket)
	if exists {
		msg = fmt.Sprintf("Reconfiguring S3 events for bucket %s", event.Bucket)
	}

	fnVar := ir.Variable{Name: functionARNVar(event.LambdaFunction)}
	parsedVar := event.Name + "_parsed_lambda_arn"
	accountVar := event.Name + "_account_id"
	partitionVar := event.Name + "_partition"

	p.plan.Append(msg,
		&ir.BuiltinFunction{
			Name:      "parse_arn",
			Args:      []any{fnVar},
			OutputVar: parsedVar,
		},
		&ir.JPSearch{Expression: "account_id", InputVar: parsedVar, OutputVar: accountVar},
		&ir.JPSearch{Expression: "partition", InputVar: parsedVar, OutputVar: partitionVar},
		&ir.APICall{
			Method: "add_permission_for_s3_event",
			Params: map[string]any{
				"bucket":       event.Bucket,
				"function_arn": fnVar,
				"account_id":   ir.Variable{Name: accountVar},
				"partition":    ir.Variable{Name: partitionVar},
			},
		},
		&ir.APICall{
			Method: "connect_s3_bucket_to_lambda",
			Params: map[string]any{
				"bucket":       event.Bucket,
				"function_arn": fnVar,
				"events":       event.Events,
				"prefix":       event.Prefix,
				"suffix":       event.Suffix,
			},
		},
		&ir.RecordResourceValue{
			ResourceType: model.TypeS3Event,
			ResourceName: event.Name,
			Field:        "bucket",
			Value:        event.Bucket,
		},
		&ir.RecordResourceVariable{
			ResourceType: model.TypeS3Event,
			ResourceName: event.Name,
			Field:        "lambda_arn",
			VariableName: fnVar.Name,
		},
	)
	return nil
}

func (p *Planner) planSNSSubscription(ctx context.Context, event *model.SNSSubscription) error {
	exists, err := p.remote.ResourceExists(ctx, event)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("Subscribing %s to SNS topic %s", event.LambdaFunction.FunctionName, event.Topic)
	if exists {
		msg = fmt.Sprintf("Reconfiguring SNS subscription for topic %s", event.Topic)
	}

	fnVar := ir.Variable{Name: functionARNVar(event.LambdaFunction)}
	subVar := event.Name + "_subscription_arn"

	var instrs []ir.Instruction
	var topicARN any
	var topicARNRecord ir.Instruction
	if isARN(event.Topic) {
		topicARN = event.Topic
		topicARNRecord = &ir.RecordResourceValue{
			ResourceType: model.TypeSNSEvent,
			ResourceName: event.Name,
			Field:        "topic_arn",
			Value:        event.Topic,
		}
	} else {
		// Bare topic name in the caller's account.
		p.ensureAccountContext()
		topicVar := event.Name + "_topic_arn"
		instrs = append(instrs, &ir.StoreValue{
			Name: topicVar,
			Value: ir.StringFormat{
				Template:  fmt.Sprintf("arn:{partition}:sns:{region_name}:{account_id}:%s", event.Topic),
				Variables: []string{"partition", "region_name", "account_id"},
			},
		})
		topicARN = ir.Variable{Name: topicVar}
		topicARNRecord = &ir.RecordResourceVariable{
			ResourceType: model.TypeSNSEvent,
			ResourceName: event.Name,
			Field:        "topic_arn",
			VariableName: topicVar,
		}
	}

	instrs = append(instrs,
		&ir.APICall{
			Method: "add_permission_for_sns_topic",
			Params: map[string]any{
				"topic_arn":    topicARN,
				"function_arn": fnVar,
			},
		},
		&ir.APICall{
			Method: "subscribe_function_to_topic",
			Params: map[string]any{
				"topic_arn":    topicARN,
				"function_arn": fnVar,
			},
			OutputVar: subVar,
		},
		&ir.RecordResourceValue{
			ResourceType: model.TypeSNSEvent,
			ResourceName: event.Name,
			Field:        "topic",
			Value:        event.Topic,
		},
		topicARNRecord,
		&ir.RecordResourceVariable{
			ResourceType: model.TypeSNSEvent,
			ResourceName: event.Name,
			Field:        "subscription_arn",
			VariableName: subVar,
		},
		&ir.RecordResourceVariable{
			ResourceType: model.TypeSNSEvent,
			ResourceName: event.Name,
			Field:        "lambda_arn",
			VariableName: fnVar.Name,
		},
	)
	p.plan.Append(msg, instrs...)
	return nil
}

func (p *Planner) planSQSEventSource(ctx context.Context, event *model.SQSEventSource) error {
	exists, err := p.remote.ResourceExists(ctx, event)
	if err != nil {
		return err
	}

	fnVar := ir.Variable{Name: functionARNVar(event.LambdaFunction)}
	uuidVar := event.Name + "_event_uuid"

	records := []ir.Instruction{
		&ir.RecordResourceValue{
			ResourceType: model.TypeSQSEvent,
			ResourceName: event.Name,
			Field:        "queue",
			Value:        event.Queue,
		},
		&ir.RecordResourceVariable{
			ResourceType: model.TypeSQSEvent,
			ResourceName: event.Name,
			Field:        "event_uuid",
			VariableName: uuidVar,
		},
		&ir.RecordResourceVariable{
			ResourceType: model.TypeSQSEvent,
			ResourceName: event.Name,
			Field:        "lambda_arn",
			VariableName: fnVar.Name,
		},
	}

	if exists {
		deployed, _ := p.remote.DeployedValues(event)
		// A mapping is bound to one queue. A changed queue is a
		// replacement: the sweeper removes the old mapping, and the
		// create path below attaches a fresh one to the new queue.
		if deployed.String("queue") == event.Queue {
			mappingUUID := deployed.String("event_uuid")
			instrs := []ir.Instruction{
				&ir.APICall{
					Method: "update_lambda_event_source",
					Params: map[string]any{
						"event_uuid":                         mappingUUID,
						"batch_size":                         event.BatchSize,
						"maximum_batching_window_in_seconds": event.MaximumBatchingWindow,
					},
				},
				&ir.StoreValue{Name: uuidVar, Value: mappingUUID},
			}
			p.plan.Append(fmt.Sprintf("Updating SQS event source: %s", event.Queue),
				append(instrs, records...)...)
			return nil
		}
	}

	var instrs []ir.Instruction
	var queueARN any
	if isARN(event.Queue) {
		queueARN = event.Queue
	} else {
		queueVar := event.Name + "_queue_arn"
		instrs = append(instrs, &ir.APICall{
			Method:    "get_sqs_queue_arn",
			Params:    map[string]any{"queue_name": event.Queue},
			OutputVar: queueVar,
		})
		queueARN = ir.Variable{Name: queueVar}
	}

	instrs = append(instrs, &ir.APICall{
		Method: "create_lambda_event_source",
		Params: map[string]any{
			"event_source_arn":                   queueARN,
			"function_name":                      event.LambdaFunction.FunctionName,
			"batch_size":                         event.BatchSize,
			"maximum_batching_window_in_seconds": event.MaximumBatchingWindow,
		},
		OutputVar: uuidVar,
	})
	p.plan.Append(fmt.Sprintf("Subscribing %s to SQS queue %s", event.LambdaFunction.FunctionName, event.Queue),
		append(instrs, records...)...)
	return nil
}

func isARN(s string) bool {
	return strings.HasPrefix(s, "arn:")
}
