package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wharfctl/wharf/internal/awsapi"
	"github.com/wharfctl/wharf/internal/ir"
	"github.com/wharfctl/wharf/internal/model"
)

func planResources(t *testing.T, client *stubCloudClient, deployed *ir.DeployedResources, resources ...model.Resource) *ir.Plan {
	t.Helper()
	app := &model.Application{Name: "app", Resources: resources}
	ordered := NewResolver().Order(app)
	remote := NewRemoteState(client, deployed)

	plan, err := NewPlanner(remote).Plan(context.Background(), ordered)
	require.NoError(t, err)
	return plan
}

func apiCalls(plan *ir.Plan) []*ir.APICall {
	var calls []*ir.APICall
	for _, instr := range plan.Instructions {
		if call, ok := instr.(*ir.APICall); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

func TestPlanner_NewFunctionWithPreCreatedRole(t *testing.T) {
	// A new function backed by a pre-created role plans exactly one
	// create call; the role itself contributes no instructions.
	fn := testFunction("handler")
	plan := planResources(t, newStubClient(), nil, fn)

	calls := apiCalls(plan)
	require.Len(t, calls, 1)
	assert.Equal(t, "create_function", calls[0].Method)
	assert.Equal(t, "handler_lambda_arn", calls[0].OutputVar)

	// The role ARN is embedded literally, not via variable.
	assert.Equal(t, "arn:aws:iam::123456789012:role/app-dev", calls[0].Params["role_arn"])
	assert.Equal(t, "Creating lambda function: app-dev-handler", plan.Messages[calls[0]])
}

func TestPlanner_ExistingFunctionMemoryDiff(t *testing.T) {
	// Updates are whole-resource: a memory_size diff pushes the full
	// declared configuration in one update call.
	fn := testFunction("handler")
	client := newStubClient()
	client.functions["app-dev-handler"] = &awsapi.FunctionSnapshot{
		FunctionARN: "arn:aws:lambda:us-west-2:1:function:app-dev-handler",
		Runtime:     "python3.12",
		Handler:     "app.handler",
		MemorySize:  256, // declared is 128
		Timeout:     60,
	}

	plan := planResources(t, client, nil, fn)

	calls := apiCalls(plan)
	require.Len(t, calls, 1)
	assert.Equal(t, "update_function", calls[0].Method)
	assert.Equal(t, int32(128), calls[0].Params["memory_size"])
	assert.Equal(t, "app-dev-handler", calls[0].Params["function_name"])
	assert.Equal(t, "python3.12", calls[0].Params["runtime"])
	assert.Equal(t, "/tmp/pkg.zip", calls[0].Params["zip_filename"])
}

func TestPlanner_ExistingFunctionNoDiff(t *testing.T) {
	// A resource matching its snapshot emits bookkeeping only; no
	// mutating calls.
	fn := testFunction("handler")
	client := newStubClient()
	client.functions["app-dev-handler"] = &awsapi.FunctionSnapshot{
		FunctionARN: "arn:aws:lambda:us-west-2:1:function:app-dev-handler",
		Runtime:     "python3.12",
		Handler:     "app.handler",
		MemorySize:  128,
		Timeout:     60,
	}

	plan := planResources(t, client, nil, fn)

	assert.Empty(t, apiCalls(plan))

	// The ARN is still bound and recorded so the sweeper keeps it.
	var stored *ir.StoreValue
	var record *ir.RecordResourceVariable
	for _, instr := range plan.Instructions {
		switch in := instr.(type) {
		case *ir.StoreValue:
			stored = in
		case *ir.RecordResourceVariable:
			record = in
		}
	}
	require.NotNil(t, stored)
	assert.Equal(t, "handler_lambda_arn", stored.Name)
	assert.Equal(t, "arn:aws:lambda:us-west-2:1:function:app-dev-handler", stored.Value)
	require.NotNil(t, record)
	assert.Equal(t, "lambda_arn", record.Field)
}

func TestPlanner_ManagedRoleCreateBindsVariable(t *testing.T) {
	fn := testFunction("handler")
	fn.Role = &model.ManagedIAMRole{
		Name:        "default-role",
		RoleName:    "app-dev",
		TrustPolicy: model.LambdaTrustPolicy(),
		Policy: &model.AutoGenIAMPolicy{
			Name:     "default-role-policy",
			Document: model.ResolvedValue(map[string]any{"Version": "2012-10-17"}),
		},
	}

	plan := planResources(t, newStubClient(), nil, fn)

	calls := apiCalls(plan)
	require.Len(t, calls, 2)
	assert.Equal(t, "create_role", calls[0].Method)
	assert.Equal(t, "default-role_role_arn", calls[0].OutputVar)

	// The function references the role's ARN through the variable the
	// role's create bound, since the ARN is unknown at plan time.
	assert.Equal(t, "create_function", calls[1].Method)
	assert.Equal(t, ir.Variable{Name: "default-role_role_arn"}, calls[1].Params["role_arn"])
}

func TestPlanner_ManagedRoleUpdatesOnlyDiffs(t *testing.T) {
	policy := map[string]any{"Version": "2012-10-17", "Statement": []any{}}
	role := &model.ManagedIAMRole{
		Name:        "default-role",
		RoleName:    "app-dev",
		TrustPolicy: model.LambdaTrustPolicy(),
		Policy: &model.AutoGenIAMPolicy{
			Name:     "default-role-policy",
			Document: model.ResolvedValue(policy),
		},
	}
	client := newStubClient()
	client.roles["app-dev"] = &awsapi.RoleSnapshot{
		ARN:          "arn:aws:iam::1:role/app-dev",
		RoleName:     "app-dev",
		TrustPolicy:  model.LambdaTrustPolicy(),
		InlinePolicy: map[string]any{"Version": "2012-10-17", "Statement": []any{"stale"}},
	}

	plan := planResources(t, client, nil, role)

	// Trust policy matches, inline policy drifted: one targeted call.
	calls := apiCalls(plan)
	require.Len(t, calls, 1)
	assert.Equal(t, "put_role_policy", calls[0].Method)
}

func TestPlanner_Idempotent(t *testing.T) {
	build := func() []model.Resource {
		fn := testFunction("handler")
		event := &model.ScheduledEvent{
			Name:               "cron",
			RuleName:           "app-dev-cron",
			ScheduleExpression: "rate(1 hour)",
			LambdaFunction:     fn,
		}
		return []model.Resource{fn, event}
	}

	plan1 := planResources(t, newStubClient(), nil, build()...)
	plan2 := planResources(t, newStubClient(), nil, build()...)

	assert.Equal(t, plan1.Instructions, plan2.Instructions)
}

func TestPlanner_RestAPICreate(t *testing.T) {
	fn := testFunction("handler")
	api := &model.RestAPI{
		Name:            "handler_rest_api",
		APIGatewayStage: "api",
		Routes:          []model.Route{{Path: "/hello", Methods: []string{"GET"}}},
		APIDoc:          model.ResolvedValue(map[string]any{"swagger": "2.0"}),
		LambdaFunction:  fn,
	}

	plan := planResources(t, newStubClient(), nil, fn, api)

	var methods []string
	for _, call := range apiCalls(plan) {
		methods = append(methods, call.Method)
	}
	assert.Equal(t, []string{
		"create_function",
		"import_rest_api",
		"add_permission_for_apigateway",
		"deploy_rest_api",
	}, methods)

	// Account context instructions are emitted once, before use.
	var builtins []*ir.BuiltinFunction
	for _, instr := range plan.Instructions {
		if b, ok := instr.(*ir.BuiltinFunction); ok {
			builtins = append(builtins, b)
		}
	}
	require.Len(t, builtins, 1)
	assert.Equal(t, "interrogate_profile", builtins[0].Name)
}

func TestPlanner_RestAPIUpdateReusesDeployedID(t *testing.T) {
	fn := testFunction("handler")
	api := &model.RestAPI{
		Name:            "handler_rest_api",
		APIGatewayStage: "api",
		APIDoc:          model.ResolvedValue(map[string]any{"swagger": "2.0"}),
		LambdaFunction:  fn,
	}

	deployed := ir.NewDeployedResources()
	deployed.Resources = []ir.RecordedResource{{
		"name":          "handler_rest_api",
		"resource_type": model.TypeRestAPI,
		"rest_api_id":   "abc123",
	}}
	client := newStubClient()
	client.restAPIs["abc123"] = true

	plan := planResources(t, client, deployed, fn, api)

	var update *ir.APICall
	for _, call := range apiCalls(plan) {
		if call.Method == "update_rest_api" {
			update = call
		}
	}
	require.NotNil(t, update)
	assert.Equal(t, ir.Variable{Name: "handler_rest_api_rest_api_id"}, update.Params["rest_api_id"])
}

func TestPlanner_SQSEventSourceCreateAndUpdate(t *testing.T) {
	fn := testFunction("handler")
	event := &model.SQSEventSource{
		Name:           "queue-handler",
		Queue:          "work-queue",
		BatchSize:      10,
		LambdaFunction: fn,
	}

	// 1. Nothing deployed: resolve the queue ARN, then create.
	plan := planResources(t, newStubClient(), nil, fn, event)
	var methods []string
	for _, call := range apiCalls(plan) {
		methods = append(methods, call.Method)
	}
	assert.Equal(t, []string{"create_function", "get_sqs_queue_arn", "create_lambda_event_source"}, methods)

	// 2. Mapping recorded and alive: update in place.
	deployed := ir.NewDeployedResources()
	deployed.Resources = []ir.RecordedResource{{
		"name":          "queue-handler",
		"resource_type": model.TypeSQSEvent,
		"queue":         "work-queue",
		"event_uuid":    "uuid-1",
		"lambda_arn":    "arn:aws:lambda:us-west-2:1:function:app-dev-handler",
	}}
	client := newStubClient()
	client.mappings["uuid-1"] = true

	fn2 := testFunction("handler")
	event2 := &model.SQSEventSource{
		Name:           "queue-handler",
		Queue:          "work-queue",
		BatchSize:      20,
		LambdaFunction: fn2,
	}
	plan2 := planResources(t, client, deployed, fn2, event2)

	var update *ir.APICall
	for _, call := range apiCalls(plan2) {
		if call.Method == "update_lambda_event_source" {
			update = call
		}
	}
	require.NotNil(t, update)
	assert.Equal(t, "uuid-1", update.Params["event_uuid"])
	assert.Equal(t, int32(20), update.Params["batch_size"])
}

func TestPlanner_SQSQueueChangeReplacesMapping(t *testing.T) {
	deployed := ir.NewDeployedResources()
	deployed.Resources = []ir.RecordedResource{{
		"name":          "queue-handler",
		"resource_type": model.TypeSQSEvent,
		"queue":         "old-queue",
		"event_uuid":    "uuid-1",
		"lambda_arn":    "arn:aws:lambda:us-west-2:1:function:app-dev-handler",
	}}
	client := newStubClient()
	client.mappings["uuid-1"] = true

	fn := testFunction("handler")
	event := &model.SQSEventSource{
		Name:           "queue-handler",
		Queue:          "new-queue",
		BatchSize:      10,
		LambdaFunction: fn,
	}

	plan := planResources(t, client, deployed, fn, event)
	require.NoError(t, NewSweeper().Sweep(plan, deployed))

	// The mapping for the old queue is removed and a new one created;
	// updating the recorded mapping in place would leave the new queue
	// with no mapping once the old one is swept.
	var methods []string
	var remove *ir.APICall
	for _, call := range apiCalls(plan) {
		methods = append(methods, call.Method)
		if call.Method == "remove_lambda_event_source" {
			remove = call
		}
	}
	assert.Equal(t, []string{"create_function", "get_sqs_queue_arn",
		"create_lambda_event_source", "remove_lambda_event_source"}, methods)
	require.NotNil(t, remove)
	assert.Equal(t, "uuid-1", remove.Params["event_uuid"])
}

func TestRemoteState_CachesProbes(t *testing.T) {
	fn := testFunction("handler")
	client := newStubClient()
	remote := NewRemoteState(client, nil)

	ctx := context.Background()
	_, err := remote.ResourceExists(ctx, fn)
	require.NoError(t, err)
	_, err = remote.ResourceExists(ctx, fn)
	require.NoError(t, err)

	assert.Equal(t, 1, client.probes)
}

func TestRemoteState_RestAPIWithoutRecordIsAbsent(t *testing.T) {
	api := &model.RestAPI{
		Name:           "handler_rest_api",
		APIDoc:         model.ResolvedValue(map[string]any{}),
		LambdaFunction: testFunction("handler"),
	}
	client := newStubClient()
	remote := NewRemoteState(client, nil)

	exists, err := remote.ResourceExists(context.Background(), api)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Zero(t, client.probes)
}
