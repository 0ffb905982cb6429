package engine

import (
	"context"
	"fmt"

	"github.com/wharfctl/wharf/internal/awsapi"
	"github.com/wharfctl/wharf/internal/model"
)

// recordedCall is one mutation the stub client received.
type recordedCall struct {
	method string
	params map[string]any
}

// stubCloudClient records every mutation and answers reads from
// in-memory tables.
type stubCloudClient struct {
	calls    []recordedCall
	results  map[string]any
	identity map[string]any
	err      error

	functions map[string]*awsapi.FunctionSnapshot
	roles     map[string]*awsapi.RoleSnapshot
	restAPIs  map[string]bool
	mappings  map[string]bool
	probes    int
}

func newStubClient() *stubCloudClient {
	return &stubCloudClient{
		results:   make(map[string]any),
		functions: make(map[string]*awsapi.FunctionSnapshot),
		roles:     make(map[string]*awsapi.RoleSnapshot),
		restAPIs:  make(map[string]bool),
		mappings:  make(map[string]bool),
		identity: map[string]any{
			"partition":  "aws",
			"account_id": "123456789012",
			"region":     "us-west-2",
			"dns_suffix": "amazonaws.com",
		},
	}
}

func (c *stubCloudClient) CallMethod(_ context.Context, method string, params map[string]any) (any, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.calls = append(c.calls, recordedCall{method: method, params: params})
	return c.results[method], nil
}

func (c *stubCloudClient) CallerIdentity(context.Context) (map[string]any, error) {
	return c.identity, nil
}

func (c *stubCloudClient) LambdaFunctionExists(_ context.Context, name string) (bool, error) {
	c.probes++
	_, ok := c.functions[name]
	return ok, nil
}

func (c *stubCloudClient) GetFunctionSnapshot(_ context.Context, name string) (*awsapi.FunctionSnapshot, error) {
	snap, ok := c.functions[name]
	if !ok {
		return nil, fmt.Errorf("no snapshot for %s", name)
	}
	return snap, nil
}

func (c *stubCloudClient) RoleExists(_ context.Context, name string) (bool, error) {
	c.probes++
	_, ok := c.roles[name]
	return ok, nil
}

func (c *stubCloudClient) GetRoleSnapshot(_ context.Context, name, _ string) (*awsapi.RoleSnapshot, error) {
	snap, ok := c.roles[name]
	if !ok {
		return nil, fmt.Errorf("no snapshot for %s", name)
	}
	return snap, nil
}

func (c *stubCloudClient) RestAPIExists(_ context.Context, apiID string) (bool, error) {
	c.probes++
	return c.restAPIs[apiID], nil
}

func (c *stubCloudClient) EventSourceMappingExists(_ context.Context, mappingUUID string) (bool, error) {
	c.probes++
	return c.mappings[mappingUUID], nil
}

// methodNames extracts the APICall method sequence from recorded
// calls.
func (c *stubCloudClient) methodNames() []string {
	var names []string
	for _, call := range c.calls {
		names = append(names, call.method)
	}
	return names
}

// sinkUI collects executor progress messages.
type sinkUI struct {
	messages []string
}

func (u *sinkUI) Write(msg string) {
	u.messages = append(u.messages, msg)
}

// testFunction returns a fully built function backed by a pre-created
// role, the smallest graph the planner accepts.
func testFunction(name string) *model.LambdaFunction {
	return &model.LambdaFunction{
		Name:         name,
		FunctionName: "app-dev-" + name,
		DeploymentPackage: &model.DeploymentPackage{
			Name:     "deployment_package",
			Filename: model.ResolvedValue("/tmp/pkg.zip"),
		},
		Role: &model.PreCreatedIAMRole{
			Name:    "default-role",
			RoleARN: "arn:aws:iam::123456789012:role/app-dev",
		},
		Runtime:    "python3.12",
		Handler:    "app.handler",
		MemorySize: model.ResolvedValue(int32(128)),
		Timeout:    model.ResolvedValue(int32(60)),
	}
}
