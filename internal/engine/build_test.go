package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wharfctl/wharf/internal/ir"
	"github.com/wharfctl/wharf/internal/model"
)

// stubPackager counts builds; the shared package must be built once per
// deploy regardless of function count.
type stubPackager struct {
	creates  int
	filename string
	err      error
}

func (p *stubPackager) Create(*model.Application) (string, error) {
	p.creates++
	return p.filename, p.err
}

func TestInjectDefaults_FillsOnlyPendingLimits(t *testing.T) {
	fn := testFunction("handler")
	fn.Timeout = model.PendingValue[int32]()
	fn.MemorySize = model.ResolvedValue(int32(512))

	require.NoError(t, (&InjectDefaults{}).Handle(nil, fn))

	assert.Equal(t, DefaultTimeout, fn.Timeout.MustValue())
	assert.Equal(t, int32(512), fn.MemorySize.MustValue())
}

func TestInjectDefaults_IgnoresOtherResources(t *testing.T) {
	pkg := &model.DeploymentPackage{Name: "deployment_package"}
	require.NoError(t, (&InjectDefaults{}).Handle(nil, pkg))
	assert.True(t, pkg.Filename.Pending())
}

func TestBuildDeploymentPackage_SharedPackageBuiltOnce(t *testing.T) {
	packager := &stubPackager{filename: "/tmp/app-abc.zip"}
	step := &BuildDeploymentPackage{Packager: packager}

	pkg := &model.DeploymentPackage{Name: "deployment_package"}
	app := &model.Application{Name: "app"}

	require.NoError(t, step.Handle(app, pkg))
	require.NoError(t, step.Handle(app, pkg))

	assert.Equal(t, 1, packager.creates)
	assert.Equal(t, "/tmp/app-abc.zip", pkg.Filename.MustValue())
}

func TestGeneratePolicies_BasePolicyHasLogsOnly(t *testing.T) {
	app := &model.Application{
		Name:      "app",
		Resources: []model.Resource{testFunction("handler")},
	}
	policy := &model.AutoGenIAMPolicy{Name: "default-role-policy"}

	require.NoError(t, (&GeneratePolicies{}).Handle(app, policy))

	doc := policy.Document.MustValue()
	assert.Equal(t, "2012-10-17", doc["Version"])

	statements := doc["Statement"].([]any)
	require.Len(t, statements, 1)
	first := statements[0].(map[string]any)
	assert.Contains(t, first["Action"], "logs:PutLogEvents")
}

func TestGeneratePolicies_EventSourcesWidenThePolicy(t *testing.T) {
	fn := testFunction("handler")
	fn.SubnetIDs = []string{"subnet-1"}
	fn.SecurityGroupIDs = []string{"sg-1"}
	event := &model.SQSEventSource{
		Name:           "queue-handler",
		Queue:          "work-queue",
		BatchSize:      10,
		LambdaFunction: fn,
	}
	app := &model.Application{
		Name:      "app",
		Resources: []model.Resource{fn, event},
	}
	policy := &model.AutoGenIAMPolicy{Name: "default-role-policy"}

	require.NoError(t, (&GeneratePolicies{}).Handle(app, policy))

	var actions []any
	for _, stmt := range policy.Document.MustValue()["Statement"].([]any) {
		actions = append(actions, stmt.(map[string]any)["Action"].([]any)...)
	}
	assert.Contains(t, actions, "sqs:ReceiveMessage")
	assert.Contains(t, actions, "ec2:CreateNetworkInterface")
}

func TestGeneratePolicies_FileBasedLoadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"Version": "2012-10-17", "Statement": []}`), 0o644))

	policy := &model.FileBasedIAMPolicy{Name: "custom-policy", Filename: path}
	require.NoError(t, (&GeneratePolicies{}).Handle(&model.Application{}, policy))

	assert.Equal(t, "2012-10-17", policy.Document.MustValue()["Version"])
}

func TestGeneratePolicies_MissingFileFails(t *testing.T) {
	policy := &model.FileBasedIAMPolicy{
		Name:     "custom-policy",
		Filename: filepath.Join(t.TempDir(), "missing.json"),
	}
	err := (&GeneratePolicies{}).Handle(&model.Application{}, policy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read policy file")
}

func TestGeneratePolicies_DeclaredDocumentUntouched(t *testing.T) {
	declared := map[string]any{"Version": "2012-10-17", "Statement": []any{"custom"}}
	policy := &model.AutoGenIAMPolicy{
		Name:     "default-role-policy",
		Document: model.ResolvedValue(declared),
	}
	require.NoError(t, (&GeneratePolicies{}).Handle(&model.Application{}, policy))
	assert.Equal(t, declared, policy.Document.MustValue())
}

func TestGenerateAPIDocs_RoutesBecomeProxyIntegrations(t *testing.T) {
	fn := testFunction("handler")
	api := &model.RestAPI{
		Name:            "handler_rest_api",
		APIGatewayStage: "api",
		Routes: []model.Route{
			{Path: "/hello", Methods: []string{"GET", "POST"}},
			{Path: "/status", Methods: []string{"GET"}},
		},
		APIDoc:         model.PendingValue[map[string]any](),
		LambdaFunction: fn,
	}

	require.NoError(t, (&GenerateAPIDocs{}).Handle(nil, api))

	doc := api.APIDoc.MustValue()
	assert.Equal(t, "2.0", doc["swagger"])

	paths := doc["paths"].(map[string]any)
	require.Len(t, paths, 2)
	hello := paths["/hello"].(map[string]any)
	require.Contains(t, hello, "get")
	require.Contains(t, hello, "post")

	// The integration URI carries the function ARN slot as a template
	// resolved at execution time.
	integration := hello["get"].(map[string]any)["x-amazon-apigateway-integration"].(map[string]any)
	assert.Equal(t, "aws_proxy", integration["type"])
	uri := integration["uri"].(ir.StringFormat)
	assert.Contains(t, uri.Template, "{handler_lambda_arn}")
	assert.Contains(t, uri.Variables, "handler_lambda_arn")
}

func TestGenerateAPIDocs_EndpointConfiguration(t *testing.T) {
	api := &model.RestAPI{
		Name:           "handler_rest_api",
		EndpointType:   "PRIVATE",
		APIDoc:         model.PendingValue[map[string]any](),
		LambdaFunction: testFunction("handler"),
	}
	require.NoError(t, (&GenerateAPIDocs{}).Handle(nil, api))

	doc := api.APIDoc.MustValue()
	config := doc["x-amazon-apigateway-endpoint-configuration"].(map[string]any)
	assert.Equal(t, []any{"PRIVATE"}, config["types"])
}

func TestBuildStage_NoPendingFieldsAfterExecute(t *testing.T) {
	fn := testFunction("handler")
	fn.DeploymentPackage.Filename = model.PendingValue[string]()
	fn.Timeout = model.PendingValue[int32]()
	fn.MemorySize = model.PendingValue[int32]()
	fn.Role = &model.ManagedIAMRole{
		Name:        "default-role",
		RoleName:    "app-dev",
		TrustPolicy: model.LambdaTrustPolicy(),
		Policy:      &model.AutoGenIAMPolicy{Name: "default-role-policy"},
	}
	api := &model.RestAPI{
		Name:            "handler_rest_api",
		APIGatewayStage: "api",
		Routes:          []model.Route{{Path: "/hello", Methods: []string{"GET"}}},
		APIDoc:          model.PendingValue[map[string]any](),
		LambdaFunction:  fn,
	}
	app := &model.Application{Name: "app", Resources: []model.Resource{fn, api}}
	ordered := NewResolver().Order(app)

	packager := &stubPackager{filename: "/tmp/app-abc.zip"}
	stage := NewBuildStage(DefaultBuildSteps(packager)...)
	require.NoError(t, stage.Execute(app, ordered))

	assert.False(t, fn.DeploymentPackage.Filename.Pending())
	assert.False(t, fn.Timeout.Pending())
	assert.False(t, fn.MemorySize.Pending())
	assert.False(t, fn.Role.(*model.ManagedIAMRole).Policy.PolicyDocument().Pending())
	assert.False(t, api.APIDoc.Pending())
	assert.Equal(t, 1, packager.creates)
}
