package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/wharfctl/wharf/internal/awsapi"
	"github.com/wharfctl/wharf/internal/ir"
	"github.com/wharfctl/wharf/internal/model"
)

// Planner diffs each resource against remote state and emits the
// instruction sequence that converges it. Planning issues only read
// calls; identifiers produced by earlier instructions in the same plan
// are referenced through variables rather than resolved eagerly.
//
// Planning the same graph twice against unchanged remote state yields
// structurally identical plans.
type Planner struct {
	remote *RemoteState
	plan   *ir.Plan

	contextLoaded bool
}

func NewPlanner(remote *RemoteState) *Planner {
	return &Planner{remote: remote}
}

// Plan walks the dependency-ordered resources and emits one converging
// instruction sequence per resource.
func (p *Planner) Plan(ctx context.Context, ordered []model.Resource) (*ir.Plan, error) {
	p.plan = ir.NewPlan()
	p.contextLoaded = false

	for _, res := range ordered {
		if err := p.planResource(ctx, res); err != nil {
			return nil, fmt.Errorf("planning %s %s: %w", res.ResourceType(), res.ResourceName(), err)
		}
	}
	return p.plan, nil
}

func (p *Planner) planResource(ctx context.Context, res model.Resource) error {
	switch r := res.(type) {
	case *model.DeploymentPackage:
		// Local artifact only; referenced by function params.
		return nil
	case *model.AutoGenIAMPolicy, *model.FileBasedIAMPolicy:
		// Inlined into the owning role's instructions.
		return nil
	case *model.PreCreatedIAMRole:
		// User-managed; its ARN is embedded literally by dependents.
		return nil
	case *model.ManagedIAMRole:
		return p.planManagedRole(ctx, r)
	case *model.LambdaFunction:
		return p.planLambdaFunction(ctx, r)
	case *model.RestAPI:
		return p.planRestAPI(ctx, r)
	case *model.ScheduledEvent:
		return p.planScheduledEvent(ctx, r)
	case *model.S3BucketNotification:
		return p.planS3Event(ctx, r)
	case *model.SNSSubscription:
		return p.planSNSSubscription(ctx, r)
	case *model.SQSEventSource:
		return p.planSQSEventSource(ctx, r)
	default:
		return fmt.Errorf("internal error: no planner for resource type %q", res.ResourceType())
	}
}

func (p *Planner) planManagedRole(ctx context.Context, role *model.ManagedIAMRole) error {
	doc, ok := role.Policy.PolicyDocument().Value()
	if !ok {
		return fmt.Errorf("policy document for role %s was not generated", role.RoleName)
	}
	varname := roleARNVar(role)

	exists, err := p.remote.ResourceExists(ctx, role)
	if err != nil {
		return err
	}

	if !exists {
		p.plan.Append(fmt.Sprintf("Creating IAM role: %s", role.RoleName),
			&ir.APICall{
				Method: "create_role",
				Params: map[string]any{
					"name":            role.RoleName,
					"trust_policy":    role.TrustPolicy,
					"policy_name":     role.RoleName,
					"policy_document": doc,
				},
				OutputVar: varname,
			},
			&ir.RecordResourceVariable{
				ResourceType: model.TypeIAMRole,
				ResourceName: role.Name,
				Field:        "role_arn",
				VariableName: varname,
			},
			&ir.RecordResourceValue{
				ResourceType: model.TypeIAMRole,
				ResourceName: role.Name,
				Field:        "role_name",
				Value:        role.RoleName,
			},
		)
		return nil
	}

	snap, err := p.remote.RoleSnapshot(ctx, role.RoleName, role.RoleName)
	if err != nil {
		return err
	}

	var updates []ir.Instruction
	if !documentsEqual(snap.TrustPolicy, role.TrustPolicy) {
		updates = append(updates, &ir.APICall{
			Method: "update_assume_role_policy",
			Params: map[string]any{
				"role_name":    role.RoleName,
				"trust_policy": role.TrustPolicy,
			},
		})
	}
	if !documentsEqual(snap.InlinePolicy, doc) {
		updates = append(updates, &ir.APICall{
			Method: "put_role_policy",
			Params: map[string]any{
				"role_name":       role.RoleName,
				"policy_name":     role.RoleName,
				"policy_document": doc,
			},
		})
	}

	msg := ""
	if len(updates) > 0 {
		msg = fmt.Sprintf("Updating IAM role: %s", role.RoleName)
	}

	instrs := append(updates,
		&ir.StoreValue{Name: varname, Value: snap.ARN},
		&ir.RecordResourceVariable{
			ResourceType: model.TypeIAMRole,
			ResourceName: role.Name,
			Field:        "role_arn",
			VariableName: varname,
		},
		&ir.RecordResourceValue{
			ResourceType: model.TypeIAMRole,
			ResourceName: role.Name,
			Field:        "role_name",
			Value:        role.RoleName,
		},
	)
	p.plan.Append(msg, instrs...)
	return nil
}

func (p *Planner) planLambdaFunction(ctx context.Context, fn *model.LambdaFunction) error {
	zipFile, ok := fn.DeploymentPackage.Filename.Value()
	if !ok {
		return fmt.Errorf("deployment package for %s was not built", fn.FunctionName)
	}
	memory, ok := fn.MemorySize.Value()
	if !ok {
		return fmt.Errorf("memory size for %s was not defaulted", fn.FunctionName)
	}
	timeout, ok := fn.Timeout.Value()
	if !ok {
		return fmt.Errorf("timeout for %s was not defaulted", fn.FunctionName)
	}

	varname := functionARNVar(fn)
	params := map[string]any{
		"function_name":         fn.FunctionName,
		"role_arn":              roleARNValue(fn.Role),
		"zip_filename":          zipFile,
		"runtime":               fn.Runtime,
		"handler":               fn.Handler,
		"memory_size":           memory,
		"timeout":               timeout,
		"environment_variables": fn.EnvironmentVariables,
		"tags":                  fn.Tags,
		"security_group_ids":    fn.SecurityGroupIDs,
		"subnet_ids":            fn.SubnetIDs,
		"layers":                fn.Layers,
	}

	record := &ir.RecordResourceVariable{
		ResourceType: model.TypeLambdaFunction,
		ResourceName: fn.Name,
		Field:        "lambda_arn",
		VariableName: varname,
	}

	exists, err := p.remote.ResourceExists(ctx, fn)
	if err != nil {
		return err
	}

	if !exists {
		instrs := []ir.Instruction{
			&ir.APICall{Method: "create_function", Params: params, OutputVar: varname},
		}
		if fn.ReservedConcurrency != nil {
			instrs = append(instrs, &ir.APICall{
				Method: "put_function_concurrency",
				Params: map[string]any{
					"function_name":        fn.FunctionName,
					"reserved_concurrency": *fn.ReservedConcurrency,
				},
			})
		}
		instrs = append(instrs, record)
		p.plan.Append(fmt.Sprintf("Creating lambda function: %s", fn.FunctionName), instrs...)
		return nil
	}

	snap, err := p.remote.FunctionSnapshot(ctx, fn.FunctionName)
	if err != nil {
		return err
	}

	var instrs []ir.Instruction
	msg := ""
	if functionDiffers(fn, memory, timeout, snap) {
		msg = fmt.Sprintf("Updating lambda function: %s", fn.FunctionName)
		resultVar := fn.Name + "_update_function"
		instrs = append(instrs,
			&ir.APICall{Method: "update_function", Params: params, OutputVar: resultVar},
			&ir.JPSearch{Expression: "function_arn", InputVar: resultVar, OutputVar: varname},
		)
	} else {
		instrs = append(instrs, &ir.StoreValue{Name: varname, Value: snap.FunctionARN})
	}

	switch {
	case fn.ReservedConcurrency == nil && snap.ReservedConcurrency != nil:
		instrs = append(instrs, &ir.APICall{
			Method: "delete_function_concurrency",
			Params: map[string]any{"function_name": fn.FunctionName},
		})
	case fn.ReservedConcurrency != nil &&
		(snap.ReservedConcurrency == nil || *snap.ReservedConcurrency != *fn.ReservedConcurrency):
		instrs = append(instrs, &ir.APICall{
			Method: "put_function_concurrency",
			Params: map[string]any{
				"function_name":        fn.FunctionName,
				"reserved_concurrency": *fn.ReservedConcurrency,
			},
		})
	}

	instrs = append(instrs, record)
	p.plan.Append(msg, instrs...)
	return nil
}

// functionDiffers reports whether any declared attribute diverges from
// the live snapshot. Updates are whole-resource: one differing field
// pushes the complete configuration.
func functionDiffers(fn *model.LambdaFunction, memory, timeout int32, snap *awsapi.FunctionSnapshot) bool {
	if fn.Runtime != snap.Runtime || fn.Handler != snap.Handler {
		return true
	}
	if memory != snap.MemorySize || timeout != snap.Timeout {
		return true
	}
	if !stringMapsEqual(fn.EnvironmentVariables, snap.EnvironmentVariables) {
		return true
	}
	if !stringMapsEqual(fn.Tags, snap.Tags) {
		return true
	}
	if !stringSlicesEqual(fn.SecurityGroupIDs, snap.SecurityGroupIDs) {
		return true
	}
	if !stringSlicesEqual(fn.SubnetIDs, snap.SubnetIDs) {
		return true
	}
	return !stringSlicesEqual(fn.Layers, snap.Layers)
}

// ensureAccountContext emits, once per plan, the instructions that
// interrogate the active profile and bind region_name, account_id,
// partition, and dns_suffix in the variable pool.
func (p *Planner) ensureAccountContext() {
	if p.contextLoaded {
		return
	}
	p.contextLoaded = true
	p.plan.Append("",
		&ir.BuiltinFunction{Name: "interrogate_profile", OutputVar: "caller_context"},
		&ir.JPSearch{Expression: "region", InputVar: "caller_context", OutputVar: "region_name"},
		&ir.JPSearch{Expression: "account_id", InputVar: "caller_context", OutputVar: "account_id"},
		&ir.JPSearch{Expression: "partition", InputVar: "caller_context", OutputVar: "partition"},
		&ir.JPSearch{Expression: "dns_suffix", InputVar: "caller_context", OutputVar: "dns_suffix"},
	)
}

func roleARNVar(role *model.ManagedIAMRole) string {
	return role.Name + "_role_arn"
}

func functionARNVar(fn *model.LambdaFunction) string {
	return fn.Name + "_lambda_arn"
}

// roleARNValue returns the plan-time value for a role's ARN: a
// variable reference for managed roles, whose instructions bind it in
// the same plan, and the literal ARN for pre-created roles.
func roleARNValue(role model.IAMRole) any {
	switch r := role.(type) {
	case *model.ManagedIAMRole:
		return ir.Variable{Name: roleARNVar(r)}
	case *model.PreCreatedIAMRole:
		return r.RoleARN
	default:
		panic(fmt.Sprintf("unknown IAM role variant %T", role))
	}
}

// documentsEqual compares two policy documents through their canonical
// JSON encodings, normalizing numeric types and map ordering.
func documentsEqual(a, b map[string]any) bool {
	aJSON, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bJSON, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(aJSON, bJSON)
}

func stringMapsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
