package awsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/google/uuid"
)

// FunctionSnapshot is the live configuration of a deployed function,
// hydrated once per deploy attempt for diffing.
type FunctionSnapshot struct {
	FunctionARN          string
	Runtime              string
	Handler              string
	MemorySize           int32
	Timeout              int32
	EnvironmentVariables map[string]string
	Tags                 map[string]string
	SecurityGroupIDs     []string
	SubnetIDs            []string
	Layers               []string
	ReservedConcurrency  *int32
}

// LambdaFunctionExists reports whether the named function exists.
// Absence is an expected outcome, not an error.
func (c *Client) LambdaFunctionExists(ctx context.Context, name string) (bool, error) {
	_, err := c.lambda.GetFunctionConfiguration(ctx, &lambda.GetFunctionConfigurationInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check function %s: %w", name, err)
	}
	return true, nil
}

// GetFunctionSnapshot hydrates the live attributes of an existing
// function, including tags and any reserved concurrency limit.
func (c *Client) GetFunctionSnapshot(ctx context.Context, name string) (*FunctionSnapshot, error) {
	cfg, err := c.lambda.GetFunctionConfiguration(ctx, &lambda.GetFunctionConfigurationInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get function %s: %w", name, err)
	}

	snap := &FunctionSnapshot{
		FunctionARN: aws.ToString(cfg.FunctionArn),
		Runtime:     string(cfg.Runtime),
		Handler:     aws.ToString(cfg.Handler),
		MemorySize:  aws.ToInt32(cfg.MemorySize),
		Timeout:     aws.ToInt32(cfg.Timeout),
	}
	if cfg.Environment != nil {
		snap.EnvironmentVariables = cfg.Environment.Variables
	}
	if cfg.VpcConfig != nil {
		snap.SecurityGroupIDs = cfg.VpcConfig.SecurityGroupIds
		snap.SubnetIDs = cfg.VpcConfig.SubnetIds
	}
	for _, layer := range cfg.Layers {
		snap.Layers = append(snap.Layers, aws.ToString(layer.Arn))
	}

	tags, err := c.lambda.ListTags(ctx, &lambda.ListTagsInput{
		Resource: cfg.FunctionArn,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tags for %s: %w", name, err)
	}
	snap.Tags = tags.Tags

	conc, err := c.lambda.GetFunctionConcurrency(ctx, &lambda.GetFunctionConcurrencyInput{
		FunctionName: cfg.FunctionArn,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get concurrency for %s: %w", name, err)
	}
	snap.ReservedConcurrency = conc.ReservedConcurrentExecutions

	return snap, nil
}

// EventSourceMappingExists reports whether the event source mapping
// with the given UUID still exists.
func (c *Client) EventSourceMappingExists(ctx context.Context, mappingUUID string) (bool, error) {
	_, err := c.lambda.GetEventSourceMapping(ctx, &lambda.GetEventSourceMappingInput{
		UUID: aws.String(mappingUUID),
	})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check event source mapping %s: %w", mappingUUID, err)
	}
	return true, nil
}

func (c *Client) createFunction(ctx context.Context, params map[string]any) (any, error) {
	name, err := stringParam(params, "function_name")
	if err != nil {
		return nil, err
	}
	roleARN, err := stringParam(params, "role_arn")
	if err != nil {
		return nil, err
	}
	zipFile, err := stringParam(params, "zip_filename")
	if err != nil {
		return nil, err
	}
	zipContents, err := os.ReadFile(zipFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment package: %w", err)
	}
	runtime, err := stringParam(params, "runtime")
	if err != nil {
		return nil, err
	}
	handler, err := stringParam(params, "handler")
	if err != nil {
		return nil, err
	}
	timeout, err := int32Param(params, "timeout")
	if err != nil {
		return nil, err
	}
	memory, err := int32Param(params, "memory_size")
	if err != nil {
		return nil, err
	}
	env, err := stringMapParam(params, "environment_variables")
	if err != nil {
		return nil, err
	}
	tags, err := stringMapParam(params, "tags")
	if err != nil {
		return nil, err
	}
	securityGroups, err := stringSliceParam(params, "security_group_ids")
	if err != nil {
		return nil, err
	}
	subnets, err := stringSliceParam(params, "subnet_ids")
	if err != nil {
		return nil, err
	}
	layers, err := stringSliceParam(params, "layers")
	if err != nil {
		return nil, err
	}

	input := &lambda.CreateFunctionInput{
		FunctionName: aws.String(name),
		Role:         aws.String(roleARN),
		Runtime:      types.Runtime(runtime),
		Handler:      aws.String(handler),
		Code:         &types.FunctionCode{ZipFile: zipContents},
		Timeout:      aws.Int32(timeout),
		MemorySize:   aws.Int32(memory),
		Tags:         tags,
	}
	if len(env) > 0 {
		input.Environment = &types.Environment{Variables: env}
	}
	if len(securityGroups) > 0 || len(subnets) > 0 {
		input.VpcConfig = &types.VpcConfig{
			SecurityGroupIds: securityGroups,
			SubnetIds:        subnets,
		}
	}
	if len(layers) > 0 {
		input.Layers = layers
	}

	resp, err := c.lambda.CreateFunction(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create function: %w", err)
	}
	return aws.ToString(resp.FunctionArn), nil
}

func (c *Client) updateFunction(ctx context.Context, params map[string]any) (any, error) {
	name, err := stringParam(params, "function_name")
	if err != nil {
		return nil, err
	}
	zipFile, err := stringParam(params, "zip_filename")
	if err != nil {
		return nil, err
	}
	zipContents, err := os.ReadFile(zipFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment package: %w", err)
	}

	codeResp, err := c.lambda.UpdateFunctionCode(ctx, &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(name),
		ZipFile:      zipContents,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update function code: %w", err)
	}

	roleARN, err := stringParam(params, "role_arn")
	if err != nil {
		return nil, err
	}
	runtime, err := stringParam(params, "runtime")
	if err != nil {
		return nil, err
	}
	handler, err := stringParam(params, "handler")
	if err != nil {
		return nil, err
	}
	timeout, err := int32Param(params, "timeout")
	if err != nil {
		return nil, err
	}
	memory, err := int32Param(params, "memory_size")
	if err != nil {
		return nil, err
	}
	env, err := stringMapParam(params, "environment_variables")
	if err != nil {
		return nil, err
	}
	securityGroups, err := stringSliceParam(params, "security_group_ids")
	if err != nil {
		return nil, err
	}
	subnets, err := stringSliceParam(params, "subnet_ids")
	if err != nil {
		return nil, err
	}
	layers, err := stringSliceParam(params, "layers")
	if err != nil {
		return nil, err
	}

	input := &lambda.UpdateFunctionConfigurationInput{
		FunctionName: aws.String(name),
		Role:         aws.String(roleARN),
		Runtime:      types.Runtime(runtime),
		Handler:      aws.String(handler),
		Timeout:      aws.Int32(timeout),
		MemorySize:   aws.Int32(memory),
		Environment:  &types.Environment{Variables: env},
	}
	if len(securityGroups) > 0 || len(subnets) > 0 {
		input.VpcConfig = &types.VpcConfig{
			SecurityGroupIds: securityGroups,
			SubnetIds:        subnets,
		}
	}
	input.Layers = layers

	err = RetryWithBackoff(ctx, c.retry, func() error {
		_, confErr := c.lambda.UpdateFunctionConfiguration(ctx, input)
		return confErr
	}, isPendingUpdateError)
	if err != nil {
		return nil, fmt.Errorf("failed to update function configuration: %w", err)
	}

	tags, err := stringMapParam(params, "tags")
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		_, err = c.lambda.TagResource(ctx, &lambda.TagResourceInput{
			Resource: codeResp.FunctionArn,
			Tags:     tags,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to tag function: %w", err)
		}
	}

	return map[string]any{"function_arn": aws.ToString(codeResp.FunctionArn)}, nil
}

// isPendingUpdateError matches the conflict returned while a previous
// code update is still being applied to the function.
func isPendingUpdateError(err error) bool {
	var conflict *types.ResourceConflictException
	return errors.As(err, &conflict)
}

func (c *Client) deleteFunction(ctx context.Context, params map[string]any) (any, error) {
	name, err := stringParam(params, "function_name")
	if err != nil {
		return nil, err
	}
	_, err = c.lambda.DeleteFunction(ctx, &lambda.DeleteFunctionInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete function: %w", err)
	}
	return nil, nil
}

func (c *Client) putFunctionConcurrency(ctx context.Context, params map[string]any) (any, error) {
	name, err := stringParam(params, "function_name")
	if err != nil {
		return nil, err
	}
	limit, err := int32Param(params, "reserved_concurrency")
	if err != nil {
		return nil, err
	}
	_, err = c.lambda.PutFunctionConcurrency(ctx, &lambda.PutFunctionConcurrencyInput{
		FunctionName:                 aws.String(name),
		ReservedConcurrentExecutions: aws.Int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set function concurrency: %w", err)
	}
	return nil, nil
}

func (c *Client) deleteFunctionConcurrency(ctx context.Context, params map[string]any) (any, error) {
	name, err := stringParam(params, "function_name")
	if err != nil {
		return nil, err
	}
	_, err = c.lambda.DeleteFunctionConcurrency(ctx, &lambda.DeleteFunctionConcurrencyInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove function concurrency: %w", err)
	}
	return nil, nil
}

func (c *Client) createLambdaEventSource(ctx context.Context, params map[string]any) (any, error) {
	sourceARN, err := stringParam(params, "event_source_arn")
	if err != nil {
		return nil, err
	}
	name, err := stringParam(params, "function_name")
	if err != nil {
		return nil, err
	}
	batchSize, err := int32Param(params, "batch_size")
	if err != nil {
		return nil, err
	}
	window, err := optionalInt32Param(params, "maximum_batching_window_in_seconds")
	if err != nil {
		return nil, err
	}

	input := &lambda.CreateEventSourceMappingInput{
		EventSourceArn: aws.String(sourceARN),
		FunctionName:   aws.String(name),
		BatchSize:      aws.Int32(batchSize),
	}
	if window != nil {
		input.MaximumBatchingWindowInSeconds = window
	}

	resp, err := c.lambda.CreateEventSourceMapping(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create event source mapping: %w", err)
	}
	return aws.ToString(resp.UUID), nil
}

func (c *Client) updateLambdaEventSource(ctx context.Context, params map[string]any) (any, error) {
	mappingUUID, err := stringParam(params, "event_uuid")
	if err != nil {
		return nil, err
	}
	batchSize, err := int32Param(params, "batch_size")
	if err != nil {
		return nil, err
	}
	window, err := optionalInt32Param(params, "maximum_batching_window_in_seconds")
	if err != nil {
		return nil, err
	}

	input := &lambda.UpdateEventSourceMappingInput{
		UUID:      aws.String(mappingUUID),
		BatchSize: aws.Int32(batchSize),
	}
	if window != nil {
		input.MaximumBatchingWindowInSeconds = window
	}

	_, err = c.lambda.UpdateEventSourceMapping(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to update event source mapping: %w", err)
	}
	return nil, nil
}

func (c *Client) removeLambdaEventSource(ctx context.Context, params map[string]any) (any, error) {
	mappingUUID, err := stringParam(params, "event_uuid")
	if err != nil {
		return nil, err
	}
	_, err = c.lambda.DeleteEventSourceMapping(ctx, &lambda.DeleteEventSourceMappingInput{
		UUID: aws.String(mappingUUID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove event source mapping: %w", err)
	}
	return nil, nil
}

// addPermission grants a service principal permission to invoke a
// function, skipping the call when an equivalent statement already
// exists for the same source ARN.
func (c *Client) addPermission(ctx context.Context, functionName, principal, sourceARN string, sourceAccount string) error {
	exists, err := c.permissionExists(ctx, functionName, sourceARN)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	input := &lambda.AddPermissionInput{
		FunctionName: aws.String(functionName),
		StatementId:  aws.String(uuid.NewString()),
		Action:       aws.String("lambda:InvokeFunction"),
		Principal:    aws.String(principal),
	}
	if sourceARN != "" {
		input.SourceArn = aws.String(sourceARN)
	}
	if sourceAccount != "" {
		input.SourceAccount = aws.String(sourceAccount)
	}

	_, err = c.lambda.AddPermission(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to add permission: %w", err)
	}
	return nil
}

// permissionExists checks the function's resource policy for a
// statement scoped to the given source ARN.
func (c *Client) permissionExists(ctx context.Context, functionName, sourceARN string) (bool, error) {
	if sourceARN == "" {
		return false, nil
	}
	sid, err := c.findPolicySid(ctx, functionName, sourceARN)
	if err != nil {
		return false, err
	}
	return sid != "", nil
}

// findPolicySid returns the statement id scoped to sourceARN in the
// function's resource policy, or "" when no such statement exists.
func (c *Client) findPolicySid(ctx context.Context, functionName, sourceARN string) (string, error) {
	resp, err := c.lambda.GetPolicy(ctx, &lambda.GetPolicyInput{
		FunctionName: aws.String(functionName),
	})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get function policy: %w", err)
	}

	var doc struct {
		Statement []struct {
			Sid       string `json:"Sid"`
			Condition struct {
				ArnLike map[string]string `json:"ArnLike"`
			} `json:"Condition"`
		} `json:"Statement"`
	}
	if err := json.Unmarshal([]byte(aws.ToString(resp.Policy)), &doc); err != nil {
		return "", fmt.Errorf("failed to decode function policy: %w", err)
	}

	for _, stmt := range doc.Statement {
		if stmt.Condition.ArnLike["AWS:SourceArn"] == sourceARN {
			return stmt.Sid, nil
		}
	}
	return "", nil
}

// removePermission removes the policy statement scoped to sourceARN,
// if one exists.
func (c *Client) removePermission(ctx context.Context, functionName, sourceARN string) error {
	sid, err := c.findPolicySid(ctx, functionName, sourceARN)
	if err != nil {
		return err
	}
	if sid == "" {
		return nil
	}
	_, err = c.lambda.RemovePermission(ctx, &lambda.RemovePermissionInput{
		FunctionName: aws.String(functionName),
		StatementId:  aws.String(sid),
	})
	if err != nil {
		return fmt.Errorf("failed to remove permission: %w", err)
	}
	return nil
}
