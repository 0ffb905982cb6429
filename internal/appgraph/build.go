package appgraph

import (
	"fmt"
	"path/filepath"

	"github.com/wharfctl/wharf/internal/config"
	"github.com/wharfctl/wharf/internal/model"
)

// Build assembles the resource graph for one stage of a project.
//
// The deployment package and the execution role are single objects
// shared by every function; sharing is by identity, so the dependency
// resolver collapses them to one node and the planner emits one create
// for each.
func Build(cfg *config.Config, stageName string) *model.Application {
	stage := cfg.Stage(stageName)

	pkg := &model.DeploymentPackage{
		Name:     "deployment_package",
		Filename: model.PendingValue[string](),
	}
	role := buildRole(cfg, stage, stageName)

	app := &model.Application{Name: cfg.AppName}
	for _, fn := range cfg.Functions {
		function := buildFunction(cfg, stage, stageName, fn, pkg, role)
		app.Resources = append(app.Resources, function)

		if len(fn.Routes) > 0 {
			app.Resources = append(app.Resources, buildRestAPI(stage, fn, function))
		}
		for _, event := range fn.ScheduledEvents {
			app.Resources = append(app.Resources, &model.ScheduledEvent{
				Name:               event.Name,
				RuleName:           fmt.Sprintf("%s-%s-%s", cfg.AppName, stageName, event.Name),
				ScheduleExpression: event.Schedule,
				LambdaFunction:     function,
			})
		}
		for _, event := range fn.S3Events {
			app.Resources = append(app.Resources, &model.S3BucketNotification{
				Name:           event.Name,
				Bucket:         event.Bucket,
				Events:         event.Events,
				Prefix:         event.Prefix,
				Suffix:         event.Suffix,
				LambdaFunction: function,
			})
		}
		for _, event := range fn.SNSEvents {
			app.Resources = append(app.Resources, &model.SNSSubscription{
				Name:           event.Name,
				Topic:          event.Topic,
				LambdaFunction: function,
			})
		}
		for _, event := range fn.SQSEvents {
			batchSize := event.BatchSize
			if batchSize == 0 {
				batchSize = 10
			}
			app.Resources = append(app.Resources, &model.SQSEventSource{
				Name:                  event.Name,
				Queue:                 event.Queue,
				BatchSize:             batchSize,
				MaximumBatchingWindow: event.MaximumBatchingWindow,
				LambdaFunction:        function,
			})
		}
	}
	return app
}

func buildRole(cfg *config.Config, stage *config.StageConfig, stageName string) model.IAMRole {
	if stage.IAMRoleARN != "" {
		return &model.PreCreatedIAMRole{
			Name:    "default-role",
			RoleARN: stage.IAMRoleARN,
		}
	}

	var policy model.IAMPolicy
	if stage.IAMPolicyFile != "" {
		policy = &model.FileBasedIAMPolicy{
			Name:     "default-role-policy",
			Filename: filepath.Join(cfg.Dir, stage.IAMPolicyFile),
			Document: model.PendingValue[map[string]any](),
		}
	} else {
		policy = &model.AutoGenIAMPolicy{
			Name:     "default-role-policy",
			Document: model.PendingValue[map[string]any](),
		}
	}

	return &model.ManagedIAMRole{
		Name:        "default-role",
		RoleName:    fmt.Sprintf("%s-%s", cfg.AppName, stageName),
		TrustPolicy: model.LambdaTrustPolicy(),
		Policy:      policy,
	}
}

func buildFunction(cfg *config.Config, stage *config.StageConfig, stageName string,
	fn *config.FunctionConfig, pkg *model.DeploymentPackage, role model.IAMRole) *model.LambdaFunction {

	memory := model.PendingValue[int32]()
	if fn.MemorySize != nil {
		memory = model.ResolvedValue(*fn.MemorySize)
	} else if stage.LambdaMemorySize != nil {
		memory = model.ResolvedValue(*stage.LambdaMemorySize)
	}

	timeout := model.PendingValue[int32]()
	if fn.Timeout != nil {
		timeout = model.ResolvedValue(*fn.Timeout)
	} else if stage.LambdaTimeout != nil {
		timeout = model.ResolvedValue(*stage.LambdaTimeout)
	}

	env := make(map[string]string, len(stage.EnvironmentVariables)+len(fn.EnvironmentVariables))
	for k, v := range stage.EnvironmentVariables {
		env[k] = v
	}
	for k, v := range fn.EnvironmentVariables {
		env[k] = v
	}

	return &model.LambdaFunction{
		Name:                 fn.Name,
		FunctionName:         fmt.Sprintf("%s-%s-%s", cfg.AppName, stageName, fn.Name),
		DeploymentPackage:    pkg,
		Role:                 role,
		Runtime:              cfg.FunctionRuntime(fn),
		Handler:              fn.Handler,
		MemorySize:           memory,
		Timeout:              timeout,
		EnvironmentVariables: env,
		Tags:                 stage.Tags,
		SecurityGroupIDs:     fn.SecurityGroupIDs,
		SubnetIDs:            fn.SubnetIDs,
		Layers:               fn.Layers,
		ReservedConcurrency:  fn.ReservedConcurrency,
	}
}

func buildRestAPI(stage *config.StageConfig, fn *config.FunctionConfig, function *model.LambdaFunction) *model.RestAPI {
	gatewayStage := stage.APIGatewayStage
	if gatewayStage == "" {
		gatewayStage = "api"
	}

	routes := make([]model.Route, 0, len(fn.Routes))
	for _, route := range fn.Routes {
		routes = append(routes, model.Route{Path: route.Path, Methods: route.Methods})
	}

	return &model.RestAPI{
		Name:            fn.Name + "_rest_api",
		APIGatewayStage: gatewayStage,
		Routes:          routes,
		APIDoc:          model.PendingValue[map[string]any](),
		LambdaFunction:  function,
	}
}
