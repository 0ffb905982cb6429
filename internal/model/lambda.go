package model

// DeploymentPackage is the zip artifact shared by every function of an
// application. Its filename is filled in by the build stage.
type DeploymentPackage struct {
	Name     string
	Filename Deferred[string]
}

func (p *DeploymentPackage) ResourceName() string     { return p.Name }
func (p *DeploymentPackage) ResourceType() string     { return TypeDeploymentPackage }
func (p *DeploymentPackage) Dependencies() []Resource { return nil }

// LambdaFunction is a managed function together with everything needed
// to create or converge it remotely.
type LambdaFunction struct {
	Name         string
	FunctionName string // physical name, e.g. app-stage-handler

	DeploymentPackage *DeploymentPackage
	Role              IAMRole

	Runtime              string
	Handler              string
	MemorySize           Deferred[int32]
	Timeout              Deferred[int32]
	EnvironmentVariables map[string]string
	Tags                 map[string]string
	SecurityGroupIDs     []string
	SubnetIDs            []string
	Layers               []string

	// nil means no reserved concurrency; converging to nil removes an
	// existing limit.
	ReservedConcurrency *int32
}

func (f *LambdaFunction) ResourceName() string { return f.Name }
func (f *LambdaFunction) ResourceType() string { return TypeLambdaFunction }

func (f *LambdaFunction) Dependencies() []Resource {
	return []Resource{f.DeploymentPackage, f.Role}
}
