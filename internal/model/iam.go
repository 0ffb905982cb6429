package model

// IAMRole is the role a function executes as: either managed by this
// tool or pre-created by the user and referenced by ARN.
type IAMRole interface {
	Resource
	iamRole()
}

// IAMPolicy is the inline policy attached to a managed role. The
// document is filled in by the build stage, either generated or read
// from a user-supplied file.
type IAMPolicy interface {
	Resource
	PolicyDocument() Deferred[map[string]any]
}

// AutoGenIAMPolicy is a policy document generated by the build stage
// from the application's declared event sources.
type AutoGenIAMPolicy struct {
	Name     string
	Document Deferred[map[string]any]
}

func (p *AutoGenIAMPolicy) ResourceName() string { return p.Name }
func (p *AutoGenIAMPolicy) ResourceType() string { return TypeIAMPolicy }
func (p *AutoGenIAMPolicy) Dependencies() []Resource { return nil }
func (p *AutoGenIAMPolicy) PolicyDocument() Deferred[map[string]any] { return p.Document }

// FileBasedIAMPolicy is a policy document loaded from a JSON file in
// the project directory.
type FileBasedIAMPolicy struct {
	Name     string
	Filename string
	Document Deferred[map[string]any]
}

func (p *FileBasedIAMPolicy) ResourceName() string { return p.Name }
func (p *FileBasedIAMPolicy) ResourceType() string { return TypeIAMPolicy }
func (p *FileBasedIAMPolicy) Dependencies() []Resource { return nil }
func (p *FileBasedIAMPolicy) PolicyDocument() Deferred[map[string]any] { return p.Document }

// ManagedIAMRole is an IAM role created and converged by this tool.
type ManagedIAMRole struct {
	Name        string
	RoleName    string // physical IAM role name
	TrustPolicy map[string]any
	Policy      IAMPolicy
}

func (r *ManagedIAMRole) ResourceName() string { return r.Name }
func (r *ManagedIAMRole) ResourceType() string { return TypeIAMRole }
func (r *ManagedIAMRole) iamRole()             {}

func (r *ManagedIAMRole) Dependencies() []Resource {
	return []Resource{r.Policy}
}

// PreCreatedIAMRole references a role the user manages outside this
// tool. It produces no instructions; its ARN is embedded literally
// wherever dependents need it.
type PreCreatedIAMRole struct {
	Name    string
	RoleARN string
}

func (r *PreCreatedIAMRole) ResourceName() string { return r.Name }
func (r *PreCreatedIAMRole) ResourceType() string { return TypeIAMRole }
func (r *PreCreatedIAMRole) Dependencies() []Resource { return nil }
func (r *PreCreatedIAMRole) iamRole()                 {}

// LambdaTrustPolicy is the assume-role document for lambda-executed
// managed roles.
func LambdaTrustPolicy() map[string]any {
	return map[string]any{
		"Version": "2012-10-17",
		"Statement": []any{
			map[string]any{
				"Sid":    "",
				"Effect": "Allow",
				"Principal": map[string]any{
					"Service": "lambda.amazonaws.com",
				},
				"Action": "sts:AssumeRole",
			},
		},
	}
}
