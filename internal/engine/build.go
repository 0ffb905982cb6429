package engine

import (
	"fmt"

	"github.com/wharfctl/wharf/internal/model"
)

// Defaults applied to functions that do not declare their own limits.
const (
	DefaultTimeout    int32 = 60
	DefaultMemorySize int32 = 128
)

// BuildStep fills in one family of deferred fields for the resources
// it recognizes and ignores everything else. Steps target disjoint
// fields, so they carry no ordering dependency on each other.
type BuildStep interface {
	Handle(app *model.Application, res model.Resource) error
}

// PackageBuilder produces the deployment artifact for an application
// and returns its path.
type PackageBuilder interface {
	Create(app *model.Application) (string, error)
}

// BuildStage runs every build step over every resource. All work is
// local (packaging, codegen, file reads); a failing step aborts the
// deploy before any remote call happens. After a successful run no
// deferred field is pending.
type BuildStage struct {
	steps []BuildStep
}

func NewBuildStage(steps ...BuildStep) *BuildStage {
	return &BuildStage{steps: steps}
}

// DefaultBuildSteps returns the standard pipeline: default injection,
// packaging, policy generation, and API document generation.
func DefaultBuildSteps(packager PackageBuilder) []BuildStep {
	return []BuildStep{
		&InjectDefaults{},
		&BuildDeploymentPackage{Packager: packager},
		&GeneratePolicies{},
		&GenerateAPIDocs{},
	}
}

func (b *BuildStage) Execute(app *model.Application, ordered []model.Resource) error {
	for _, step := range b.steps {
		for _, res := range ordered {
			if err := step.Handle(app, res); err != nil {
				return fmt.Errorf("build step failed for %s: %w", res.ResourceName(), err)
			}
		}
	}
	return nil
}

// InjectDefaults fills unset function limits with the defaults.
// Declared values are never overwritten.
type InjectDefaults struct{}

func (s *InjectDefaults) Handle(_ *model.Application, res model.Resource) error {
	fn, ok := res.(*model.LambdaFunction)
	if !ok {
		return nil
	}
	if fn.Timeout.Pending() {
		fn.Timeout.Resolve(DefaultTimeout)
	}
	if fn.MemorySize.Pending() {
		fn.MemorySize.Resolve(DefaultMemorySize)
	}
	return nil
}

// BuildDeploymentPackage creates the zip artifact once per deploy and
// fills in its filename. The package is shared by every function, so a
// second DeploymentPackage node with the same identity is already
// resolved.
type BuildDeploymentPackage struct {
	Packager PackageBuilder
}

func (s *BuildDeploymentPackage) Handle(app *model.Application, res model.Resource) error {
	pkg, ok := res.(*model.DeploymentPackage)
	if !ok || !pkg.Filename.Pending() {
		return nil
	}
	filename, err := s.Packager.Create(app)
	if err != nil {
		return fmt.Errorf("packaging failed: %w", err)
	}
	pkg.Filename.Resolve(filename)
	return nil
}

// GeneratePolicies fills in pending policy documents: auto-generated
// policies are derived from the application's declared event sources,
// file-based policies are read from disk.
type GeneratePolicies struct{}

func (s *GeneratePolicies) Handle(app *model.Application, res model.Resource) error {
	switch policy := res.(type) {
	case *model.AutoGenIAMPolicy:
		if policy.Document.Pending() {
			policy.Document.Resolve(generateAppPolicy(app))
		}
	case *model.FileBasedIAMPolicy:
		if policy.Document.Pending() {
			doc, err := loadPolicyFile(policy.Filename)
			if err != nil {
				return err
			}
			policy.Document.Resolve(doc)
		}
	}
	return nil
}

// GenerateAPIDocs fills in pending REST API definition documents from
// the declared routes.
type GenerateAPIDocs struct{}

func (s *GenerateAPIDocs) Handle(_ *model.Application, res model.Resource) error {
	api, ok := res.(*model.RestAPI)
	if !ok || !api.APIDoc.Pending() {
		return nil
	}
	api.APIDoc.Resolve(buildAPIDoc(api))
	return nil
}
