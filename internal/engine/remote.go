package engine

import (
	"context"
	"fmt"

	"github.com/wharfctl/wharf/internal/awsapi"
	"github.com/wharfctl/wharf/internal/ir"
	"github.com/wharfctl/wharf/internal/model"
)

// ReadClient is the read-only cloud surface the planner needs:
// existence probes and remote snapshots for diffing. The full client
// satisfies it; tests substitute stubs.
type ReadClient interface {
	LambdaFunctionExists(ctx context.Context, name string) (bool, error)
	GetFunctionSnapshot(ctx context.Context, name string) (*awsapi.FunctionSnapshot, error)
	RoleExists(ctx context.Context, name string) (bool, error)
	GetRoleSnapshot(ctx context.Context, name, policyName string) (*awsapi.RoleSnapshot, error)
	RestAPIExists(ctx context.Context, apiID string) (bool, error)
	EventSourceMappingExists(ctx context.Context, mappingUUID string) (bool, error)
}

type existsKey struct {
	resourceType string
	name         string
}

// RemoteState answers "does this resource already exist remotely"
// against live cloud reads, consulting the previous deploy's record
// where existence hinges on a generated identifier. Probe results are
// cached per (type, name) for the lifetime of one planning run.
type RemoteState struct {
	client   ReadClient
	deployed *ir.DeployedResources
	cache    map[existsKey]bool
}

func NewRemoteState(client ReadClient, deployed *ir.DeployedResources) *RemoteState {
	if deployed == nil {
		deployed = ir.NewDeployedResources()
	}
	return &RemoteState{
		client:   client,
		deployed: deployed,
		cache:    make(map[existsKey]bool),
	}
}

// DeployedValues returns the record persisted for this resource by the
// previous deploy, if any.
func (s *RemoteState) DeployedValues(res model.Resource) (ir.RecordedResource, bool) {
	return s.deployed.Lookup(res.ResourceName())
}

// ResourceExists probes for the resource's remote counterpart. The
// answer is cached so that repeated planner queries for a shared
// resource cost one API call.
func (s *RemoteState) ResourceExists(ctx context.Context, res model.Resource) (bool, error) {
	key := existsKey{res.ResourceType(), res.ResourceName()}
	if exists, ok := s.cache[key]; ok {
		return exists, nil
	}
	exists, err := s.probe(ctx, res)
	if err != nil {
		return false, err
	}
	s.cache[key] = exists
	return exists, nil
}

// FunctionSnapshot hydrates the live attributes of an existing
// function for diffing.
func (s *RemoteState) FunctionSnapshot(ctx context.Context, name string) (*awsapi.FunctionSnapshot, error) {
	return s.client.GetFunctionSnapshot(ctx, name)
}

// RoleSnapshot hydrates the live attributes of an existing role for
// diffing.
func (s *RemoteState) RoleSnapshot(ctx context.Context, name, policyName string) (*awsapi.RoleSnapshot, error) {
	return s.client.GetRoleSnapshot(ctx, name, policyName)
}

func (s *RemoteState) probe(ctx context.Context, res model.Resource) (bool, error) {
	switch r := res.(type) {
	case *model.LambdaFunction:
		return s.client.LambdaFunctionExists(ctx, r.FunctionName)

	case *model.ManagedIAMRole:
		return s.client.RoleExists(ctx, r.RoleName)

	case *model.RestAPI:
		// The API id is generated at creation, so without a record
		// there is nothing to probe.
		deployed, ok := s.DeployedValues(r)
		if !ok {
			return false, nil
		}
		return s.client.RestAPIExists(ctx, deployed.String("rest_api_id"))

	case *model.SQSEventSource:
		deployed, ok := s.DeployedValues(r)
		if !ok {
			return false, nil
		}
		return s.client.EventSourceMappingExists(ctx, deployed.String("event_uuid"))

	case *model.ScheduledEvent, *model.S3BucketNotification, *model.SNSSubscription:
		// These have no cheap remote probe; the record is the source of
		// truth, and the planner reconciles configuration drift against
		// the recorded fields.
		_, ok := s.DeployedValues(res)
		return ok, nil

	default:
		return false, fmt.Errorf("internal error: no existence probe for resource type %q", res.ResourceType())
	}
}
