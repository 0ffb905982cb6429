package awsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
)

// RoleSnapshot is the live state of a managed IAM role: its ARN, trust
// policy, and the inline policy document this tool maintains.
type RoleSnapshot struct {
	ARN          string
	RoleName     string
	TrustPolicy  map[string]any
	InlinePolicy map[string]any
}

// RoleExists reports whether the named role exists. Absence is an
// expected outcome, not an error.
func (c *Client) RoleExists(ctx context.Context, name string) (bool, error) {
	_, err := c.iam.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
	if err != nil {
		var nf *types.NoSuchEntityException
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check role %s: %w", name, err)
	}
	return true, nil
}

// GetRoleSnapshot hydrates the live attributes of an existing role.
// The inline policy named policyName is included when present.
func (c *Client) GetRoleSnapshot(ctx context.Context, name, policyName string) (*RoleSnapshot, error) {
	resp, err := c.iam.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
	if err != nil {
		return nil, fmt.Errorf("failed to get role %s: %w", name, err)
	}

	trust, err := decodePolicyDocument(aws.ToString(resp.Role.AssumeRolePolicyDocument))
	if err != nil {
		return nil, fmt.Errorf("failed to decode trust policy for %s: %w", name, err)
	}

	snap := &RoleSnapshot{
		ARN:         aws.ToString(resp.Role.Arn),
		RoleName:    aws.ToString(resp.Role.RoleName),
		TrustPolicy: trust,
	}

	policyResp, err := c.iam.GetRolePolicy(ctx, &iam.GetRolePolicyInput{
		RoleName:   aws.String(name),
		PolicyName: aws.String(policyName),
	})
	if err != nil {
		var nf *types.NoSuchEntityException
		if errors.As(err, &nf) {
			return snap, nil
		}
		return nil, fmt.Errorf("failed to get inline policy for %s: %w", name, err)
	}

	inline, err := decodePolicyDocument(aws.ToString(policyResp.PolicyDocument))
	if err != nil {
		return nil, fmt.Errorf("failed to decode inline policy for %s: %w", name, err)
	}
	snap.InlinePolicy = inline

	return snap, nil
}

// decodePolicyDocument parses the URL-encoded JSON document IAM
// returns for role and policy reads.
func decodePolicyDocument(encoded string) (map[string]any, error) {
	raw, err := url.QueryUnescape(encoded)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) createRole(ctx context.Context, params map[string]any) (any, error) {
	name, err := stringParam(params, "name")
	if err != nil {
		return nil, err
	}
	trust, err := documentParam(params, "trust_policy")
	if err != nil {
		return nil, err
	}
	policyName, err := stringParam(params, "policy_name")
	if err != nil {
		return nil, err
	}
	policy, err := documentParam(params, "policy_document")
	if err != nil {
		return nil, err
	}

	trustJSON, err := json.Marshal(trust)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trust policy: %w", err)
	}

	resp, err := c.iam.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(name),
		AssumeRolePolicyDocument: aws.String(string(trustJSON)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	if err := c.putInlinePolicy(ctx, name, policyName, policy); err != nil {
		return nil, err
	}

	return aws.ToString(resp.Role.Arn), nil
}

func (c *Client) putRolePolicy(ctx context.Context, params map[string]any) (any, error) {
	roleName, err := stringParam(params, "role_name")
	if err != nil {
		return nil, err
	}
	policyName, err := stringParam(params, "policy_name")
	if err != nil {
		return nil, err
	}
	policy, err := documentParam(params, "policy_document")
	if err != nil {
		return nil, err
	}
	return nil, c.putInlinePolicy(ctx, roleName, policyName, policy)
}

func (c *Client) putInlinePolicy(ctx context.Context, roleName, policyName string, doc map[string]any) error {
	policyJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode policy document: %w", err)
	}
	_, err = c.iam.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       aws.String(roleName),
		PolicyName:     aws.String(policyName),
		PolicyDocument: aws.String(string(policyJSON)),
	})
	if err != nil {
		return fmt.Errorf("failed to put role policy: %w", err)
	}
	return nil
}

func (c *Client) updateAssumeRolePolicy(ctx context.Context, params map[string]any) (any, error) {
	roleName, err := stringParam(params, "role_name")
	if err != nil {
		return nil, err
	}
	trust, err := documentParam(params, "trust_policy")
	if err != nil {
		return nil, err
	}
	trustJSON, err := json.Marshal(trust)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trust policy: %w", err)
	}
	_, err = c.iam.UpdateAssumeRolePolicy(ctx, &iam.UpdateAssumeRolePolicyInput{
		RoleName:       aws.String(roleName),
		PolicyDocument: aws.String(string(trustJSON)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update trust policy: %w", err)
	}
	return nil, nil
}

// deleteRole removes the role's inline policies before deleting the
// role itself; IAM rejects deletion of roles that still carry them.
func (c *Client) deleteRole(ctx context.Context, params map[string]any) (any, error) {
	name, err := stringParam(params, "name")
	if err != nil {
		return nil, err
	}

	policies, err := c.iam.ListRolePolicies(ctx, &iam.ListRolePoliciesInput{
		RoleName: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list role policies: %w", err)
	}
	for _, policyName := range policies.PolicyNames {
		_, err = c.iam.DeleteRolePolicy(ctx, &iam.DeleteRolePolicyInput{
			RoleName:   aws.String(name),
			PolicyName: aws.String(policyName),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to delete role policy %s: %w", policyName, err)
		}
	}

	_, err = c.iam.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: aws.String(name)})
	if err != nil {
		return nil, fmt.Errorf("failed to delete role: %w", err)
	}
	return nil, nil
}
