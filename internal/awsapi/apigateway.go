package awsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/apigateway/types"
)

// RestAPIExists reports whether a REST API with the given id exists.
func (c *Client) RestAPIExists(ctx context.Context, apiID string) (bool, error) {
	_, err := c.apigateway.GetRestApi(ctx, &apigateway.GetRestApiInput{
		RestApiId: aws.String(apiID),
	})
	if err != nil {
		var nf *types.NotFoundException
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check rest api %s: %w", apiID, err)
	}
	return true, nil
}

func (c *Client) importRestAPI(ctx context.Context, params map[string]any) (any, error) {
	doc, err := documentParam(params, "api_doc")
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode api document: %w", err)
	}

	resp, err := c.apigateway.ImportRestApi(ctx, &apigateway.ImportRestApiInput{
		Body: body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import rest api: %w", err)
	}
	return aws.ToString(resp.Id), nil
}

func (c *Client) updateRestAPI(ctx context.Context, params map[string]any) (any, error) {
	apiID, err := stringParam(params, "rest_api_id")
	if err != nil {
		return nil, err
	}
	doc, err := documentParam(params, "api_doc")
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode api document: %w", err)
	}

	_, err = c.apigateway.PutRestApi(ctx, &apigateway.PutRestApiInput{
		RestApiId: aws.String(apiID),
		Mode:      types.PutModeOverwrite,
		Body:      body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update rest api: %w", err)
	}
	return nil, nil
}

func (c *Client) deployRestAPI(ctx context.Context, params map[string]any) (any, error) {
	apiID, err := stringParam(params, "rest_api_id")
	if err != nil {
		return nil, err
	}
	stage, err := stringParam(params, "api_gateway_stage")
	if err != nil {
		return nil, err
	}
	_, err = c.apigateway.CreateDeployment(ctx, &apigateway.CreateDeploymentInput{
		RestApiId: aws.String(apiID),
		StageName: aws.String(stage),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to deploy rest api: %w", err)
	}
	return nil, nil
}

func (c *Client) deleteRestAPI(ctx context.Context, params map[string]any) (any, error) {
	apiID, err := stringParam(params, "rest_api_id")
	if err != nil {
		return nil, err
	}
	_, err = c.apigateway.DeleteRestApi(ctx, &apigateway.DeleteRestApiInput{
		RestApiId: aws.String(apiID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete rest api: %w", err)
	}
	return nil, nil
}

func (c *Client) addPermissionForAPIGateway(ctx context.Context, params map[string]any) (any, error) {
	functionName, err := stringParam(params, "function_name")
	if err != nil {
		return nil, err
	}
	region, err := stringParam(params, "region_name")
	if err != nil {
		return nil, err
	}
	accountID, err := stringParam(params, "account_id")
	if err != nil {
		return nil, err
	}
	apiID, err := stringParam(params, "rest_api_id")
	if err != nil {
		return nil, err
	}
	partition := optionalStringParam(params, "partition")
	if partition == "" {
		partition = "aws"
	}

	sourceARN := fmt.Sprintf("arn:%s:execute-api:%s:%s:%s/*", partition, region, accountID, apiID)
	return nil, c.addPermission(ctx, functionName, "apigateway.amazonaws.com", sourceARN, "")
}
