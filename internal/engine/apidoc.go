package engine

import (
	"strings"

	"github.com/wharfctl/wharf/internal/ir"
	"github.com/wharfctl/wharf/internal/model"
)

// buildAPIDoc generates the API Gateway import document for a REST
// API's declared routes, wiring every method to the fronting function
// through proxy integration.
//
// The integration URI needs the function's ARN and the deployment
// region, neither of which is known locally, so those slots are left
// as StringFormat templates that the executor substitutes from the
// variable pool right before the import call.
func buildAPIDoc(api *model.RestAPI) map[string]any {
	paths := make(map[string]any, len(api.Routes))
	for _, route := range api.Routes {
		methods := make(map[string]any, len(route.Methods))
		for _, method := range route.Methods {
			methods[strings.ToLower(method)] = map[string]any{
				"responses": map[string]any{
					"200": map[string]any{"description": "200 response"},
				},
				"x-amazon-apigateway-integration": integration(api.LambdaFunction),
			}
		}
		paths[route.Path] = methods
	}

	doc := map[string]any{
		"swagger": "2.0",
		"info": map[string]any{
			"title":   api.Name,
			"version": "1.0",
		},
		"schemes": []any{"https"},
		"paths":   paths,
	}
	if api.EndpointType != "" {
		doc["x-amazon-apigateway-endpoint-configuration"] = map[string]any{
			"types": []any{api.EndpointType},
		}
	}
	return doc
}

func integration(fn *model.LambdaFunction) map[string]any {
	arnVar := functionARNVar(fn)
	return map[string]any{
		"type":                "aws_proxy",
		"httpMethod":          "POST",
		"passthroughBehavior": "when_no_match",
		"uri": ir.StringFormat{
			Template: "arn:{partition}:apigateway:{region_name}:lambda:path" +
				"/2015-03-31/functions/{" + arnVar + "}/invocations",
			Variables: []string{"partition", "region_name", arnVar},
		},
	}
}
