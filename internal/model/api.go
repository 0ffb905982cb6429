package model

// Route is one HTTP route exposed by a RestAPI.
type Route struct {
	Path    string
	Methods []string
}

// RestAPI is an API Gateway REST API fronting a lambda function via
// proxy integration. The API definition document is generated by the
// build stage from the declared routes.
type RestAPI struct {
	Name            string
	APIGatewayStage string
	EndpointType    string
	Routes          []Route
	APIDoc          Deferred[map[string]any]
	LambdaFunction  *LambdaFunction
}

func (a *RestAPI) ResourceName() string { return a.Name }
func (a *RestAPI) ResourceType() string { return TypeRestAPI }

func (a *RestAPI) Dependencies() []Resource {
	return []Resource{a.LambdaFunction}
}
