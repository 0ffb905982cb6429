package model

// Application is the root of the resource graph for one deploy
// attempt. It is never planned itself; traversal starts at its
// declared children and follows their dependency order.
type Application struct {
	Name      string
	Resources []Resource
}

func (a *Application) ResourceName() string { return a.Name }
func (a *Application) ResourceType() string { return "application" }

func (a *Application) Dependencies() []Resource {
	return a.Resources
}
