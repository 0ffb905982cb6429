package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wharfctl/wharf/internal/model"
)

func TestResolver_EmptyApplication(t *testing.T) {
	app := &model.Application{Name: "app"}
	ordered := NewResolver().Order(app)
	assert.Empty(t, ordered)
}

func TestResolver_DependenciesBeforeDependents(t *testing.T) {
	fn := testFunction("handler")
	app := &model.Application{Name: "app", Resources: []model.Resource{fn}}

	ordered := NewResolver().Order(app)

	require.Len(t, ordered, 3)
	assert.Same(t, fn.DeploymentPackage, ordered[0])
	assert.Same(t, fn.Role, ordered[1])
	assert.Same(t, fn, ordered[2])
}

func TestResolver_SharedResourceAppearsOnce(t *testing.T) {
	// Two functions intentionally share one role and one package by
	// identity; both must appear exactly once, before either function.
	fn1 := testFunction("first")
	fn2 := testFunction("second")
	fn2.DeploymentPackage = fn1.DeploymentPackage
	fn2.Role = fn1.Role

	app := &model.Application{Name: "app", Resources: []model.Resource{fn1, fn2}}
	ordered := NewResolver().Order(app)

	require.Len(t, ordered, 4)
	assert.Same(t, fn1.DeploymentPackage, ordered[0])
	assert.Same(t, fn1.Role, ordered[1])
	assert.Same(t, fn1, ordered[2])
	assert.Same(t, fn2, ordered[3])
}

func TestResolver_IdenticalValuesDistinctIdentity(t *testing.T) {
	// Structurally identical packages with separate identity are
	// distinct nodes.
	fn1 := testFunction("first")
	fn2 := testFunction("second")

	app := &model.Application{Name: "app", Resources: []model.Resource{fn1, fn2}}
	ordered := NewResolver().Order(app)

	assert.Len(t, ordered, 6)
}

func TestResolver_EveryDependencyStrictlyBefore(t *testing.T) {
	fn1 := testFunction("first")
	fn2 := testFunction("second")
	fn2.Role = fn1.Role
	event := &model.ScheduledEvent{
		Name:               "cron",
		RuleName:           "app-dev-cron",
		ScheduleExpression: "rate(5 minutes)",
		LambdaFunction:     fn2,
	}
	api := &model.RestAPI{
		Name:           "first_rest_api",
		APIDoc:         model.ResolvedValue(map[string]any{}),
		LambdaFunction: fn1,
	}

	app := &model.Application{
		Name:      "app",
		Resources: []model.Resource{fn1, fn2, api, event},
	}
	ordered := NewResolver().Order(app)

	index := make(map[model.Resource]int, len(ordered))
	for i, res := range ordered {
		_, seen := index[res]
		require.False(t, seen, "resource %s appeared twice", res.ResourceName())
		index[res] = i
	}
	for _, res := range ordered {
		for _, dep := range res.Dependencies() {
			assert.Less(t, index[dep], index[res],
				"%s must come after its dependency %s", res.ResourceName(), dep.ResourceName())
		}
	}
}
