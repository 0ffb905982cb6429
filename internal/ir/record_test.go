package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordedResource_Accessors(t *testing.T) {
	record := RecordedResource{
		"name":          "handler",
		"resource_type": "lambda_function",
		"lambda_arn":    "arn:aws:lambda:us-west-2:1:function:app-dev-handler",
		"timeout":       60,
	}

	assert.Equal(t, "handler", record.Name())
	assert.Equal(t, "lambda_function", record.ResourceType())
	assert.Equal(t, "arn:aws:lambda:us-west-2:1:function:app-dev-handler", record.String("lambda_arn"))

	// Absent and non-string fields read as empty strings.
	assert.Empty(t, record.String("missing"))
	assert.Empty(t, record.String("timeout"))
}

func TestDeployedResources_Lookup(t *testing.T) {
	deployed := NewDeployedResources()
	deployed.Resources = []RecordedResource{
		{"name": "a", "resource_type": "lambda_function"},
		{"name": "b", "resource_type": "iam_role"},
	}

	b, ok := deployed.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, "iam_role", b.ResourceType())

	_, ok = deployed.Lookup("c")
	assert.False(t, ok)
}

func TestDeployedResources_JSONShape(t *testing.T) {
	raw, err := json.Marshal(NewDeployedResources())
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"resources": [], "schema_version": "2.0", "backend": "api"}`,
		string(raw))
}
