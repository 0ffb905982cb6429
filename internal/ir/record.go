package ir

// SchemaVersion identifies the on-disk layout of deployed records.
// Records written with an unrecognized schema are rejected rather than
// reinterpreted.
const SchemaVersion = "2.0"

// Backend names the deployment backend that produced a record.
const Backend = "api"

// RecordedResource is one deployed resource's persisted identifiers: a
// flat map carrying "name", "resource_type", and whatever fields the
// executor recorded for it (ARNs, ids, physical names).
type RecordedResource map[string]any

// Name returns the graph-stable resource name.
func (r RecordedResource) Name() string {
	s, _ := r["name"].(string)
	return s
}

// ResourceType returns the persisted type discriminator.
func (r RecordedResource) ResourceType() string {
	s, _ := r["resource_type"].(string)
	return s
}

// String returns the string value of a recorded field, or "" when the
// field is absent or not a string.
func (r RecordedResource) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// DeployedResources is the persisted result of one successful deploy
// of one stage, used by the next run for diffing and sweeping.
type DeployedResources struct {
	Resources     []RecordedResource `json:"resources"`
	SchemaVersion string             `json:"schema_version"`
	Backend       string             `json:"backend"`
}

// NewDeployedResources returns an empty record with the current schema
// markers set.
func NewDeployedResources() *DeployedResources {
	return &DeployedResources{
		Resources:     []RecordedResource{},
		SchemaVersion: SchemaVersion,
		Backend:       Backend,
	}
}

// Lookup returns the recorded resource with the given name.
func (d *DeployedResources) Lookup(name string) (RecordedResource, bool) {
	for _, r := range d.Resources {
		if r.Name() == name {
			return r, true
		}
	}
	return nil, false
}
