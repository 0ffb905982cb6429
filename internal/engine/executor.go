package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmespath/go-jmespath"

	"github.com/wharfctl/wharf/internal/ir"
	"github.com/wharfctl/wharf/internal/logging"
)

// CloudClient is the executor's view of the cloud collaborator: a
// string-dispatched method surface for plan instructions plus profile
// interrogation for the interrogate_profile builtin.
type CloudClient interface {
	CallMethod(ctx context.Context, method string, params map[string]any) (any, error)
	CallerIdentity(ctx context.Context) (map[string]any, error)
}

// UI receives progress messages as instructions execute.
type UI interface {
	Write(msg string)
}

// Executor runs a plan instruction by instruction, maintaining the
// variable pool and the accumulated deployed-resource records. A fresh
// executor is used per run; state does not carry across plans.
type Executor struct {
	client CloudClient
	ui     UI

	pool           map[string]any
	resourceValues []ir.RecordedResource
	resourceIndex  map[string]int
}

func NewExecutor(client CloudClient, ui UI) *Executor {
	return &Executor{
		client:        client,
		ui:            ui,
		pool:          make(map[string]any),
		resourceIndex: make(map[string]int),
	}
}

// Execute runs every instruction in order, stopping at the first
// failure. Instructions already executed are not rolled back; the
// caller persists whatever records accumulated so the next run can
// reconcile.
func (e *Executor) Execute(ctx context.Context, plan *ir.Plan) error {
	for _, instr := range plan.Instructions {
		if msg, ok := plan.Messages[instr]; ok && e.ui != nil {
			e.ui.Write(msg)
		}
		if err := e.execute(ctx, instr); err != nil {
			return err
		}
	}
	return nil
}

// ResourceValues returns the deployed-resource records accumulated so
// far, in first-recorded order.
func (e *Executor) ResourceValues() []ir.RecordedResource {
	return e.resourceValues
}

func (e *Executor) execute(ctx context.Context, instr ir.Instruction) error {
	switch in := instr.(type) {
	case *ir.APICall:
		params, err := resolveParams(in.Params, e.pool)
		if err != nil {
			var unresolved *UnresolvedValueError
			if errors.As(err, &unresolved) {
				unresolved.Method = in.Method
			}
			return err
		}
		logging.Debug("calling client method", "method", in.Method)
		result, err := e.client.CallMethod(ctx, in.Method, params)
		if err != nil {
			return err
		}
		if in.OutputVar != "" {
			e.pool[in.OutputVar] = result
		}
		return nil

	case *ir.StoreValue:
		value, err := resolveValue(in.Name, in.Value, e.pool)
		if err != nil {
			return err
		}
		e.pool[in.Name] = value
		return nil

	case *ir.StoreMultipleValue:
		value, err := resolveValue(in.Name, in.Value, e.pool)
		if err != nil {
			return err
		}
		existing, _ := e.pool[in.Name].([]any)
		e.pool[in.Name] = append(existing, value)
		return nil

	case *ir.CopyVariable:
		value, ok := e.pool[in.FromVar]
		if !ok {
			return fmt.Errorf("reference to undefined variable %q", in.FromVar)
		}
		e.pool[in.ToVar] = value
		return nil

	case *ir.RecordResourceVariable:
		value, ok := e.pool[in.VariableName]
		if !ok {
			return fmt.Errorf("reference to undefined variable %q", in.VariableName)
		}
		e.recordResourceValue(in.ResourceType, in.ResourceName, in.Field, value)
		return nil

	case *ir.RecordResourceValue:
		e.recordResourceValue(in.ResourceType, in.ResourceName, in.Field, in.Value)
		return nil

	case *ir.JPSearch:
		input, ok := e.pool[in.InputVar]
		if !ok {
			return fmt.Errorf("reference to undefined variable %q", in.InputVar)
		}
		result, err := jmespath.Search(in.Expression, input)
		if err != nil {
			return fmt.Errorf("jmespath %q: %w", in.Expression, err)
		}
		e.pool[in.OutputVar] = result
		return nil

	case *ir.BuiltinFunction:
		args := make([]any, len(in.Args))
		for i, arg := range in.Args {
			resolved, err := resolveValue(in.Name, arg, e.pool)
			if err != nil {
				return err
			}
			args[i] = resolved
		}
		result, err := e.callBuiltin(ctx, in.Name, args)
		if err != nil {
			return err
		}
		if in.OutputVar != "" {
			e.pool[in.OutputVar] = result
		}
		return nil

	default:
		return fmt.Errorf("internal error: unknown instruction type %T", instr)
	}
}

// recordResourceValue merges a field into the record for the named
// resource, creating the record on first mention. Merging by name lets
// several instructions contribute fields to one resource, and lets a
// later instruction overwrite an earlier field.
func (e *Executor) recordResourceValue(resourceType, name, field string, value any) {
	if idx, ok := e.resourceIndex[name]; ok {
		e.resourceValues[idx][field] = value
		e.resourceValues[idx]["resource_type"] = resourceType
		return
	}
	record := ir.RecordedResource{
		"name":          name,
		"resource_type": resourceType,
		field:           value,
	}
	e.resourceIndex[name] = len(e.resourceValues)
	e.resourceValues = append(e.resourceValues, record)
}
