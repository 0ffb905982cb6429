package ir

// Instruction is one executable step of a deployment plan. The variant
// set is closed: every consumer (executor, sweeper, plan renderer)
// switches exhaustively over the types below, and an unhandled variant
// is a programming defect rather than a runtime condition.
//
// Instructions are always handled through pointers so that a Plan can
// attach progress messages keyed by instruction identity.
type Instruction interface {
	isInstruction()
}

// APICall invokes a named method on the cloud client. Params may
// contain literals, Variable references, StringFormat templates, and
// arbitrarily nested maps and lists of those; everything is resolved
// against the variable pool immediately before the call. When
// OutputVar is set the method's return value is stored under it.
type APICall struct {
	Method    string
	Params    map[string]any
	OutputVar string
}

// StoreValue binds a resolved value to a name in the variable pool.
type StoreValue struct {
	Name  string
	Value any
}

// StoreMultipleValue appends a resolved value to the sequence bound to
// Name, initializing the sequence on first use.
type StoreMultipleValue struct {
	Name  string
	Value any
}

// CopyVariable aliases one pool entry under a second name.
type CopyVariable struct {
	FromVar string
	ToVar   string
}

// RecordResourceVariable records a deployed-resource field whose value
// is only known at execution time, read from the variable pool.
type RecordResourceVariable struct {
	ResourceType string
	ResourceName string
	Field        string
	VariableName string
}

// RecordResourceValue records a deployed-resource field with a value
// already known at plan time.
type RecordResourceValue struct {
	ResourceType string
	ResourceName string
	Field        string
	Value        any
}

// JPSearch runs a JMESPath expression against a stored value and binds
// the result to OutputVar.
type JPSearch struct {
	Expression string
	InputVar   string
	OutputVar  string
}

// BuiltinFunction invokes one of the fixed registry of pure builtin
// computations (parse_arn, interrogate_profile, service_principal).
type BuiltinFunction struct {
	Name      string
	Args      []any
	OutputVar string
}

func (*APICall) isInstruction()                {}
func (*StoreValue) isInstruction()             {}
func (*StoreMultipleValue) isInstruction()     {}
func (*CopyVariable) isInstruction()           {}
func (*RecordResourceVariable) isInstruction() {}
func (*RecordResourceValue) isInstruction()    {}
func (*JPSearch) isInstruction()               {}
func (*BuiltinFunction) isInstruction()        {}

// Plan is an ordered list of instructions plus a sparse map of
// human-readable progress messages keyed by instruction identity.
type Plan struct {
	Instructions []Instruction
	Messages     map[Instruction]string
}

func NewPlan() *Plan {
	return &Plan{
		Messages: make(map[Instruction]string),
	}
}

// Append adds instructions to the plan. When msg is non-empty it is
// attached to the first appended instruction.
func (p *Plan) Append(msg string, instrs ...Instruction) {
	if len(instrs) == 0 {
		return
	}
	if msg != "" {
		p.Messages[instrs[0]] = msg
	}
	p.Instructions = append(p.Instructions, instrs...)
}
