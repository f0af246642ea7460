package envelope

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/roach88/sebo/internal/ir"
)

// Style selects the protocol convention an Operation is issued with.
type Style string

const (
	// StyleREST addresses a resource path with GET, POST or DELETE.
	StyleREST Style = "rest"

	// StyleRPC posts an invocation envelope to the fixed /invoke endpoint.
	StyleRPC Style = "rpc"
)

// ErrorPolicy decides whether a failed step halts the run.
type ErrorPolicy string

const (
	// Propagate halts the run at the first failed step. It is the default.
	Propagate ErrorPolicy = "propagate"

	// Continue records the failed step and proceeds to the next one.
	// Used for steps that are expected to fail.
	Continue ErrorPolicy = "continue"
)

// InvokePath is the endpoint every StyleRPC operation is posted to.
const InvokePath = "/invoke"

// supportedMethods lists the HTTP methods a StyleREST operation may use.
var supportedMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete}

// Operation is a logical request to issue against the remote service.
//
// Exactly one of Path (StyleREST) or ObjectRef+MethodID (StyleRPC) is set.
// For StyleRPC, Payload holds the positional arguments as an ir.Array and
// Kwargs the keyword arguments.
type Operation struct {
	// Name is a human-readable label used in logs and reports.
	Name string `json:"name,omitempty"`

	Style  Style  `json:"style"`
	Method string `json:"method"`

	// Path is the resource path including any query string (StyleREST).
	Path string `json:"path,omitempty"`

	// ObjectRef and MethodID address a remote service method (StyleRPC).
	ObjectRef string `json:"object_reference,omitempty"`
	MethodID  string `json:"method_id,omitempty"`

	// Payload is the request body (StyleREST) or positional arguments (StyleRPC).
	// Nil means absent.
	Payload ir.Value `json:"payload,omitempty"`

	// Kwargs holds keyword arguments (StyleRPC only). Nil means empty.
	Kwargs ir.Object `json:"kwargs,omitempty"`

	// Policy is the error policy. The zero value means Propagate.
	Policy ErrorPolicy `json:"policy,omitempty"`
}

// Get creates a StyleREST GET operation.
func Get(path string) Operation {
	return Operation{Style: StyleREST, Method: http.MethodGet, Path: path}
}

// Post creates a StyleREST POST operation. A nil body is sent as {}.
func Post(path string, body ir.Value) Operation {
	return Operation{Style: StyleREST, Method: http.MethodPost, Path: path, Payload: body}
}

// Delete creates a StyleREST DELETE operation.
func Delete(path string) Operation {
	return Operation{Style: StyleREST, Method: http.MethodDelete, Path: path}
}

// Invoke creates a StyleRPC operation calling methodID on objectRef with
// positional arguments.
func Invoke(objectRef, methodID string, args ...ir.Value) Operation {
	return Operation{
		Style:     StyleRPC,
		Method:    http.MethodPost,
		ObjectRef: objectRef,
		MethodID:  methodID,
		Payload:   ir.NewArray(args...),
	}
}

// Named returns a copy of op labelled name.
func (op Operation) Named(name string) Operation {
	op.Name = name
	return op
}

// WithKwargs returns a copy of op with keyword arguments set.
func (op Operation) WithKwargs(kwargs ir.Object) Operation {
	op.Kwargs = kwargs
	return op
}

// WithPolicy returns a copy of op with the given error policy.
func (op Operation) WithPolicy(p ErrorPolicy) Operation {
	op.Policy = p
	return op
}

// ContinueOnError is shorthand for WithPolicy(Continue).
func (op Operation) ContinueOnError() Operation {
	return op.WithPolicy(Continue)
}

// EffectivePolicy resolves the zero value to Propagate.
func (op Operation) EffectivePolicy() ErrorPolicy {
	if op.Policy == "" {
		return Propagate
	}
	return op.Policy
}

// Target describes what the operation addresses, for logs and reports:
// "GET /produtos" or "CatalogoService.listar".
func (op Operation) Target() string {
	if op.Style == StyleRPC {
		return op.ObjectRef + "." + op.MethodID
	}
	return strings.ToUpper(op.Method) + " " + op.Path
}

// Label returns Name when set, Target otherwise.
func (op Operation) Label() string {
	if op.Name != "" {
		return op.Name
	}
	return op.Target()
}

// Validate checks the construction-time invariants of op.
// Returns a *ScriptError describing the first violation found.
func (op Operation) Validate() error {
	switch op.Policy {
	case "", Propagate, Continue:
	default:
		return newScriptError(ErrCodeInvalidPolicy, "policy",
			fmt.Sprintf("unknown error policy %q (want %q or %q)", op.Policy, Propagate, Continue))
	}

	switch op.Style {
	case StyleREST:
		return op.validateREST()
	case StyleRPC:
		return op.validateRPC()
	case "":
		return newScriptError(ErrCodeMissingField, "style", "style is required")
	default:
		return newScriptError(ErrCodeUnsupportedStyle, "style",
			fmt.Sprintf("unknown style %q (want %q or %q)", op.Style, StyleREST, StyleRPC))
	}
}

func (op Operation) validateREST() error {
	if op.ObjectRef != "" || op.MethodID != "" {
		return newScriptError(ErrCodeConflictingTarget, "object_reference",
			"rest operations address a path, not an object reference")
	}
	if op.Path == "" {
		return newScriptError(ErrCodeMissingField, "path", "path is required for rest operations")
	}
	if !strings.HasPrefix(op.Path, "/") {
		return newScriptError(ErrCodeInvalidPath, "path", fmt.Sprintf("path %q must start with /", op.Path))
	}

	method := strings.ToUpper(op.Method)
	if !isSupportedMethod(method) {
		return newScriptError(ErrCodeUnsupportedMethod, "method",
			fmt.Sprintf("method %q is not one of %v", op.Method, supportedMethods))
	}
	if op.Payload != nil && method != http.MethodPost {
		return newScriptError(ErrCodeInvalidPayload, "payload",
			fmt.Sprintf("%s requests carry no body", method))
	}
	if len(op.Kwargs) > 0 {
		return newScriptError(ErrCodeInvalidPayload, "kwargs", "kwargs are only valid for rpc operations")
	}
	return nil
}

func (op Operation) validateRPC() error {
	if op.Path != "" {
		return newScriptError(ErrCodeConflictingTarget, "path",
			"rpc operations address an object reference, not a path")
	}
	if op.ObjectRef == "" {
		return newScriptError(ErrCodeMissingField, "object_reference", "object reference is required for rpc operations")
	}
	if op.MethodID == "" {
		return newScriptError(ErrCodeMissingField, "method_id", "method id is required for rpc operations")
	}
	if op.Method != "" && strings.ToUpper(op.Method) != http.MethodPost {
		return newScriptError(ErrCodeUnsupportedMethod, "method",
			fmt.Sprintf("rpc operations are always POST, got %q", op.Method))
	}
	if op.Payload != nil {
		if _, ok := op.Payload.(ir.Array); !ok {
			return newScriptError(ErrCodeInvalidPayload, "payload",
				fmt.Sprintf("rpc positional arguments must be an array, got %T", op.Payload))
		}
	}
	return nil
}

// ParsePolicy converts a script value to an ErrorPolicy.
// The empty string yields Propagate.
func ParsePolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Propagate:
		return Propagate, nil
	case Continue:
		return Continue, nil
	default:
		return "", newScriptError(ErrCodeInvalidPolicy, "policy",
			fmt.Sprintf("unknown error policy %q (want %q or %q)", s, Propagate, Continue))
	}
}

func isSupportedMethod(method string) bool {
	for _, m := range supportedMethods {
		if m == method {
			return true
		}
	}
	return false
}
