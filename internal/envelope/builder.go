package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/roach88/sebo/internal/ir"
)

// ContentTypeJSON is the media type of every body this package produces.
const ContentTypeJSON = "application/json"

// emptyObjectBody is sent for a POST without payload.
var emptyObjectBody = []byte("{}")

// Request is a fully specified HTTP request ready for the transport.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte // nil means no body
}

// HasBody reports whether the request carries a body.
func (r Request) HasBody() bool {
	return r.Body != nil
}

// RPCEnvelope is the wire representation of an invocation-style operation.
type RPCEnvelope struct {
	RequestID       int64     `json:"requestId"`
	ObjectReference string    `json:"objectReference"`
	MethodID        string    `json:"methodId"`
	Arguments       Arguments `json:"arguments"`
}

// Arguments carries positional and keyword arguments.
// Both fields always serialize, as [] and {} when empty.
type Arguments struct {
	Args   ir.Array  `json:"args"`
	Kwargs ir.Object `json:"kwargs"`
}

// NewRPCEnvelope builds the envelope for a StyleRPC operation.
func NewRPCEnvelope(op Operation, requestID int64) RPCEnvelope {
	args, _ := op.Payload.(ir.Array)
	if args == nil {
		args = ir.Array{}
	}
	kwargs := op.Kwargs
	if kwargs == nil {
		kwargs = ir.Object{}
	}
	return RPCEnvelope{
		RequestID:       requestID,
		ObjectReference: op.ObjectRef,
		MethodID:        op.MethodID,
		Arguments:       Arguments{Args: args, Kwargs: kwargs},
	}
}

// Builder produces requests relative to one base endpoint.
type Builder struct {
	baseURL string
}

// NewBuilder creates a builder for the given base endpoint
// (e.g. "http://127.0.0.1:8000"). A trailing slash is ignored.
func NewBuilder(baseURL string) *Builder {
	return &Builder{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// BaseURL returns the normalized base endpoint.
func (b *Builder) BaseURL() string {
	return b.baseURL
}

// Build produces the request for op. requestID is only used for StyleRPC.
//
// Build is pure. It assumes op passed Validate; ir values are a sealed set,
// so serialization of a validated operation cannot fail.
func (b *Builder) Build(op Operation, requestID int64) Request {
	if op.Style == StyleRPC {
		return b.buildRPC(op, requestID)
	}
	return b.buildREST(op)
}

func (b *Builder) buildREST(op Operation) Request {
	method := strings.ToUpper(op.Method)
	req := Request{
		Method: method,
		URL:    b.baseURL + op.Path,
		Header: http.Header{},
	}
	req.Header.Set("Accept", ContentTypeJSON)

	if method == http.MethodPost {
		if op.Payload == nil {
			req.Body = emptyObjectBody
		} else {
			req.Body = mustMarshal(ir.Marshal(op.Payload))
		}
		req.Header.Set("Content-Type", ContentTypeJSON)
	}
	return req
}

func (b *Builder) buildRPC(op Operation, requestID int64) Request {
	req := Request{
		Method: http.MethodPost,
		URL:    b.baseURL + InvokePath,
		Header: http.Header{},
		Body:   mustMarshal(MarshalEnvelope(NewRPCEnvelope(op, requestID))),
	}
	req.Header.Set("Accept", ContentTypeJSON)
	req.Header.Set("Content-Type", ContentTypeJSON)
	return req
}

// MarshalEnvelope serializes env without HTML escaping.
func MarshalEnvelope(env RPCEnvelope) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

func mustMarshal(data []byte, err error) []byte {
	if err != nil {
		panic(fmt.Sprintf("envelope: serializing a validated operation failed: %v", err))
	}
	return data
}
