// Package classify turns transport results into success or failure verdicts.
//
// The two protocol styles signal failure differently and the asymmetry is
// kept: resource calls succeed only on 2xx (204 meaning "no content"), while
// invocation calls fail only on status 400 and above. Application-level error
// fields inside an invocation reply body are not inspected.
package classify

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/roach88/sebo/internal/envelope"
	"github.com/roach88/sebo/internal/transport"
)

// Failure names the kind of failure behind an unsuccessful Outcome.
type Failure string

const (
	// FailureNone is the zero value for successful outcomes.
	FailureNone Failure = ""

	// FailureTransport means no response was obtained.
	FailureTransport Failure = "transport"

	// FailureProtocol means a response was obtained but its status
	// indicates failure.
	FailureProtocol Failure = "protocol"
)

// Outcome is the classified result of one executed operation.
// ErrorMessage is set iff Succeeded is false.
type Outcome struct {
	StatusCode   int     `json:"status_code"`
	Body         string  `json:"body"`
	Succeeded    bool    `json:"succeeded"`
	ErrorMessage string  `json:"error_message,omitempty"`
	Failure      Failure `json:"failure,omitempty"`
}

// NoContent reports whether the outcome is an empty successful response.
func (o Outcome) NoContent() bool {
	return o.StatusCode == http.StatusNoContent
}

// Classify decides the outcome of an operation of the given style from the
// transport response or the transport error. Exactly one of resp and err is
// expected to be non-nil.
func Classify(style envelope.Style, resp *transport.Response, err error) Outcome {
	if err != nil || resp == nil {
		return transportFailure(err)
	}

	switch style {
	case envelope.StyleRPC:
		return classifyRPC(resp)
	default:
		return classifyREST(resp)
	}
}

func classifyREST(resp *transport.Response) Outcome {
	if resp.StatusCode == http.StatusNoContent {
		return Outcome{StatusCode: resp.StatusCode, Succeeded: true}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Outcome{StatusCode: resp.StatusCode, Body: resp.Body, Succeeded: true}
	}
	return protocolFailure(resp)
}

func classifyRPC(resp *transport.Response) Outcome {
	if resp.StatusCode >= 400 {
		return protocolFailure(resp)
	}
	return Outcome{StatusCode: resp.StatusCode, Body: resp.Body, Succeeded: true}
}

func protocolFailure(resp *transport.Response) Outcome {
	return Outcome{
		StatusCode:   resp.StatusCode,
		Body:         resp.Body,
		ErrorMessage: fmt.Sprintf("HTTP %d -> %s", resp.StatusCode, resp.Body),
		Failure:      FailureProtocol,
	}
}

func transportFailure(err error) Outcome {
	if err == nil {
		err = errors.New("no response")
	}
	return Outcome{
		ErrorMessage: "transport error: " + err.Error(),
		Failure:      FailureTransport,
	}
}
