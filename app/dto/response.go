package dto

import "encoding/json"

// Component identifies this service in every outbound envelope.
const Component = "enrol"

// Result is the data half of a response envelope: either (true, payload)
// or (false, message). It marshals as a 2-element JSON tuple, matching
// what the session layer forwards to clients.
type Result struct {
	OK    bool
	Value any
}

func Ok(value any) Result {
	return Result{OK: true, Value: value}
}

func Fail(message string) Result {
	return Result{OK: false, Value: message}
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{r.OK, r.Value})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var tuple [2]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[0], &r.OK); err != nil {
		return err
	}
	return json.Unmarshal(tuple[1], &r.Value)
}

// Response is the envelope returned synchronously over HTTP.
type Response struct {
	Component string `json:"component"`
	Action    string `json:"action"`
	Data      Result `json:"data"`
}

func NewResponse(action string, data Result) Response {
	return Response{Component: Component, Action: action, Data: data}
}

// Push is the envelope variant delivered asynchronously through the
// client gateway. Unlike Response, data carries the action's payload
// verbatim: captcha delivery pushes the base64 image bytes as a bare
// string, not a result tuple.
type Push struct {
	Component string `json:"component"`
	Action    string `json:"action"`
	Data      any    `json:"data"`
}

func NewPush(action string, data any) Push {
	return Push{Component: Component, Action: action, Data: data}
}
