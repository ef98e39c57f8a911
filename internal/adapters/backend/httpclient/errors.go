package httpclient

import "errors"

// Transport-level failures. Backend rejections are returned as the model
// sentinels instead.
var (
	ErrTransport       = errors.New("backend unreachable")
	ErrStatus          = errors.New("unexpected backend response")
	ErrRequestInFlight = errors.New("request still running on the backend")
)
