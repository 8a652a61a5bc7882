// Package lambdaproxy serves an http.Handler behind API Gateway HTTP API
// (payload format 2.0) events.
package lambdaproxy

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
)

// HandlerFunc is the signature expected by lambda.Start.
type HandlerFunc func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

// New adapts h to a Lambda handler. Non-UTF-8 response bodies are returned
// base64-encoded.
func New(h http.Handler) HandlerFunc {
	return httpadapter.NewV2(h).ProxyWithContext
}
