package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/famsplit/pkg/api"
)

// EventServiceName is the fully-qualified name of the EventService service.
const EventServiceName = "famsplit.v1.EventService"

// Procedure paths served under EventServiceName.
const (
	EventServiceWatchProcedure = "/famsplit.v1.EventService/Watch"
)

// EventServiceHandler is implemented by the famsplit server.
type EventServiceHandler interface {
	Watch(context.Context, *connect.Request[api.WatchRequest], *connect.ServerStream[api.WatchResponse]) error
}

// NewEventServiceHandler builds an HTTP handler for svc, returning the path to
// mount it on. The JSON codec is always registered.
func NewEventServiceHandler(svc EventServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{api.WithJSON()}, opts...)
	watchHandler := connect.NewServerStreamHandler(EventServiceWatchProcedure, svc.Watch, opts...)
	return "/famsplit.v1.EventService/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case EventServiceWatchProcedure:
			watchHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// EventServiceClient is a client for EventService.
type EventServiceClient interface {
	Watch(context.Context, *connect.Request[api.WatchRequest]) (*connect.ServerStreamForClient[api.WatchResponse], error)
}

// NewEventServiceClient creates a client for the service mounted at baseURL
// (e.g. http://localhost:8080). Messages are sent as JSON.
func NewEventServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) EventServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{api.WithJSON()}, opts...)
	return &eventServiceClient{
		watch: connect.NewClient[api.WatchRequest, api.WatchResponse](httpClient, baseURL+EventServiceWatchProcedure, opts...),
	}
}

type eventServiceClient struct {
	watch *connect.Client[api.WatchRequest, api.WatchResponse]
}

func (c *eventServiceClient) Watch(ctx context.Context, req *connect.Request[api.WatchRequest]) (*connect.ServerStreamForClient[api.WatchResponse], error) {
	return c.watch.CallServerStream(ctx, req)
}
