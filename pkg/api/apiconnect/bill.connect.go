package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/famsplit/pkg/api"
)

// BillServiceName is the fully-qualified name of the BillService service.
const BillServiceName = "famsplit.v1.BillService"

// Procedure paths served under BillServiceName.
const (
	BillServicePublishBillProcedure   = "/famsplit.v1.BillService/PublishBill"
	BillServiceAddItemProcedure       = "/famsplit.v1.BillService/AddItem"
	BillServiceGetBillProcedure       = "/famsplit.v1.BillService/GetBill"
	BillServiceRecordPaymentProcedure = "/famsplit.v1.BillService/RecordPayment"
	BillServiceGetDashboardProcedure  = "/famsplit.v1.BillService/GetDashboard"
)

// BillServiceHandler is implemented by the famsplit server.
type BillServiceHandler interface {
	PublishBill(context.Context, *connect.Request[api.PublishBillRequest]) (*connect.Response[api.PublishBillResponse], error)
	AddItem(context.Context, *connect.Request[api.AddItemRequest]) (*connect.Response[api.AddItemResponse], error)
	GetBill(context.Context, *connect.Request[api.GetBillRequest]) (*connect.Response[api.GetBillResponse], error)
	RecordPayment(context.Context, *connect.Request[api.RecordPaymentRequest]) (*connect.Response[api.RecordPaymentResponse], error)
	GetDashboard(context.Context, *connect.Request[api.GetDashboardRequest]) (*connect.Response[api.GetDashboardResponse], error)
}

// NewBillServiceHandler builds an HTTP handler for svc, returning the path to
// mount it on. The JSON codec is always registered.
func NewBillServiceHandler(svc BillServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{api.WithJSON()}, opts...)
	publishBillHandler := connect.NewUnaryHandler(BillServicePublishBillProcedure, svc.PublishBill, opts...)
	addItemHandler := connect.NewUnaryHandler(BillServiceAddItemProcedure, svc.AddItem, opts...)
	getBillHandler := connect.NewUnaryHandler(BillServiceGetBillProcedure, svc.GetBill, opts...)
	recordPaymentHandler := connect.NewUnaryHandler(BillServiceRecordPaymentProcedure, svc.RecordPayment, opts...)
	getDashboardHandler := connect.NewUnaryHandler(BillServiceGetDashboardProcedure, svc.GetDashboard, opts...)
	return "/famsplit.v1.BillService/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case BillServicePublishBillProcedure:
			publishBillHandler.ServeHTTP(w, r)
		case BillServiceAddItemProcedure:
			addItemHandler.ServeHTTP(w, r)
		case BillServiceGetBillProcedure:
			getBillHandler.ServeHTTP(w, r)
		case BillServiceRecordPaymentProcedure:
			recordPaymentHandler.ServeHTTP(w, r)
		case BillServiceGetDashboardProcedure:
			getDashboardHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// BillServiceClient is a client for BillService.
type BillServiceClient interface {
	PublishBill(context.Context, *connect.Request[api.PublishBillRequest]) (*connect.Response[api.PublishBillResponse], error)
	AddItem(context.Context, *connect.Request[api.AddItemRequest]) (*connect.Response[api.AddItemResponse], error)
	GetBill(context.Context, *connect.Request[api.GetBillRequest]) (*connect.Response[api.GetBillResponse], error)
	RecordPayment(context.Context, *connect.Request[api.RecordPaymentRequest]) (*connect.Response[api.RecordPaymentResponse], error)
	GetDashboard(context.Context, *connect.Request[api.GetDashboardRequest]) (*connect.Response[api.GetDashboardResponse], error)
}

// NewBillServiceClient creates a client for the service mounted at baseURL
// (e.g. http://localhost:8080). Messages are sent as JSON.
func NewBillServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) BillServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{api.WithJSON()}, opts...)
	return &billServiceClient{
		publishBill:   connect.NewClient[api.PublishBillRequest, api.PublishBillResponse](httpClient, baseURL+BillServicePublishBillProcedure, opts...),
		addItem:       connect.NewClient[api.AddItemRequest, api.AddItemResponse](httpClient, baseURL+BillServiceAddItemProcedure, opts...),
		getBill:       connect.NewClient[api.GetBillRequest, api.GetBillResponse](httpClient, baseURL+BillServiceGetBillProcedure, opts...),
		recordPayment: connect.NewClient[api.RecordPaymentRequest, api.RecordPaymentResponse](httpClient, baseURL+BillServiceRecordPaymentProcedure, opts...),
		getDashboard:  connect.NewClient[api.GetDashboardRequest, api.GetDashboardResponse](httpClient, baseURL+BillServiceGetDashboardProcedure, opts...),
	}
}

type billServiceClient struct {
	publishBill   *connect.Client[api.PublishBillRequest, api.PublishBillResponse]
	addItem       *connect.Client[api.AddItemRequest, api.AddItemResponse]
	getBill       *connect.Client[api.GetBillRequest, api.GetBillResponse]
	recordPayment *connect.Client[api.RecordPaymentRequest, api.RecordPaymentResponse]
	getDashboard  *connect.Client[api.GetDashboardRequest, api.GetDashboardResponse]
}

func (c *billServiceClient) PublishBill(ctx context.Context, req *connect.Request[api.PublishBillRequest]) (*connect.Response[api.PublishBillResponse], error) {
	return c.publishBill.CallUnary(ctx, req)
}

func (c *billServiceClient) AddItem(ctx context.Context, req *connect.Request[api.AddItemRequest]) (*connect.Response[api.AddItemResponse], error) {
	return c.addItem.CallUnary(ctx, req)
}

func (c *billServiceClient) GetBill(ctx context.Context, req *connect.Request[api.GetBillRequest]) (*connect.Response[api.GetBillResponse], error) {
	return c.getBill.CallUnary(ctx, req)
}

func (c *billServiceClient) RecordPayment(ctx context.Context, req *connect.Request[api.RecordPaymentRequest]) (*connect.Response[api.RecordPaymentResponse], error) {
	return c.recordPayment.CallUnary(ctx, req)
}

func (c *billServiceClient) GetDashboard(ctx context.Context, req *connect.Request[api.GetDashboardRequest]) (*connect.Response[api.GetDashboardResponse], error) {
	return c.getDashboard.CallUnary(ctx, req)
}
