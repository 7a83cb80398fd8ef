package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/famsplit/pkg/api"
)

// FamilyServiceName is the fully-qualified name of the FamilyService service.
const FamilyServiceName = "famsplit.v1.FamilyService"

// Procedure paths served under FamilyServiceName.
const (
	FamilyServiceCreateFamilyProcedure = "/famsplit.v1.FamilyService/CreateFamily"
	FamilyServiceGetFamilyProcedure    = "/famsplit.v1.FamilyService/GetFamily"
	FamilyServiceInviteMemberProcedure = "/famsplit.v1.FamilyService/InviteMember"
	FamilyServiceAcceptInviteProcedure = "/famsplit.v1.FamilyService/AcceptInvite"
)

// FamilyServiceHandler is implemented by the famsplit server.
type FamilyServiceHandler interface {
	CreateFamily(context.Context, *connect.Request[api.CreateFamilyRequest]) (*connect.Response[api.CreateFamilyResponse], error)
	GetFamily(context.Context, *connect.Request[api.GetFamilyRequest]) (*connect.Response[api.GetFamilyResponse], error)
	InviteMember(context.Context, *connect.Request[api.InviteMemberRequest]) (*connect.Response[api.InviteMemberResponse], error)
	AcceptInvite(context.Context, *connect.Request[api.AcceptInviteRequest]) (*connect.Response[api.AcceptInviteResponse], error)
}

// NewFamilyServiceHandler builds an HTTP handler for svc, returning the path to
// mount it on. The JSON codec is always registered.
func NewFamilyServiceHandler(svc FamilyServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{api.WithJSON()}, opts...)
	createFamilyHandler := connect.NewUnaryHandler(FamilyServiceCreateFamilyProcedure, svc.CreateFamily, opts...)
	getFamilyHandler := connect.NewUnaryHandler(FamilyServiceGetFamilyProcedure, svc.GetFamily, opts...)
	inviteMemberHandler := connect.NewUnaryHandler(FamilyServiceInviteMemberProcedure, svc.InviteMember, opts...)
	acceptInviteHandler := connect.NewUnaryHandler(FamilyServiceAcceptInviteProcedure, svc.AcceptInvite, opts...)
	return "/famsplit.v1.FamilyService/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case FamilyServiceCreateFamilyProcedure:
			createFamilyHandler.ServeHTTP(w, r)
		case FamilyServiceGetFamilyProcedure:
			getFamilyHandler.ServeHTTP(w, r)
		case FamilyServiceInviteMemberProcedure:
			inviteMemberHandler.ServeHTTP(w, r)
		case FamilyServiceAcceptInviteProcedure:
			acceptInviteHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// FamilyServiceClient is a client for FamilyService.
type FamilyServiceClient interface {
	CreateFamily(context.Context, *connect.Request[api.CreateFamilyRequest]) (*connect.Response[api.CreateFamilyResponse], error)
	GetFamily(context.Context, *connect.Request[api.GetFamilyRequest]) (*connect.Response[api.GetFamilyResponse], error)
	InviteMember(context.Context, *connect.Request[api.InviteMemberRequest]) (*connect.Response[api.InviteMemberResponse], error)
	AcceptInvite(context.Context, *connect.Request[api.AcceptInviteRequest]) (*connect.Response[api.AcceptInviteResponse], error)
}

// NewFamilyServiceClient creates a client for the service mounted at baseURL
// (e.g. http://localhost:8080). Messages are sent as JSON.
func NewFamilyServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) FamilyServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{api.WithJSON()}, opts...)
	return &familyServiceClient{
		createFamily: connect.NewClient[api.CreateFamilyRequest, api.CreateFamilyResponse](httpClient, baseURL+FamilyServiceCreateFamilyProcedure, opts...),
		getFamily:    connect.NewClient[api.GetFamilyRequest, api.GetFamilyResponse](httpClient, baseURL+FamilyServiceGetFamilyProcedure, opts...),
		inviteMember: connect.NewClient[api.InviteMemberRequest, api.InviteMemberResponse](httpClient, baseURL+FamilyServiceInviteMemberProcedure, opts...),
		acceptInvite: connect.NewClient[api.AcceptInviteRequest, api.AcceptInviteResponse](httpClient, baseURL+FamilyServiceAcceptInviteProcedure, opts...),
	}
}

type familyServiceClient struct {
	createFamily *connect.Client[api.CreateFamilyRequest, api.CreateFamilyResponse]
	getFamily    *connect.Client[api.GetFamilyRequest, api.GetFamilyResponse]
	inviteMember *connect.Client[api.InviteMemberRequest, api.InviteMemberResponse]
	acceptInvite *connect.Client[api.AcceptInviteRequest, api.AcceptInviteResponse]
}

func (c *familyServiceClient) CreateFamily(ctx context.Context, req *connect.Request[api.CreateFamilyRequest]) (*connect.Response[api.CreateFamilyResponse], error) {
	return c.createFamily.CallUnary(ctx, req)
}

func (c *familyServiceClient) GetFamily(ctx context.Context, req *connect.Request[api.GetFamilyRequest]) (*connect.Response[api.GetFamilyResponse], error) {
	return c.getFamily.CallUnary(ctx, req)
}

func (c *familyServiceClient) InviteMember(ctx context.Context, req *connect.Request[api.InviteMemberRequest]) (*connect.Response[api.InviteMemberResponse], error) {
	return c.inviteMember.CallUnary(ctx, req)
}

func (c *familyServiceClient) AcceptInvite(ctx context.Context, req *connect.Request[api.AcceptInviteRequest]) (*connect.Response[api.AcceptInviteResponse], error) {
	return c.acceptInvite.CallUnary(ctx, req)
}
