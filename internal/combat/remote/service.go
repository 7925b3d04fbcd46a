package remote

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the gRPC service a remote player serves.
const ServiceName = "triplea.battle.v1.Player"

const (
	methodSelectCasualties       = "SelectCasualties"
	methodReportError            = "ReportError"
	methodRetreatQuery           = "RetreatQuery"
	methodConfirmOwnCasualties   = "ConfirmOwnCasualties"
	methodConfirmEnemyCasualties = "ConfirmEnemyCasualties"
	methodWhatShouldBomberBomb   = "WhatShouldBomberBomb"
	methodSelectShoreBombard     = "SelectShoreBombard"
)

// playerService is the handler type checked by grpc.Server.RegisterService.
type playerService interface {
	serveRemotePlayer()
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*playerService)(nil),
	Methods: []grpc.MethodDesc{
		unary(methodSelectCasualties, (*Server).selectCasualties),
		unary(methodReportError, (*Server).reportError),
		unary(methodRetreatQuery, (*Server).retreatQuery),
		unary(methodConfirmOwnCasualties, (*Server).confirmOwnCasualties),
		unary(methodConfirmEnemyCasualties, (*Server).confirmEnemyCasualties),
		unary(methodWhatShouldBomberBomb, (*Server).whatShouldBomberBomb),
		unary(methodSelectShoreBombard, (*Server).selectShoreBombard),
	},
	Metadata: "triplea/battle/v1/player",
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary adapts a typed Server method to a grpc.MethodDesc.
func unary[Req, Resp any](name string, call func(*Server, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*Server)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}
