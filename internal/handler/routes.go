package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"

	"tradegate/internal/svc"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodPost,
				Path:    "/orders/execute",
				Handler: ExecuteHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/orders/bracket",
				Handler: BracketHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/orders/open",
				Handler: OpenOrdersHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/orders/status",
				Handler: OrderStatusHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/orders/cancel-all",
				Handler: CancelAllHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/orders/cancel-bracket",
				Handler: CancelBracketHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/executions",
				Handler: ExecutionsHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/gateways",
				Handler: GatewaysHandler(serverCtx),
			},
		},
		rest.WithPrefix("/api"),
	)
}
