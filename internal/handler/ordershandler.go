package handler

import (
	"errors"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"tradegate/internal/logic"
	"tradegate/internal/svc"
	"tradegate/internal/types"
	"tradegate/pkg/executor"
)

func ExecuteHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.OrderIntent
		if err := httpx.Parse(r, &req); err != nil {
			writeError(w, r, err, http.StatusBadRequest)
			return
		}

		l := logic.NewOrdersLogic(r.Context(), svcCtx)
		resp, err := l.Execute(&req)
		if err != nil {
			writeError(w, r, err, statusFor(err))
			return
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}

func BracketHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.BracketRequest
		if err := httpx.Parse(r, &req); err != nil {
			writeError(w, r, err, http.StatusBadRequest)
			return
		}

		l := logic.NewOrdersLogic(r.Context(), svcCtx)
		resp, err := l.Bracket(&req)
		if err != nil {
			writeError(w, r, err, statusFor(err))
			return
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}

func OpenOrdersHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.OpenOrdersRequest
		if err := httpx.Parse(r, &req); err != nil {
			writeError(w, r, err, http.StatusBadRequest)
			return
		}

		l := logic.NewOrdersLogic(r.Context(), svcCtx)
		resp, err := l.OpenOrders(&req)
		if err != nil {
			writeError(w, r, err, statusFor(err))
			return
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}

func OrderStatusHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.OrderStatusRequest
		if err := httpx.Parse(r, &req); err != nil {
			writeError(w, r, err, http.StatusBadRequest)
			return
		}

		l := logic.NewOrdersLogic(r.Context(), svcCtx)
		resp, err := l.OrderStatus(&req)
		if err != nil {
			writeError(w, r, err, statusFor(err))
			return
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}

func CancelAllHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CancelAllRequest
		if err := httpx.Parse(r, &req); err != nil {
			writeError(w, r, err, http.StatusBadRequest)
			return
		}

		l := logic.NewOrdersLogic(r.Context(), svcCtx)
		resp, err := l.CancelAll(&req)
		if err != nil {
			writeError(w, r, err, statusFor(err))
			return
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}

func CancelBracketHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CancelBracketRequest
		if err := httpx.Parse(r, &req); err != nil {
			writeError(w, r, err, http.StatusBadRequest)
			return
		}

		l := logic.NewOrdersLogic(r.Context(), svcCtx)
		resp, err := l.CancelBracket(&req)
		if err != nil {
			writeError(w, r, err, statusFor(err))
			return
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}

func GatewaysHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewOrdersLogic(r.Context(), svcCtx)
		httpx.OkJsonCtx(r.Context(), w, l.Gateways())
	}
}

func statusFor(err error) int {
	var connErr *executor.ConnectivityError
	switch {
	case errors.Is(err, logic.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, svc.ErrUnknownGateway), errors.Is(err, logic.ErrNoAuditStore):
		return http.StatusNotFound
	case errors.As(err, &connErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error, status int) {
	httpx.WriteJsonCtx(r.Context(), w, status, types.ErrorResponse{Error: err.Error()})
}
