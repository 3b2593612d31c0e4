package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"tradegate/internal/logic"
	"tradegate/internal/svc"
	"tradegate/internal/types"
)

func ExecutionsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ExecutionsRequest
		if err := httpx.Parse(r, &req); err != nil {
			writeError(w, r, err, http.StatusBadRequest)
			return
		}

		l := logic.NewExecutionsLogic(r.Context(), svcCtx)
		resp, err := l.Recent(&req)
		if err != nil {
			writeError(w, r, err, statusFor(err))
			return
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}
