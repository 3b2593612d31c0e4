package main

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"

	"tradegate/internal/svc"
	"tradegate/pkg/executor"
)

// report is the outcome of probing one gateway.
type report struct {
	Gateway    string
	Reachable  bool
	Available  string
	Positions  int
	OpenOrders int
	Errors     []string
	Took       time.Duration
}

type monitor struct {
	sc      *svc.ServiceContext
	timeout time.Duration
}

func newMonitor(sc *svc.ServiceContext, timeout time.Duration) *monitor {
	return &monitor{sc: sc, timeout: timeout}
}

func (m *monitor) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run once immediately on startup
	m.round(ctx)
	for {
		select {
		case <-ctx.Done():
			logx.Info("[monitor] stopping")
			return
		case <-ticker.C:
			m.round(ctx)
		}
	}
}

// round probes every gateway concurrently and logs one line per gateway.
func (m *monitor) round(ctx context.Context) []report {
	if ctx.Err() != nil {
		return nil
	}
	var (
		mu      sync.Mutex
		reports []report
	)
	group := threading.NewRoutineGroup()
	for _, name := range m.sc.GatewayNames() {
		engine, _, err := m.sc.Resolve(name)
		if err != nil {
			continue
		}
		group.RunSafe(func() {
			r := m.probe(ctx, name, engine)
			mu.Lock()
			reports = append(reports, r)
			mu.Unlock()
		})
	}
	group.Wait()

	sort.Slice(reports, func(i, j int) bool { return reports[i].Gateway < reports[j].Gateway })
	for _, r := range reports {
		if len(r.Errors) > 0 {
			logx.WithContext(ctx).Errorf("[monitor.%s] reachable=%t available=%s positions=%d open_orders=%d errors=%v took=%dms",
				r.Gateway, r.Reachable, r.Available, r.Positions, r.OpenOrders, r.Errors, r.Took.Milliseconds())
			continue
		}
		logx.WithContext(ctx).Infof("[monitor.%s] [OK] available=%s positions=%d open_orders=%d took=%dms",
			r.Gateway, r.Available, r.Positions, r.OpenOrders, r.Took.Milliseconds())
	}
	return reports
}

func (m *monitor) probe(parent context.Context, name string, engine *executor.Engine) report {
	ctx, cancel := context.WithTimeout(parent, m.timeout)
	defer cancel()
	start := time.Now()
	r := report{Gateway: name}

	if err := engine.Ping(ctx); err != nil {
		r.Errors = append(r.Errors, err.Error())
		r.Took = time.Since(start)
		return r
	}
	r.Reachable = true

	gw := engine.Gateway()
	if account, err := gw.GetAccountInfo(ctx); err != nil {
		r.Errors = append(r.Errors, "account: "+err.Error())
	} else {
		r.Available = account.Available().String()
	}
	if positions, err := gw.GetAllPositions(ctx); err != nil {
		r.Errors = append(r.Errors, "positions: "+err.Error())
	} else {
		r.Positions = len(positions)
	}
	if orders, err := engine.GetOpenOrders(ctx, ""); err != nil {
		r.Errors = append(r.Errors, "open orders: "+err.Error())
	} else {
		r.OpenOrders = len(orders)
	}
	r.Took = time.Since(start)
	return r
}
