package exchange

import (
	"context"
	"errors"
	"sort"
	"time"
)

// DefaultTradeWindow matches the widest range venues accept per trade query.
const DefaultTradeWindow = 7 * 24 * time.Hour

// CollectUserTrades fetches every fill for symbol in [start, end) by walking
// the range in windows. Results are de-duplicated by trade id and sorted by time.
func CollectUserTrades(ctx context.Context, gw Gateway, symbol string, start, end time.Time, window time.Duration) ([]UserTrade, error) {
	if !end.After(start) {
		return nil, errors.New("exchange: trade range end must be after start")
	}
	if window <= 0 {
		window = DefaultTradeWindow
	}

	seen := make(map[string]struct{})
	var out []UserTrade
	for from := start; from.Before(end); from = from.Add(window) {
		to := from.Add(window)
		if to.After(end) {
			to = end
		}
		batch, err := gw.GetUserTrades(ctx, TradeQuery{Symbol: symbol, StartTime: from, EndTime: to})
		if err != nil {
			return nil, err
		}
		for _, t := range batch {
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}
