package hyperliquid

import (
	"context"
	"fmt"
)

// GetAssetIndex resolves the exchange asset index for the given coin.
func (c *Client) GetAssetIndex(ctx context.Context, coin string) (int, error) {
	info, err := c.GetAssetInfo(ctx, coin)
	if err != nil {
		return 0, err
	}
	return info.Index, nil
}

// GetAssetInfo returns cached asset metadata, refreshing the directory when
// the coin is unknown or the cache has expired.
func (c *Client) GetAssetInfo(ctx context.Context, coin string) (*AssetInfo, error) {
	key := coinFromSymbol(coin)
	if key == "" {
		return nil, fmt.Errorf("hyperliquid: empty coin symbol")
	}
	if info, ok := c.cachedAssetInfo(key); ok && !c.assetCacheExpired() {
		return &info, nil
	}
	if err := c.refreshAssetDirectory(ctx); err != nil {
		return nil, err
	}
	if info, ok := c.cachedAssetInfo(key); ok {
		return &info, nil
	}
	return nil, fmt.Errorf("hyperliquid: asset %s not found", coin)
}

func (c *Client) cachedAssetInfo(key string) (AssetInfo, bool) {
	c.assetMu.RLock()
	defer c.assetMu.RUnlock()
	info, ok := c.assetInfo[key]
	return info, ok
}

func (c *Client) assetCacheExpired() bool {
	c.assetMu.RLock()
	defer c.assetMu.RUnlock()
	return c.assetTTL > 0 && c.clock().Sub(c.assetLastRef) > c.assetTTL
}

func (c *Client) refreshAssetDirectory(ctx context.Context) error {
	var resp MetaAndAssetCtxsResponse
	if err := c.doInfoRequest(ctx, InfoRequest{Type: "metaAndAssetCtxs"}, &resp); err != nil {
		return err
	}
	if len(resp.Universe) == 0 {
		return fmt.Errorf("hyperliquid: metaAndAssetCtxs response contained no assets")
	}

	info := make(map[string]AssetInfo, len(resp.Universe))
	for idx, entry := range resp.Universe {
		key := canonicalAssetKey(entry.Name)
		if key == "" {
			continue
		}
		var assetCtx AssetCtx
		if idx < len(resp.AssetCtxs) {
			assetCtx = resp.AssetCtxs[idx]
		}
		info[key] = AssetInfo{
			Name:         entry.Name,
			Index:        idx,
			SzDecimals:   entry.SzDecimals,
			MaxLeverage:  entry.MaxLeverage,
			OnlyIsolated: entry.OnlyIsolated,
			IsDelisted:   entry.IsDelisted,
			Ctx:          assetCtx,
		}
	}

	c.assetMu.Lock()
	c.assetInfo = info
	c.assetLastRef = c.clock()
	c.assetMu.Unlock()
	return nil
}
