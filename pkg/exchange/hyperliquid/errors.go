package hyperliquid

import "fmt"

func errUnknownAsset(coin string) error {
	return fmt.Errorf("asset %s not listed", coin)
}
