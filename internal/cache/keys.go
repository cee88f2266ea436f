package cache

import (
	"fmt"
	"strings"
)

// PortfolioKey identifies one owner's portfolio at a store version.
type PortfolioKey struct {
	Owner   string
	Version uint64
}

func Portfolio(owner string, version uint64) PortfolioKey {
	return PortfolioKey{Owner: strings.TrimSpace(owner), Version: version}
}

// SectorStats is the ristretto key for the sector aggregate at a store version.
func SectorStats(version uint64) string {
	return fmt.Sprintf("sector-stats:%d", version)
}
