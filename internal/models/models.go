package models

import (
	"encoding/json"
	"time"
)

// Stock is a tradable record. Only Owned changes after load.
type Stock struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Owned     string  `json:"owned"`
	Sector    string  `json:"sector"`
	Volume    int64   `json:"volume"`
	MarketCap int64   `json:"marketCap"`
}

// User is served as stored; the user service never looks inside it.
type User = json.RawMessage

type TransferRequest struct {
	RecordID  string `json:"recordId"`
	FromOwner string `json:"fromUserId"`
	ToOwner   string `json:"toUserId"`
}

type TransferEvent struct {
	EventID  string    `json:"event_id"`
	RecordID string    `json:"record_id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	TS       time.Time `json:"ts"`
}

type Portfolio struct {
	OwnerID    string  `json:"ownerId"`
	StockCount int     `json:"stockCount"`
	TotalValue float64 `json:"totalValue"`
	Stocks     []Stock `json:"stocks"`
}

type SectorStat struct {
	Count      int      `json:"count"`
	TotalValue float64  `json:"totalValue"`
	AvgPrice   float64  `json:"avgPrice"`
	Stocks     []string `json:"stocks"`
}
