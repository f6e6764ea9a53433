package bidhandler

import (
	"github.com/shopspring/decimal"

	"marketbid/internal/models"
)

type PlaceBidBody struct {
	BidderID string          `json:"bidder_id" binding:"required" example:"user123"`
	Amount   decimal.Decimal `json:"amount"    binding:"required" example:"105"`
} // @name PlaceBidRequest

type PlaceBidResponse struct {
	Bid              *models.Bid     `json:"bid"`
	CurrentBidAmount decimal.Decimal `json:"current_bid_amount"`
} // @name PlaceBidResponse

type CloseAuctionResponse struct {
	WinnerID      string          `json:"winner_id,omitempty"`
	WinningAmount decimal.Decimal `json:"winning_amount"`
} // @name CloseAuctionResponse

type BidHistoryQuery struct {
	Limit  int `form:"limit,default=10"  binding:"gte=0,lte=100"`
	Offset int `form:"offset,default=0"  binding:"gte=0"`
} // @name BidHistoryQuery

type BidHistoryResponse struct {
	Bids   []models.Bid `json:"bids"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
} // @name BidHistoryResponse

type ErrorResponse struct {
	Error   string           `json:"error"`
	Minimum *decimal.Decimal `json:"minimum,omitempty"`
} // @name ErrorResponse
