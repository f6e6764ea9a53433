package bidhandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketbid/internal/biderrors"
	"marketbid/internal/models"
	"marketbid/internal/services/bidding"
)

type Handler struct {
	svc bidding.IBiddingService
}

func New(svc bidding.IBiddingService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/auctions/:id/bid", h.bid)
	r.GET("/auctions/:id/bids", h.bids)
	r.POST("/auctions/:id/close", h.close)
	r.GET("/users/:user_id/bids", h.userBids)
}

// bid handles POST /auctions/:id/bid.
func (h *Handler) bid(ginCtx *gin.Context) {
	var body PlaceBidBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}
	if !body.Amount.IsPositive() {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: "amount must be positive"})
		return
	}

	listingID := ginCtx.Param("id")
	bid, current, err := h.svc.PlaceBid(ginCtx.Request.Context(), listingID, body.BidderID, body.Amount)
	if err != nil {
		writeError(ginCtx, err)
		return
	}
	ginCtx.JSON(http.StatusCreated, &PlaceBidResponse{Bid: bid, CurrentBidAmount: current})
}

// bids handles GET /auctions/:id/bids: the standing view, highest first.
func (h *Handler) bids(ginCtx *gin.Context) {
	bids, err := h.svc.ListBids(ginCtx.Request.Context(), ginCtx.Param("id"))
	if err != nil {
		writeError(ginCtx, err)
		return
	}
	if bids == nil {
		bids = []models.Bid{}
	}
	ginCtx.JSON(http.StatusOK, bids)
}

// close handles POST /auctions/:id/close. Admin-gated upstream; closing
// before end_time is permitted.
func (h *Handler) close(ginCtx *gin.Context) {
	res, err := h.svc.CloseAuction(ginCtx.Request.Context(), ginCtx.Param("id"))
	if err != nil {
		writeError(ginCtx, err)
		return
	}
	ginCtx.JSON(http.StatusOK, &CloseAuctionResponse{
		WinnerID:      res.WinnerID,
		WinningAmount: res.WinningAmount,
	})
}

// userBids handles GET /users/:user_id/bids with pagination.
func (h *Handler) userBids(ginCtx *gin.Context) {
	var q BidHistoryQuery
	if err := ginCtx.ShouldBindQuery(&q); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	bids, total, err := h.svc.ListBidsByBidder(ginCtx.Request.Context(), ginCtx.Param("user_id"), q.Limit, q.Offset)
	if err != nil {
		writeError(ginCtx, err)
		return
	}
	if bids == nil {
		bids = []models.Bid{}
	}
	ginCtx.JSON(http.StatusOK, &BidHistoryResponse{Bids: bids, Total: total, Limit: q.Limit, Offset: q.Offset})
}

// writeError maps engine errors onto HTTP statuses. BidTooLow carries the
// computed minimum through to the response body.
func writeError(ginCtx *gin.Context, err error) {
	resp := &ErrorResponse{Error: err.Error()}

	var tooLow *biderrors.BidTooLowError
	if errors.As(err, &tooLow) {
		min := tooLow.Minimum
		resp.Minimum = &min
	}

	switch {
	case errors.Is(err, biderrors.ErrListingNotFound):
		ginCtx.JSON(http.StatusNotFound, resp)
	case errors.Is(err, biderrors.ErrBidConflict):
		ginCtx.JSON(http.StatusConflict, resp)
	case errors.Is(err, biderrors.ErrInvalidOperation),
		errors.Is(err, biderrors.ErrBidTooLow),
		errors.Is(err, biderrors.ErrAuctionClosed),
		errors.Is(err, biderrors.ErrAuctionNotStarted):
		ginCtx.JSON(http.StatusBadRequest, resp)
	default:
		ginCtx.JSON(http.StatusInternalServerError, resp)
	}
}
