package bidhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"marketbid/internal/biderrors"
	"marketbid/internal/models"
	"marketbid/internal/services/bidding"
)

// stubService implements bidding.IBiddingService with swappable behavior.
type stubService struct {
	placeBid func(listingID, bidderID string, amount decimal.Decimal) (*models.Bid, decimal.Decimal, error)
	close    func(listingID string) (*bidding.CloseResult, error)
	listBids func(listingID string) ([]models.Bid, error)
	byBidder func(bidderID string, limit, offset int) ([]models.Bid, int, error)
}

func (s *stubService) PlaceBid(_ context.Context, listingID, bidderID string, amount decimal.Decimal) (*models.Bid, decimal.Decimal, error) {
	return s.placeBid(listingID, bidderID, amount)
}

func (s *stubService) CloseAuction(_ context.Context, listingID string) (*bidding.CloseResult, error) {
	return s.close(listingID)
}

func (s *stubService) GetListing(context.Context, string) (*models.AuctionListing, error) {
	return nil, biderrors.ErrListingNotFound
}

func (s *stubService) ListBids(_ context.Context, listingID string) ([]models.Bid, error) {
	return s.listBids(listingID)
}

func (s *stubService) ListBidsByBidder(_ context.Context, bidderID string, limit, offset int) ([]models.Bid, int, error) {
	return s.byBidder(bidderID, limit, offset)
}

func newRouter(svc bidding.IBiddingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	New(svc).Register(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBidEndpoint(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("105")

	tests := []struct {
		name           string
		body           any
		serviceErr     error
		expectedStatus int
	}{
		{
			name:           "accepted",
			body:           gin.H{"bidder_id": "user2", "amount": 105},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing_bidder",
			body:           gin.H{"amount": 105},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "negative_amount",
			body:           gin.H{"bidder_id": "user2", "amount": -5},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "listing_not_found",
			body:           gin.H{"bidder_id": "user2", "amount": 105},
			serviceErr:     biderrors.ErrListingNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "auction_ended",
			body:           gin.H{"bidder_id": "user2", "amount": 105},
			serviceErr:     biderrors.ErrAuctionClosed,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "auction_not_started",
			body:           gin.H{"bidder_id": "user2", "amount": 105},
			serviceErr:     biderrors.ErrAuctionNotStarted,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "lost_race",
			body:           gin.H{"bidder_id": "user2", "amount": 105},
			serviceErr:     biderrors.ErrBidConflict,
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{
				placeBid: func(listingID, bidderID string, got decimal.Decimal) (*models.Bid, decimal.Decimal, error) {
					if tc.serviceErr != nil {
						return nil, decimal.Decimal{}, tc.serviceErr
					}
					return &models.Bid{
						ID: "bid1", ListingID: listingID, BidderID: bidderID,
						Amount: got, Status: models.BidActive, CreatedAt: now,
					}, got, nil
				},
			}
			w := doJSON(t, newRouter(svc), http.MethodPost, "/auctions/listing1/bid", tc.body)
			require.Equal(t, tc.expectedStatus, w.Code, w.Body.String())

			if tc.expectedStatus == http.StatusCreated {
				var resp struct {
					Bid              models.Bid      `json:"bid"`
					CurrentBidAmount decimal.Decimal `json:"current_bid_amount"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				require.Equal(t, "bid1", resp.Bid.ID)
				require.Equal(t, "user2", resp.Bid.BidderID)
				require.True(t, resp.CurrentBidAmount.Equal(amount))
			}
		})
	}
}

func TestBidEndpoint_TooLowCarriesMinimum(t *testing.T) {
	minimum := decimal.RequireFromString("105")
	svc := &stubService{
		placeBid: func(string, string, decimal.Decimal) (*models.Bid, decimal.Decimal, error) {
			return nil, decimal.Decimal{}, &biderrors.BidTooLowError{Minimum: minimum}
		},
	}

	w := doJSON(t, newRouter(svc), http.MethodPost, "/auctions/listing1/bid",
		gin.H{"bidder_id": "user2", "amount": 103})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Minimum)
	require.True(t, resp.Minimum.Equal(minimum))
}

func TestCloseEndpoint(t *testing.T) {
	svc := &stubService{
		close: func(string) (*bidding.CloseResult, error) {
			return &bidding.CloseResult{
				WinnerID:      "user2",
				WinningAmount: decimal.RequireFromString("105"),
			}, nil
		},
	}

	w := doJSON(t, newRouter(svc), http.MethodPost, "/auctions/listing1/close", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp CloseAuctionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "user2", resp.WinnerID)
	require.True(t, resp.WinningAmount.Equal(decimal.RequireFromString("105")))
}

func TestCloseEndpoint_AlreadyClosed(t *testing.T) {
	svc := &stubService{
		close: func(string) (*bidding.CloseResult, error) {
			return nil, biderrors.ErrInvalidOperation
		},
	}

	w := doJSON(t, newRouter(svc), http.MethodPost, "/auctions/listing1/close", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBidsEndpoint(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := &stubService{
		listBids: func(listingID string) ([]models.Bid, error) {
			return []models.Bid{
				{ID: "b2", ListingID: listingID, BidderID: "user2",
					Amount: decimal.RequireFromString("105"), Status: models.BidActive, CreatedAt: now},
				{ID: "b1", ListingID: listingID, BidderID: "user1",
					Amount: decimal.RequireFromString("100"), Status: models.BidWon, CreatedAt: now},
			}, nil
		},
	}

	w := doJSON(t, newRouter(svc), http.MethodGet, "/auctions/listing1/bids", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var bids []models.Bid
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bids))
	require.Len(t, bids, 2)
	require.Equal(t, "b2", bids[0].ID)
}

func TestBidsEndpoint_EmptyListNotNull(t *testing.T) {
	svc := &stubService{
		listBids: func(string) ([]models.Bid, error) { return nil, nil },
	}

	w := doJSON(t, newRouter(svc), http.MethodGet, "/auctions/listing1/bids", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "[]", w.Body.String())
}

func TestUserBidsEndpoint(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := &stubService{
		byBidder: func(bidderID string, limit, offset int) ([]models.Bid, int, error) {
			require.Equal(t, "user1", bidderID)
			require.Equal(t, 5, limit)
			require.Equal(t, 10, offset)
			return []models.Bid{
				{ID: "b1", ListingID: "l1", BidderID: bidderID,
					Amount: decimal.RequireFromString("100"), Status: models.BidOutbid, CreatedAt: now},
			}, 23, nil
		},
	}

	w := doJSON(t, newRouter(svc), http.MethodGet, "/users/user1/bids?limit=5&offset=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp BidHistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 23, resp.Total)
	require.Equal(t, 5, resp.Limit)
	require.Equal(t, 10, resp.Offset)
	require.Len(t, resp.Bids, 1)
}

func TestUserBidsEndpoint_BadQuery(t *testing.T) {
	svc := &stubService{}
	w := doJSON(t, newRouter(svc), http.MethodGet, "/users/user1/bids?limit=500", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
