package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	pgrepo "github.com/yeshi-rangzen/momomi-sub000/internal/repo/postgres"
	authsvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/auth"
	matchessvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/matches"
	usagesvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/usage"
)

type usageStoreStub struct {
	record pgrepo.UsageLimitRecord
}

func (s usageStoreStub) Get(context.Context, int64, time.Time, *time.Location) (pgrepo.UsageLimitRecord, error) {
	return s.record, nil
}

func (s usageStoreStub) AddAdWatch(context.Context, pgx.Tx, int64, time.Time, *time.Location, int, int) (pgrepo.UsageLimitRecord, error) {
	return s.record, nil
}

type subscriptionStub struct {
	premium bool
}

func (s subscriptionStub) IsPremiumActive(context.Context, int64) (bool, error) {
	return s.premium, nil
}

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{
		UserID: 101,
		SID:    "sid-101",
	}))
}

func TestLimitsHandlerReturnsSnapshot(t *testing.T) {
	svc := usagesvc.NewService(nil, usageStoreStub{record: pgrepo.UsageLimitRecord{
		LikesUsed:  5,
		BonusLikes: 1,
	}}, subscriptionStub{}, usagesvc.Config{FreeLikesPerDay: 25})
	h := NewLimitsHandler(svc)

	rr := httptest.NewRecorder()
	h.Handle(rr, authedRequest(http.MethodGet, "/v1/limits", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var payload struct {
		IsPremium  bool `json:"is_premium"`
		LikesUsed  int  `json:"likes_used"`
		LikesLimit int  `json:"likes_limit"`
		LikesLeft  int  `json:"likes_left"`
		BonusLikes int  `json:"bonus_likes"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.IsPremium {
		t.Fatal("expected free tier")
	}
	if payload.LikesUsed != 5 || payload.LikesLimit != 25 || payload.LikesLeft != 21 || payload.BonusLikes != 1 {
		t.Fatalf("unexpected quota payload: %+v", payload)
	}
}

func TestLimitsHandlerRequiresIdentity(t *testing.T) {
	h := NewLimitsHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/limits", nil)
	rr := httptest.NewRecorder()
	h.Handle(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestReportHandlerRejectsUnknownReason(t *testing.T) {
	svc := matchessvc.NewService(matchessvc.Dependencies{}, matchessvc.Config{})
	h := NewMatchesHandler(svc)

	body, err := json.Marshal(map[string]any{
		"target_id": 202,
		"reason":    "because",
	})
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}

	rr := httptest.NewRecorder()
	h.Report(rr, authedRequest(http.MethodPost, "/v1/report", body))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected error code: %q", payload.Code)
	}
}
