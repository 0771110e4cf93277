package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"alumnet/internal/handlers"
	"alumnet/internal/middleware"
	"alumnet/internal/repositories"
	"alumnet/internal/routes"
	"alumnet/internal/services/auth"
	"alumnet/internal/services/negotiation"
	"alumnet/internal/services/offer"
	"alumnet/internal/services/rating"
	"alumnet/internal/services/transaction"
	"alumnet/internal/services/user"
	"alumnet/internal/testutil"
	"alumnet/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "Sup3r#secret"

type apiFixture struct {
	app *fiber.App
}

func newAPI(t *testing.T, checks map[string]handlers.Pinger) *apiFixture {
	t.Helper()
	db := testutil.NewDB(t)

	userRepo := repositories.NewUserRepository(db)
	tokens := utils.NewTokenIssuer("test-secret", time.Minute, time.Hour)
	authService := auth.NewService(userRepo, tokens, nil)
	userService := user.NewService(userRepo, nil)
	offers := offer.NewService(repositories.NewOfferRepository(db), userRepo, nil, nil, nil, nil)
	ratings := rating.NewAggregator(userRepo, offers, nil)
	ledger := transaction.NewService(repositories.NewTransactionRepository(db), userRepo, ratings, nil, nil, nil, nil)
	engine := negotiation.NewService(repositories.NewRequestRepository(db), offers, ledger, userRepo, nil, nil, nil)

	app := fiber.New()
	routes.SetupRoutes(app, routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService, userService, time.Hour, nil),
		Users:        handlers.NewUserHandler(userService, nil),
		Offers:       handlers.NewOfferHandler(offers, nil),
		Requests:     handlers.NewRequestHandler(engine, nil),
		Transactions: handlers.NewTransactionHandler(ledger, nil),
		Admin:        handlers.NewAdminHandler(userService, nil, nil),
		Health:       handlers.NewHealthHandler(checks),
	}, middleware.NewAuthMiddleware(authService, nil), routes.Options{})

	return &apiFixture{app: app}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

// member registers and logs in a fresh account, returning its id and access token.
func (f *apiFixture) member(t *testing.T) (string, string) {
	t.Helper()
	email := uuid.NewString()[:8] + "@alumni.test"
	status, body := f.do(t, http.MethodPost, "/api/register", "", fiber.Map{
		"email":    email,
		"password": testPassword,
		"name":     "Test Alum",
	})
	require.Equal(t, http.StatusCreated, status, body)

	status, body = f.do(t, http.MethodPost, "/api/login", "", fiber.Map{
		"email":    email,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, status, body)
	u := body["user"].(map[string]interface{})
	return u["id"].(string), body["access_token"].(string)
}

func data(body map[string]interface{}) map[string]interface{} {
	d, _ := body["data"].(map[string]interface{})
	return d
}

func offerBody() fiber.Map {
	return fiber.Map{
		"category":        "skill",
		"title":           "Resume review",
		"description":     "One hour review with a hiring manager",
		"tags":            []string{"career"},
		"estimated_value": fiber.Map{"amount": 60, "currency": "usd"},
	}
}

func TestAuthFlow(t *testing.T) {
	api := newAPI(t, nil)
	_, token := api.member(t)

	status, body := api.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Test Alum", data(body)["name"])
	assert.NotContains(t, data(body), "password")

	status, _ = api.do(t, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = api.do(t, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "session expired", body["error"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	api := newAPI(t, nil)
	api.member(t)

	status, body := api.do(t, http.MethodPost, "/api/login", "", fiber.Map{
		"email":    "nobody@alumni.test",
		"password": testPassword,
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid email or password", body["error"])

	status, _ = api.do(t, http.MethodPost, "/api/login", "", fiber.Map{"email": "x@alumni.test"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRegisterValidation(t *testing.T) {
	api := newAPI(t, nil)

	status, body := api.do(t, http.MethodPost, "/api/register", "", fiber.Map{
		"email":    "weak@alumni.test",
		"password": "password",
		"name":     "Weak",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", body["kind"])
	assert.Contains(t, body, "fields")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newAPI(t, nil)
	id := uuid.NewString()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/offers"},
		{http.MethodDelete, "/api/offers/" + id},
		{http.MethodGet, "/api/requests"},
		{http.MethodPost, "/api/requests/" + id + "/confirm"},
		{http.MethodGet, "/api/transactions"},
		{http.MethodGet, "/api/users/me/swap"},
		{http.MethodPatch, "/api/admin/users/" + id + "/status"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			status, _ := api.do(t, tt.method, tt.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, status)

			status, _ = api.do(t, tt.method, tt.path, "not-a-jwt", nil)
			assert.Equal(t, http.StatusUnauthorized, status)
		})
	}
}

func TestOfferEndpoints(t *testing.T) {
	api := newAPI(t, nil)
	ownerID, owner := api.member(t)
	_, other := api.member(t)

	status, body := api.do(t, http.MethodPost, "/api/offers", owner, offerBody())
	require.Equal(t, http.StatusCreated, status, body)
	offerID := data(body)["id"].(string)
	assert.Equal(t, "active", data(body)["status"])

	// public browsing
	status, body = api.do(t, http.MethodGet, "/api/offers?category=skill&owner_id="+ownerID, "", nil)
	require.Equal(t, http.StatusOK, status, body)
	meta := body["meta"].(map[string]interface{})
	assert.EqualValues(t, 1, meta["total_items"])

	status, body = api.do(t, http.MethodGet, "/api/offers/"+offerID, "", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Resume review", data(body)["title"])

	status, body = api.do(t, http.MethodGet, "/api/offers/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["kind"])

	status, _ = api.do(t, http.MethodGet, "/api/offers/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = api.do(t, http.MethodGet, "/api/offers?min_value=cheap", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// only the owner manages the offer
	status, body = api.do(t, http.MethodPatch, "/api/offers/"+offerID+"/status", other, fiber.Map{"status": "paused"})
	assert.Equal(t, http.StatusForbidden, status, body)

	status, body = api.do(t, http.MethodPatch, "/api/offers/"+offerID+"/status", owner, fiber.Map{"status": "paused"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "paused", data(body)["status"])

	status, _ = api.do(t, http.MethodDelete, "/api/offers/"+offerID, owner, nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestRequestLifecycle(t *testing.T) {
	api := newAPI(t, nil)
	_, owner := api.member(t)
	_, requester := api.member(t)

	status, body := api.do(t, http.MethodPost, "/api/offers", owner, offerBody())
	require.Equal(t, http.StatusCreated, status, body)
	offerID := data(body)["id"].(string)

	status, body = api.do(t, http.MethodPost, "/api/requests", owner, fiber.Map{
		"offer_id": offerID,
		"offer_in_return": fiber.Map{
			"title":           "Portfolio photos",
			"category":        "service",
			"estimated_value": fiber.Map{"amount": 50},
		},
	})
	assert.Equal(t, http.StatusBadRequest, status, "own offer")
	assert.Equal(t, "validation", body["kind"])

	status, body = api.do(t, http.MethodPost, "/api/requests", requester, fiber.Map{
		"offer_id": offerID,
		"message":  "Would love a review",
		"offer_in_return": fiber.Map{
			"title":           "Portfolio photos",
			"category":        "service",
			"estimated_value": fiber.Map{"amount": 50},
		},
	})
	require.Equal(t, http.StatusCreated, status, body)
	requestID := data(body)["id"].(string)
	base := "/api/requests/" + requestID

	status, body = api.do(t, http.MethodGet, "/api/requests?box=incoming", owner, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 1, body["meta"].(map[string]interface{})["total_items"])

	// the requester cannot answer their own request
	status, _ = api.do(t, http.MethodPost, base+"/respond", requester, fiber.Map{"decision": "accepted"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = api.do(t, http.MethodPost, base+"/respond", owner, fiber.Map{"decision": "accepted"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "accepted", data(body)["status"])

	status, body = api.do(t, http.MethodPost, base+"/messages", owner, fiber.Map{"message": "See you Tuesday"})
	require.Equal(t, http.StatusCreated, status, body)

	status, body = api.do(t, http.MethodPost, base+"/messages/read", requester, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 1, data(body)["updated"])

	status, body = api.do(t, http.MethodPost, base+"/confirm", requester, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "confirmed", data(body)["status"])

	status, body = api.do(t, http.MethodPost, base+"/confirm", requester, nil)
	assert.Equal(t, http.StatusConflict, status, body)

	status, body = api.do(t, http.MethodGet, "/api/transactions", requester, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 1, body["meta"].(map[string]interface{})["total_items"])

	status, body = api.do(t, http.MethodPost, base+"/start", owner, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "in_progress", data(body)["status"])

	status, body = api.do(t, http.MethodPost, base+"/complete", requester, fiber.Map{"rating": 5, "comment": "Great"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "completed", data(body)["status"])

	status, body = api.do(t, http.MethodGet, "/api/transactions", owner, nil)
	require.Equal(t, http.StatusOK, status, body)
	txs := body["data"].([]interface{})
	require.Len(t, txs, 1)
	txPath := "/api/transactions/" + txs[0].(map[string]interface{})["id"].(string)

	status, body = api.do(t, http.MethodGet, txPath+"/feedback", owner, nil)
	require.Equal(t, http.StatusOK, status, body)
	fbs := body["data"].([]interface{})
	require.Len(t, fbs, 1)
	assert.EqualValues(t, 5, fbs[0].(map[string]interface{})["rating"])

	status, body = api.do(t, http.MethodGet, txPath+"/feedback?user_a=nope&user_b=nope", owner, nil)
	assert.Equal(t, http.StatusBadRequest, status, body)
}

func TestNegotiationEndpoints(t *testing.T) {
	api := newAPI(t, nil)
	_, owner := api.member(t)
	_, requester := api.member(t)

	_, body := api.do(t, http.MethodPost, "/api/offers", owner, offerBody())
	offerID := data(body)["id"].(string)
	_, body = api.do(t, http.MethodPost, "/api/requests", requester, fiber.Map{
		"offer_id": offerID,
		"offer_in_return": fiber.Map{
			"title":           "Mock interview",
			"category":        "skill",
			"estimated_value": fiber.Map{"amount": 40},
		},
	})
	base := "/api/requests/" + data(body)["id"].(string)

	status, body := api.do(t, http.MethodPost, base+"/negotiations", owner, fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, body = api.do(t, http.MethodPost, base+"/respond", owner, fiber.Map{"decision": "negotiating"})
	require.Equal(t, http.StatusOK, status, body)

	status, body = api.do(t, http.MethodPost, base+"/negotiations", owner, fiber.Map{
		"offer_in_return_value": 55,
		"note":                  "Make it two sessions",
	})
	require.Equal(t, http.StatusCreated, status, body)
	seq := int(data(body)["seq"].(float64))

	status, _ = api.do(t, http.MethodPost, base+"/negotiations/0/respond", requester, fiber.Map{"accept": true})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = api.do(t, http.MethodPost, base+"/negotiations/"+strconv.Itoa(seq)+"/respond", requester, fiber.Map{"accept": true})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "confirmed", data(body)["status"])

	status, body = api.do(t, http.MethodGet, base+"/negotiations", requester, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, body["data"], 1)
}

func TestAdminStatusRequiresPermission(t *testing.T) {
	api := newAPI(t, nil)
	memberID, token := api.member(t)

	status, body := api.do(t, http.MethodPatch, "/api/admin/users/"+memberID+"/status", token, fiber.Map{"status": "suspended"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "insufficient permissions", body["error"])
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]handlers.Pinger
		want   int
		status string
	}{
		{"no checks", nil, http.StatusOK, "ok"},
		{"healthy", map[string]handlers.Pinger{
			"database": handlers.PingFunc(func(context.Context) error { return nil }),
		}, http.StatusOK, "ok"},
		{"redis down", map[string]handlers.Pinger{
			"database": handlers.PingFunc(func(context.Context) error { return nil }),
			"redis":    handlers.PingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
		}, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newAPI(t, tt.checks)
			status, body := api.do(t, http.MethodGet, "/health", "", nil)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.status, body["status"])
		})
	}
}
