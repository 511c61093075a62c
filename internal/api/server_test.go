package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"poultrytrade/backend/internal/auth"
	"poultrytrade/backend/internal/store/memory"
	"poultrytrade/backend/internal/trip"
)

type testEnv struct {
	t        *testing.T
	handler  http.Handler
	store    *memory.Store
	farmID   int64
	customer int64
	driverID int64
	tokens   map[trip.Role]string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := memory.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	env := &testEnv{t: t, store: st, tokens: map[trip.Role]string{}}

	issuer := auth.NewIssuer("test-secret", time.Hour)
	users := []auth.User{
		{TenantID: 1, Name: "Owner", Mobile: "9000000001", Role: trip.RoleTrader},
		{TenantID: 1, Name: "Suresh", Mobile: "9000000002", Role: trip.RoleDriver},
		{TenantID: 1, Name: "Manoj", Mobile: "9000000003", Role: trip.RoleLifter},
	}
	for _, u := range users {
		u.PasswordHash = string(hash)
		u.ID = st.AddUser(u)
		if u.Role == trip.RoleDriver {
			env.driverID = u.ID
		}
		token, err := issuer.Sign(u)
		if err != nil {
			t.Fatal(err)
		}
		env.tokens[u.Role] = token
	}
	env.farmID = st.AddFarm(1, "Gopal")
	env.customer = st.AddCustomer(trip.Customer{TenantID: 1, Name: "Ravi"})

	svc := trip.NewService(st, nil)
	srv := NewServer(svc, st, issuer, Options{AllowedOrigins: []string{"http://app.local"}, LoginAttempts: 3, LoginWindow: time.Minute})
	env.handler = srv.Mux()
	return env
}

func (e *testEnv) do(method, path string, role trip.Role, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+e.tokens[role])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) expect(rec *httptest.ResponseRecorder, code int) map[string]any {
	e.t.Helper()
	if rec.Code != code {
		e.t.Fatalf("status = %d, want %d, body %s", rec.Code, code, rec.Body.String())
	}
	out := map[string]any{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return out
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	body := env.expect(env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"mobile": "+91 90000 00002", "password": "secret123"}), http.StatusOK)
	if body["token"] == "" || body["token"] == nil {
		t.Fatalf("login body = %v", body)
	}
	env.expect(env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"mobile": "9000000002", "password": "nope"}), http.StatusUnauthorized)
	env.expect(env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"mobile": "9000000002", "password": "nope"}), http.StatusUnauthorized)
	env.expect(env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"mobile": "9000000002", "password": "secret123"}), http.StatusTooManyRequests)
}

func TestAuthAndRoles(t *testing.T) {
	env := newTestEnv(t)
	env.expect(env.do(http.MethodGet, "/api/driver/trips", "", nil), http.StatusUnauthorized)
	env.expect(env.do(http.MethodPost, "/api/trader/trips", trip.RoleDriver, map[string]any{}), http.StatusForbidden)
	env.expect(env.do(http.MethodGet, "/api/driver/trips", trip.RoleTrader, nil), http.StatusForbidden)

	me := env.expect(env.do(http.MethodGet, "/api/auth/me", trip.RoleLifter, nil), http.StatusOK)
	if me["role"] != string(trip.RoleLifter) {
		t.Fatalf("me = %v", me)
	}
}

func TestTripFlow(t *testing.T) {
	env := newTestEnv(t)

	created := env.expect(env.do(http.MethodPost, "/api/trader/trips", trip.RoleTrader, map[string]any{
		"farmId": env.farmID, "driverId": env.driverID, "tripDate": "2024-06-01",
	}), http.StatusCreated)
	id := int64(created["id"].(float64))
	base := "/api/driver/trips/" + itoa(id)

	totals := env.expect(env.do(http.MethodPost, base+"/cages/1/entries", trip.RoleDriver, map[string]any{"birdCount": 10, "weight": "20.5"}), http.StatusOK)
	if totals["totalBirds"].(float64) != 10 || totals["totalWeight"] != "20.5" {
		t.Fatalf("totals = %v", totals)
	}
	env.expect(env.do(http.MethodPost, base+"/cages/0/entries", trip.RoleDriver, map[string]any{"birdCount": 1, "weight": 1}), http.StatusBadRequest)
	env.expect(env.do(http.MethodPost, base+"/sell", trip.RoleDriver, map[string]any{
		"customerId": env.customer, "cageNumbers": []int{1}, "sellType": "FULL", "rate": 100, "paymentMode": "CASH",
	}), http.StatusConflict)

	env.expect(env.do(http.MethodPost, base+"/complete", trip.RoleDriver, nil), http.StatusOK)

	receipt := env.expect(env.do(http.MethodPost, base+"/sell", trip.RoleDriver, map[string]any{
		"customerId": env.customer, "cageNumbers": []int{1}, "sellType": "FULL", "rate": 100, "paymentMode": "SPLIT",
		"cashAmount": 1000, "upiAmount": 500,
	}), http.StatusCreated)
	if receipt["pending"] != "550" {
		t.Fatalf("receipt = %v", receipt)
	}

	view := env.expect(env.do(http.MethodGet, base+"/cages", trip.RoleDriver, nil), http.StatusOK)
	def := view["1"].(map[string]any)["DEFAULT"].(map[string]any)
	if def["chickens"].(float64) != 0 || def["original_chickens"].(float64) != 10 {
		t.Fatalf("view = %v", view)
	}

	out := env.expect(env.do(http.MethodGet, "/api/trader/customers/outstanding", trip.RoleTrader, nil), http.StatusOK)
	if out["totalOutstanding"] != "550" {
		t.Fatalf("outstanding = %v", out)
	}
	env.expect(env.do(http.MethodPost, "/api/trader/customers/"+itoa(env.customer)+"/credit", trip.RoleTrader, map[string]any{"amount": 600}), http.StatusBadRequest)
	credit := env.expect(env.do(http.MethodPost, "/api/trader/customers/"+itoa(env.customer)+"/credit", trip.RoleTrader, map[string]any{"amount": 50}), http.StatusOK)
	if credit["outstanding"] != "500" {
		t.Fatalf("credit = %v", credit)
	}

	closePath := "/api/trader/trips/" + itoa(id) + "/close-day"
	st := env.expect(env.do(http.MethodPost, closePath, trip.RoleTrader, map[string]any{"dieselExpense": 100, "purchaseRatePerKg": 40}), http.StatusOK)
	if st["margin"] != "1130" {
		t.Fatalf("settlement = %v", st)
	}
	env.expect(env.do(http.MethodPost, closePath, trip.RoleTrader, map[string]any{}), http.StatusConflict)
	env.expect(env.do(http.MethodDelete, base+"/cages/1", trip.RoleDriver, nil), http.StatusConflict)

	sales := env.expect(env.do(http.MethodGet, "/api/trader/trips/"+itoa(id)+"/sales", trip.RoleTrader, nil), http.StatusOK)
	if len(sales["sales"].([]any)) != 1 {
		t.Fatalf("sales = %v", sales)
	}
	expenses := env.expect(env.do(http.MethodGet, "/api/trader/trips/"+itoa(id)+"/expenses", trip.RoleTrader, nil), http.StatusOK)
	if len(expenses["expenses"].([]any)) != 1 {
		t.Fatalf("expenses = %v", expenses)
	}

	rec := env.do(http.MethodPost, "/api/trader/reports/sales?format=csv", trip.RoleTrader, map[string]any{"groupBy": "customer"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), ",Ravi,1,2050.00,1000.00,500.00,550.00") {
		t.Fatalf("csv report = %d %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "sales-by-customer.csv") {
		t.Fatalf("content disposition = %q", cd)
	}
	env.expect(env.do(http.MethodPost, "/api/trader/reports/sales", trip.RoleTrader, map[string]any{"startDate": "01-06-2024"}), http.StatusBadRequest)
}

func TestUnknownTripIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.expect(env.do(http.MethodGet, "/api/driver/trips/404/cages", trip.RoleDriver, nil), http.StatusNotFound)
	env.expect(env.do(http.MethodGet, "/api/driver/trips/abc/cages", trip.RoleDriver, nil), http.StatusBadRequest)
}

func TestRequestIDAndCORS(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/trader/trips", nil)
	req.Header.Set("Origin", "http://app.local")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://app.local" {
		t.Fatalf("allow origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id")
	}
}

func TestNormalizeMobile(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"9876543210", "9876543210", true},
		{"+91 98765-43210", "9876543210", true},
		{"09876543210", "9876543210", true},
		{"1234567890", "", false},
		{"98765", "", false},
	}
	for _, tt := range tests {
		got, ok := normalizeMobile(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("normalizeMobile(%q) = %q, %v", tt.in, got, ok)
		}
	}
}

func itoa(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestRequestLogCarriesActor(t *testing.T) {
	env := newTestEnv(t)
	core, logs := observer.New(zap.InfoLevel)
	srv := NewServer(trip.NewService(env.store, nil), env.store, auth.NewIssuer("test-secret", time.Hour), Options{Logger: zap.New(core)})
	env.handler = srv.Mux()

	env.expect(env.do(http.MethodGet, "/api/driver/trips", trip.RoleDriver, nil), http.StatusOK)
	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("request log lines = %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["actor_id"] != env.driverID || fields["status"] != int64(http.StatusOK) {
		t.Fatalf("log fields = %v", fields)
	}
}

func TestTraderRegistersFarmersAndCustomers(t *testing.T) {
	env := newTestEnv(t)

	env.expect(env.do(http.MethodPost, "/api/trader/farmers", trip.RoleDriver, map[string]any{"name": "Lakshmi"}), http.StatusForbidden)
	env.expect(env.do(http.MethodPost, "/api/trader/farmers", trip.RoleTrader, map[string]any{
		"name": "Lakshmi", "farms": []map[string]string{{"location": " "}},
	}), http.StatusBadRequest)
	farmer := env.expect(env.do(http.MethodPost, "/api/trader/farmers", trip.RoleTrader, map[string]any{
		"name": "Lakshmi", "mobile": "+91 91234 56789", "farms": []map[string]string{{"location": "Hosur"}, {"location": ""}},
	}), http.StatusCreated)
	farms := farmer["farms"].([]any)
	if farmer["mobile"] != "9123456789" || len(farms) != 1 {
		t.Fatalf("farmer = %v", farmer)
	}
	farmID := int64(farms[0].(map[string]any)["id"].(float64))

	env.expect(env.do(http.MethodPost, "/api/trader/customers", trip.RoleTrader, map[string]any{"name": "Anu", "mobile": "12345"}), http.StatusBadRequest)
	customer := env.expect(env.do(http.MethodPost, "/api/trader/customers", trip.RoleTrader, map[string]any{
		"name": "Anu", "mobile": "098765 43210", "openingBalance": "75",
	}), http.StatusCreated)
	if customer["mobile"] != "9876543210" || customer["outstanding"] != "75" {
		t.Fatalf("customer = %v", customer)
	}

	env.expect(env.do(http.MethodPost, "/api/trader/trips", trip.RoleTrader, map[string]any{
		"farmId": farmID, "driverId": env.driverID, "tripDate": "2024-06-02",
	}), http.StatusCreated)
	env.expect(env.do(http.MethodPost, "/api/trader/trips", trip.RoleTrader, map[string]any{
		"farmId": 9999, "driverId": env.driverID, "tripDate": "2024-06-02",
	}), http.StatusNotFound)

	list := env.expect(env.do(http.MethodGet, "/api/trader/trips", trip.RoleTrader, nil), http.StatusOK)
	trips := list["trips"].([]any)
	if len(trips) != 1 || int64(trips[0].(map[string]any)["farmId"].(float64)) != farmID {
		t.Fatalf("trips = %v", list)
	}
	env.expect(env.do(http.MethodGet, "/api/trader/trips", trip.RoleDriver, nil), http.StatusForbidden)
}
