package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/menu-orders/internal/auth"
	"github.com/MikeMC777/menu-orders/internal/kv"
	ord "github.com/MikeMC777/menu-orders/internal/order"
)

//
// ---------- STUBS & FAKES ----------
//

// failingStore implements ord.Store and fails every call.
type failingStore struct{ err error }

func (s *failingStore) List(context.Context, string) ([]ord.Order, error) { return nil, s.err }
func (s *failingStore) Get(context.Context, string) (*ord.Order, error) { return nil, s.err }
func (s *failingStore) Save(context.Context, *ord.Order) error { return s.err }
func (s *failingStore) Update(context.Context, string, func(*ord.Order) error) (*ord.Order, error) {
	return nil, s.err
}
func (s *failingStore) Delete(context.Context, string) error { return s.err }

func newTestRouter(t *testing.T, l *ord.Ledger, rc routeConfig) *gin.Engine {
	t.Helper()
	if l == nil {
		l = ord.NewLedger(ord.NewKVStore(kv.NewMemory(), ""), nil)
	}
	if rc.StreamBuffer == 0 {
		rc.StreamBuffer = 8
	}
	r := gin.New()
	registerRoutes(r, l, rc)
	return r
}

func doJSON(r http.Handler, method, url, body string, headers ...string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, url, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	r.ServeHTTP(w, req)
	return w
}

const juiceBody = `{
	"restaurant_id": "r1",
	"customer": {"name": "Ana", "phone": "555-0001"},
	"items": [{"name": "Juice", "price": 12, "quantity": 2}],
	"payment_method": "cash",
	"delivery_method": "dine_in",
	"table_number": "4"
}`

func createJuice(t *testing.T, r http.Handler) ord.Order {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/orders", juiceBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var o ord.Order
	if err := json.Unmarshal(w.Body.Bytes(), &o); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return o
}

//
// ---------- TESTS ----------
//

func TestCreateOrder_HappyPath(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t, nil, routeConfig{})

	w := doJSON(r, http.MethodPost, "/orders", juiceBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var o ord.Order
	if err := json.Unmarshal(w.Body.Bytes(), &o); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !o.TotalAmount.Equal(decimal.NewFromInt(24)) || o.Status != ord.StatusPending {
		t.Fatalf("total=%s status=%s", o.TotalAmount, o.Status)
	}
	if w.Header().Get("Location") != "/orders/"+o.ID {
		t.Fatalf("location=%q", w.Header().Get("Location"))
	}
	// Amounts are JSON numbers.
	if !strings.Contains(w.Body.String(), `"total_amount":24`) {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestCreateOrder_Invalid(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t, nil, routeConfig{})

	cases := map[string]string{
		"bad json":   `{"items":`,
		"no items":   `{"restaurant_id":"r1","customer":{"name":"A","phone":"1"},"items":[],"payment_method":"cash","delivery_method":"pickup"}`,
		"zero qty":   `{"restaurant_id":"r1","customer":{"name":"A","phone":"1"},"items":[{"name":"x","price":1,"quantity":0}],"payment_method":"cash","delivery_method":"pickup"}`,
		"neg price":  `{"restaurant_id":"r1","customer":{"name":"A","phone":"1"},"items":[{"name":"x","price":-1,"quantity":1}],"payment_method":"cash","delivery_method":"pickup"}`,
		"no address": `{"restaurant_id":"r1","customer":{"name":"A","phone":"1"},"items":[{"name":"x","price":1,"quantity":1}],"payment_method":"cash","delivery_method":"delivery"}`,
	}
	for name, body := range cases {
		w := doJSON(r, http.MethodPost, "/orders", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d body=%s (expected 400)", name, w.Code, w.Body.String())
		}
		var e ord.HTTPError
		if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil || e.Error == "" {
			t.Fatalf("%s: error body=%s", name, w.Body.String())
		}
	}
}

func TestCreateOrder_StorageFailure(t *testing.T) {
	t.Parallel()
	store := &failingStore{err: &ord.StorageError{Op: "write", Err: errors.New("disk full")}}
	r := newTestRouter(t, ord.NewLedger(store, nil), routeConfig{})

	w := doJSON(r, http.MethodPost, "/orders", juiceBody)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d body=%s (expected 503)", w.Code, w.Body.String())
	}
}

func TestGetOrder(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t, nil, routeConfig{})
	o := createJuice(t, r)

	w := doJSON(r, http.MethodGet, "/orders/"+o.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(r, http.MethodGet, "/orders/"+uuid.NewString(), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s (expected 404)", w.Code, w.Body.String())
	}
}

func TestUpdateOrderStatus_Lifecycle(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t, nil, routeConfig{})
	o := createJuice(t, r)
	url := "/orders/" + o.ID + "/status"

	// pending -> preparing skips accepted.
	w := doJSON(r, http.MethodPut, url, `{"status":"preparing"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d body=%s (expected 409)", w.Code, w.Body.String())
	}
	var e ord.HTTPError
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatal(err)
	}
	if e.Current != ord.StatusPending || e.Requested != ord.StatusPreparing {
		t.Fatalf("conflict body=%s", w.Body.String())
	}

	for _, s := range []string{"accepted", "preparing", "ready", "delivered"} {
		w := doJSON(r, http.MethodPut, url, fmt.Sprintf(`{"status":%q,"note":"step"}`, s))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status=%d body=%s", s, w.Code, w.Body.String())
		}
	}

	w = doJSON(r, http.MethodGet, "/orders/"+o.ID, "")
	var got ord.Order
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != ord.StatusDelivered || len(got.History) != 5 {
		t.Fatalf("status=%s history=%d", got.Status, len(got.History))
	}
}

func TestUpdateOrderStatus_UnknownTarget(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t, nil, routeConfig{})
	o := createJuice(t, r)

	w := doJSON(r, http.MethodPut, "/orders/"+o.ID+"/status", `{"status":"shipped"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d body=%s (expected 409)", w.Code, w.Body.String())
	}
	var e ord.HTTPError
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatal(err)
	}
	if e.Current != ord.StatusPending || e.Requested != "shipped" {
		t.Fatalf("conflict body=%s", w.Body.String())
	}
	w = doJSON(r, http.MethodPut, "/orders/"+o.ID+"/status", `{"status":""}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s (expected 400)", w.Code, w.Body.String())
	}
	w = doJSON(r, http.MethodPut, "/orders/"+uuid.NewString()+"/status", `{"status":"accepted"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s (expected 404)", w.Code, w.Body.String())
	}
}

func TestCancelOrder(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t, nil, routeConfig{})
	o := createJuice(t, r)
	url := "/orders/" + o.ID + "/cancel"

	w := doJSON(r, http.MethodPost, url, `{"reason":""}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s (expected 400)", w.Code, w.Body.String())
	}
	w = doJSON(r, http.MethodPost, url, `{"reason":"customer left"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	w = doJSON(r, http.MethodPost, url, `{"reason":"again"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d body=%s (expected 409)", w.Code, w.Body.String())
	}
}

func TestAddNote_OnTerminalOrder(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t, nil, routeConfig{})
	o := createJuice(t, r)
	doJSON(r, http.MethodPost, "/orders/"+o.ID+"/cancel", `{"reason":"no show"}`)

	w := doJSON(r, http.MethodPost, "/orders/"+o.ID+"/notes", `{"note":"refunded"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var got ord.Order
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Notes) != 1 || got.Status != ord.StatusCancelled {
		t.Fatalf("order=%+v", got)
	}
}

func TestDeleteOrder_Admin(t *testing.T) {
	t.Parallel()
	hash, err := auth.HashToken("root")
	if err != nil {
		t.Fatal(err)
	}
	r := newTestRouter(t, nil, routeConfig{AdminTokenHash: hash})
	o := createJuice(t, r)

	if w := doJSON(r, http.MethodDelete, "/orders/"+o.ID, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d (expected 401)", w.Code)
	}
	if w := doJSON(r, http.MethodDelete, "/orders/"+o.ID, "", "X-Admin-Token", "root"); w.Code != http.StatusNoContent {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	// Idempotent.
	if w := doJSON(r, http.MethodDelete, "/orders/"+o.ID, "", "X-Admin-Token", "root"); w.Code != http.StatusNoContent {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if w := doJSON(r, http.MethodGet, "/orders/"+o.ID, ""); w.Code != http.StatusNotFound {
		t.Fatalf("status=%d (expected 404)", w.Code)
	}
}

func TestListRestaurantOrders(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t, nil, routeConfig{})
	a := createJuice(t, r)
	b := createJuice(t, r)
	createJuice(t, r)
	doJSON(r, http.MethodPut, "/orders/"+b.ID+"/status", `{"status":"accepted"}`)

	w := doJSON(r, http.MethodGet, "/restaurants/r1/orders", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var list ord.ListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 3 || list.Items[0].ID != a.ID {
		t.Fatalf("list=%+v", list)
	}

	w = doJSON(r, http.MethodGet, "/restaurants/r1/orders?status=accepted", "")
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 1 || list.Items[0].ID != b.ID {
		t.Fatalf("filtered=%+v", list)
	}

	w = doJSON(r, http.MethodGet, "/restaurants/r1/orders?limit=1&offset=1", "")
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 1 || list.Items[0].ID != b.ID {
		t.Fatalf("page=%+v", list)
	}

	for _, q := range []string{"?status=wtf", "?limit=-1", "?offset=x"} {
		if w := doJSON(r, http.MethodGet, "/restaurants/r1/orders"+q, ""); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d (expected 400)", q, w.Code)
		}
	}
}

func TestListRestaurantOrders_UnreadableStore(t *testing.T) {
	t.Parallel()
	store := &failingStore{err: &ord.StorageError{Op: "read", Err: errors.New("corrupt")}}
	r := newTestRouter(t, ord.NewLedger(store, nil), routeConfig{})

	w := doJSON(r, http.MethodGet, "/restaurants/r1/orders", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"items":[]`) {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestStatistics(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t, nil, routeConfig{})

	w := doJSON(r, http.MethodGet, "/restaurants/r1/statistics", "")
	var st ord.Statistics
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.TotalOrders != 0 || !st.AverageOrderValue.IsZero() {
		t.Fatalf("empty stats=%s", w.Body.String())
	}

	createJuice(t, r)
	createJuice(t, r)
	w = doJSON(r, http.MethodGet, "/restaurants/r1/statistics", "")
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.TotalOrders != 2 || st.UniqueCustomers != 1 || !st.TotalRevenue.Equal(decimal.NewFromInt(48)) {
		t.Fatalf("stats=%s", w.Body.String())
	}
	if len(st.TopItems) != 1 || st.TopItems[0].Name != "Juice" || st.TopItems[0].Quantity != 4 {
		t.Fatalf("top=%+v", st.TopItems)
	}
}

func TestStatistics_AverageRoundedToCents(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t, nil, routeConfig{})

	for _, price := range []string{"4", "3", "3"} {
		body := strings.Replace(juiceBody, `"price": 12, "quantity": 2`, `"price": `+price+`, "quantity": 1`, 1)
		if w := doJSON(r, http.MethodPost, "/orders", body); w.Code != http.StatusCreated {
			t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
		}
	}
	w := doJSON(r, http.MethodGet, "/restaurants/r1/statistics", "")
	if !strings.Contains(w.Body.String(), `"average_order_value":3.33`) {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil, routeConfig{})
	if w := doJSON(r, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	down := func(context.Context) error { return errors.New("db gone") }
	r = newTestRouter(t, nil, routeConfig{Ready: down})
	if w := doJSON(r, http.MethodGet, "/healthz", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d (expected 503)", w.Code)
	}
}

func TestEvents_StreamsRestaurantOrders(t *testing.T) {
	t.Parallel()
	l := ord.NewLedger(ord.NewKVStore(kv.NewMemory(), ""), nil)
	srv := httptest.NewServer(newTestRouter(t, l, routeConfig{}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/restaurants/r1/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content-type=%q", ct)
	}

	sc := bufio.NewScanner(res.Body)
	waitFor := func(event string) string {
		t.Helper()
		for sc.Scan() {
			if sc.Text() != "event:"+event {
				continue
			}
			if sc.Scan() {
				return strings.TrimPrefix(sc.Text(), "data:")
			}
		}
		t.Fatalf("stream ended before %s: %v", event, sc.Err())
		return ""
	}

	waitFor("ready")

	// Other restaurants are filtered out.
	other := ord.CreateOrderRequest{
		RestaurantID:   "r2",
		Customer:       ord.Customer{Name: "Bo", Phone: "2"},
		Items:          []ord.Item{{Name: "Tea", Price: decimal.NewFromInt(1), Quantity: 1}},
		PaymentMethod:  ord.PaymentCard,
		DeliveryMethod: ord.DeliveryPickup,
	}
	if _, err := l.CreateOrder(ctx, other); err != nil {
		t.Fatal(err)
	}
	mine := other
	mine.RestaurantID = "r1"
	o, err := l.CreateOrder(ctx, mine)
	if err != nil {
		t.Fatal(err)
	}

	data := waitFor(string(ord.EventOrderCreated))
	var e ord.Event
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		t.Fatalf("event data=%s: %v", data, err)
	}
	if e.Order.ID != o.ID || e.Order.RestaurantID != "r1" {
		t.Fatalf("event=%+v", e)
	}
}

func init() {
	gin.SetMode(gin.TestMode)
	gin.DefaultWriter = io.Discard
	log.SetOutput(io.Discard)
}
