package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/menu-orders/internal/httpx"
	ord "github.com/MikeMC777/menu-orders/internal/order"
)

type routeConfig struct {
	AdminTokenHash string
	StreamBuffer   int
	// Heartbeat is the SSE keep-alive interval; zero disables it.
	Heartbeat time.Duration
	// Ready reports backing store health for /healthz; nil means always ready.
	Ready func(ctx context.Context) error
	// Done closes open event streams on shutdown.
	Done <-chan struct{}
}

func registerRoutes(r *gin.Engine, l *ord.Ledger, rc routeConfig) {
	r.GET("/healthz", healthHandler(rc.Ready))

	orders := r.Group("/orders")
	orders.POST("", createOrderHandler(l))
	orders.GET("/:id", getOrderHandler(l))
	orders.PUT("/:id/status", updateOrderStatusHandler(l))
	orders.POST("/:id/cancel", cancelOrderHandler(l))
	orders.POST("/:id/notes", addNoteHandler(l))
	orders.DELETE("/:id", httpx.AdminOnly(rc.AdminTokenHash), deleteOrderHandler(l))

	restaurants := r.Group("/restaurants/:restaurant_id")
	restaurants.GET("/orders", listRestaurantOrdersHandler(l))
	restaurants.GET("/statistics", statisticsHandler(l))
	restaurants.GET("/events", eventsHandler(l, rc))
}

// writeError maps ledger errors to HTTP statuses.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var ve *ord.ValidationError
	var te *ord.InvalidTransitionError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, ord.HTTPError{Error: err.Error()})
	case errors.As(err, &te):
		c.JSON(http.StatusConflict, ord.HTTPError{Error: err.Error(), Current: te.From, Requested: te.To})
	case errors.Is(err, ord.ErrNotFound):
		c.JSON(http.StatusNotFound, ord.HTTPError{Error: ord.ErrNotFound.Error()})
	case errors.Is(err, ord.ErrAlreadyExists), errors.Is(err, ord.ErrNumberTaken):
		c.JSON(http.StatusConflict, ord.HTTPError{Error: err.Error()})
	case errors.Is(err, ord.ErrStorage):
		c.JSON(http.StatusServiceUnavailable, ord.HTTPError{Error: "order storage unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, ord.HTTPError{Error: "internal error"})
	}
}

// healthHandler godoc
// @Summary      Liveness and storage readiness
// @Tags         health
// @Produce      plain
// @Success      200  {string}  string  "ok"
// @Failure      503  {string}  string
// @Router       /healthz [get]
func healthHandler(ready func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				c.String(http.StatusServiceUnavailable, "store unavailable")
				return
			}
		}
		c.String(http.StatusOK, "ok")
	}
}

// createOrderHandler godoc
// @Summary      Place an order
// @Description  Validates the items and customer, computes the total and stores the order as pending.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        payload  body      ord.CreateOrderRequest  true  "Order"
// @Success      201      {object}  ord.Order
// @Failure      400      {object}  ord.HTTPError
// @Failure      503      {object}  ord.HTTPError
// @Router       /orders [post]
func createOrderHandler(l *ord.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ord.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ord.HTTPError{Error: "invalid json: " + err.Error()})
			return
		}
		o, err := l.CreateOrder(c.Request.Context(), req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Header("Location", "/orders/"+o.ID)
		c.JSON(http.StatusCreated, o)
	}
}

// getOrderHandler godoc
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  ord.Order
// @Failure      404  {object}  ord.HTTPError
// @Router       /orders/{id} [get]
func getOrderHandler(l *ord.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := l.GetOrder(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// updateOrderStatusHandler godoc
// @Summary      Advance an order's status
// @Description  Only transitions in the status table are accepted; anything else is 409 with the current and requested status.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Order ID"
// @Param        payload  body      ord.UpdateStatusRequest  true  "New status"
// @Success      200      {object}  ord.Order
// @Failure      400      {object}  ord.HTTPError
// @Failure      404      {object}  ord.HTTPError
// @Failure      409      {object}  ord.HTTPError
// @Router       /orders/{id}/status [put]
func updateOrderStatusHandler(l *ord.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ord.UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ord.HTTPError{Error: "invalid json: " + err.Error()})
			return
		}
		o, err := l.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, req.Note)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// cancelOrderHandler godoc
// @Summary      Cancel an order
// @Description  Allowed from pending or accepted only. A reason is required.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Order ID"
// @Param        payload  body      ord.CancelOrderRequest  true  "Reason"
// @Success      200      {object}  ord.Order
// @Failure      400      {object}  ord.HTTPError
// @Failure      404      {object}  ord.HTTPError
// @Failure      409      {object}  ord.HTTPError
// @Router       /orders/{id}/cancel [post]
func cancelOrderHandler(l *ord.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ord.CancelOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ord.HTTPError{Error: "invalid json: " + err.Error()})
			return
		}
		o, err := l.CancelOrder(c.Request.Context(), c.Param("id"), req.Reason)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// addNoteHandler godoc
// @Summary      Append a note
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id       path      string              true  "Order ID"
// @Param        payload  body      ord.AddNoteRequest  true  "Note"
// @Success      200      {object}  ord.Order
// @Failure      400      {object}  ord.HTTPError
// @Failure      404      {object}  ord.HTTPError
// @Router       /orders/{id}/notes [post]
func addNoteHandler(l *ord.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ord.AddNoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ord.HTTPError{Error: "invalid json: " + err.Error()})
			return
		}
		o, err := l.AddNote(c.Request.Context(), c.Param("id"), req.Note)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// deleteOrderHandler godoc
// @Summary      Permanently delete an order
// @Tags         admin
// @Param        id              path    string  true  "Order ID"
// @Param        X-Admin-Token   header  string  true  "Admin token"
// @Success      204
// @Failure      401  {object}  ord.HTTPError
// @Failure      403  {object}  ord.HTTPError
// @Router       /orders/{id} [delete]
func deleteOrderHandler(l *ord.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := l.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// listRestaurantOrdersHandler godoc
// @Summary      List a restaurant's orders
// @Description  Insertion order. An unreadable store yields an empty list.
// @Tags         restaurants
// @Produce      json
// @Param        restaurant_id  path      string  true   "Restaurant ID"
// @Param        status         query     string  false  "Only orders in this status"
// @Param        limit          query     int     false  "Max items (0 = all)"
// @Param        offset         query     int     false  "Items to skip"
// @Success      200            {object}  ord.ListResponse
// @Failure      400            {object}  ord.HTTPError
// @Router       /restaurants/{restaurant_id}/orders [get]
func listRestaurantOrdersHandler(l *ord.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.Param("restaurant_id")
		status := ord.Status(c.Query("status"))
		if status != "" && !status.Valid() {
			c.JSON(http.StatusBadRequest, ord.HTTPError{Error: "unknown status " + string(status)})
			return
		}
		limit, err1 := strconv.Atoi(c.DefaultQuery("limit", "0"))
		offset, err2 := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if err1 != nil || err2 != nil || limit < 0 || offset < 0 {
			c.JSON(http.StatusBadRequest, ord.HTTPError{Error: "limit and offset must be non-negative integers"})
			return
		}

		orders := l.ListOrders(c.Request.Context(), rid)
		if status != "" {
			kept := orders[:0]
			for _, o := range orders {
				if o.Status == status {
					kept = append(kept, o)
				}
			}
			orders = kept
		}
		if offset > len(orders) {
			offset = len(orders)
		}
		orders = orders[offset:]
		if limit > 0 && limit < len(orders) {
			orders = orders[:limit]
		}
		c.JSON(http.StatusOK, ord.ListResponse{
			RestaurantID: rid,
			Status:       status,
			Count:        len(orders),
			Items:        orders,
		})
	}
}

// statisticsHandler godoc
// @Summary      Restaurant statistics
// @Tags         restaurants
// @Description  average_order_value is rounded to cents, half away from zero.
// @Produce      json
// @Param        restaurant_id  path      string  true  "Restaurant ID"
// @Success      200            {object}  ord.Statistics
// @Router       /restaurants/{restaurant_id}/statistics [get]
func statisticsHandler(l *ord.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := l.Statistics(c.Request.Context(), c.Param("restaurant_id"))
		st.AverageOrderValue = st.AverageOrderValue.Round(2)
		c.JSON(http.StatusOK, st)
	}
}

// eventsHandler godoc
// @Summary      Stream order events (Server-Sent Events)
// @Description  Emits a "ready" event once subscribed, then order.created / order.updated events. Events missed while disconnected are not replayed.
// @Tags         restaurants
// @Produce      text/event-stream
// @Param        restaurant_id  path  string  true  "Restaurant ID"
// @Success      200
// @Router       /restaurants/{restaurant_id}/events [get]
func eventsHandler(l *ord.Ledger, rc routeConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.Param("restaurant_id")
		events, stop := l.Bus().Stream(rid, rc.StreamBuffer)
		defer stop()

		var heartbeat <-chan time.Time
		if rc.Heartbeat > 0 {
			t := time.NewTicker(rc.Heartbeat)
			defer t.Stop()
			heartbeat = t.C
		}

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		c.SSEvent("ready", gin.H{"restaurant_id": rid})
		c.Writer.Flush()

		c.Stream(func(w io.Writer) bool {
			select {
			case e, ok := <-events:
				if !ok {
					return false
				}
				c.SSEvent(string(e.Kind), e)
				return true
			case <-heartbeat:
				c.SSEvent("ping", time.Now().UTC())
				return true
			case <-c.Request.Context().Done():
				return false
			case <-rc.Done:
				return false
			}
		})
	}
}
