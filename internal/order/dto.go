package order

// CreateOrderRequest checkout payload.
// swagger:model CreateOrderRequest
type CreateOrderRequest struct {
	RestaurantID    string         `json:"restaurant_id"    example:"rest-42"`
	Customer        Customer       `json:"customer"`
	Items           []Item         `json:"items"`
	PaymentMethod   PaymentMethod  `json:"payment_method"   example:"cash"`
	DeliveryMethod  DeliveryMethod `json:"delivery_method"  example:"dine_in"`
	TableNumber     string         `json:"table_number"     example:"12"`
	DeliveryAddress string         `json:"delivery_address" example:""`
}

// UpdateStatusRequest payload of a status change.
// swagger:model UpdateStatusRequest
type UpdateStatusRequest struct {
	Status Status `json:"status" example:"accepted"`
	Note   string `json:"note"   example:"kitchen notified"`
}

// swagger:model CancelOrderRequest
type CancelOrderRequest struct {
	Reason string `json:"reason" example:"customer left"`
}

// swagger:model AddNoteRequest
type AddNoteRequest struct {
	Note string `json:"note" example:"no onions"`
}

// HTTPError represents a standard error in JSON.
// swagger:model
type HTTPError struct {
	// Error message
	// example: order not found
	Error string `json:"error"`
	// Set for invalid status transitions.
	Current   Status `json:"current,omitempty"`
	Requested Status `json:"requested,omitempty"`
}

// ListResponse is the orders of one restaurant.
// swagger:model
type ListResponse struct {
	RestaurantID string  `json:"restaurant_id"`
	Status       Status  `json:"status,omitempty"`
	Count        int     `json:"count"`
	Items        []Order `json:"items"`
}
