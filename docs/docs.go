// Package docs registers the OpenAPI description served at /swagger.
// Regenerate with: swag init -g cmd/order-service/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "produces": ["text/plain"],
                "tags": ["health"],
                "summary": "Liveness and storage readiness",
                "responses": {
                    "200": {"description": "ok", "schema": {"type": "string"}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "string"}}
                }
            }
        },
        "/orders": {
            "post": {
                "description": "Validates the items and customer, computes the total and stores the order as pending.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Place an order",
                "parameters": [
                    {"description": "Order", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/order.CreateOrderRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/order.Order"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/order.HTTPError"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/order.HTTPError"}}
                }
            }
        },
        "/orders/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Get an order",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/order.HTTPError"}}
                }
            },
            "delete": {
                "tags": ["admin"],
                "summary": "Permanently delete an order",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Admin token", "name": "X-Admin-Token", "in": "header", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/order.HTTPError"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/order.HTTPError"}}
                }
            }
        },
        "/orders/{id}/status": {
            "put": {
                "description": "Only transitions in the status table are accepted; anything else is 409 with the current and requested status.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Advance an order's status",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "id", "in": "path", "required": true},
                    {"description": "New status", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/order.UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/order.HTTPError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/order.HTTPError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/order.HTTPError"}}
                }
            }
        },
        "/orders/{id}/cancel": {
            "post": {
                "description": "Allowed from pending or accepted only. A reason is required.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Cancel an order",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "id", "in": "path", "required": true},
                    {"description": "Reason", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/order.CancelOrderRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/order.HTTPError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/order.HTTPError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/order.HTTPError"}}
                }
            }
        },
        "/orders/{id}/notes": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Append a note",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "id", "in": "path", "required": true},
                    {"description": "Note", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/order.AddNoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/order.HTTPError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/order.HTTPError"}}
                }
            }
        },
        "/restaurants/{restaurant_id}/orders": {
            "get": {
                "description": "Insertion order. An unreadable store yields an empty list.",
                "produces": ["application/json"],
                "tags": ["restaurants"],
                "summary": "List a restaurant's orders",
                "parameters": [
                    {"type": "string", "description": "Restaurant ID", "name": "restaurant_id", "in": "path", "required": true},
                    {"type": "string", "description": "Only orders in this status", "name": "status", "in": "query"},
                    {"type": "integer", "description": "Max items (0 = all)", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Items to skip", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/order.ListResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/order.HTTPError"}}
                }
            }
        },
        "/restaurants/{restaurant_id}/statistics": {
            "get": {
                "description": "average_order_value is rounded to cents, half away from zero.",
                "produces": ["application/json"],
                "tags": ["restaurants"],
                "summary": "Restaurant statistics",
                "parameters": [
                    {"type": "string", "description": "Restaurant ID", "name": "restaurant_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Statistics"}}
                }
            }
        },
        "/restaurants/{restaurant_id}/events": {
            "get": {
                "description": "Emits a \"ready\" event once subscribed, then order.created / order.updated events. Events missed while disconnected are not replayed.",
                "produces": ["text/event-stream"],
                "tags": ["restaurants"],
                "summary": "Stream order events (Server-Sent Events)",
                "parameters": [
                    {"type": "string", "description": "Restaurant ID", "name": "restaurant_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "order.Customer": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "name": {"type": "string"},
                "phone": {"type": "string"}
            }
        },
        "order.Item": {
            "type": "object",
            "properties": {
                "menu_item_id": {"type": "string"},
                "name": {"type": "string"},
                "price": {"type": "number"},
                "quantity": {"type": "integer"}
            }
        },
        "order.StatusChange": {
            "type": "object",
            "properties": {
                "at": {"type": "string"},
                "note": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "order.Note": {
            "type": "object",
            "properties": {
                "at": {"type": "string"},
                "text": {"type": "string"}
            }
        },
        "order.Order": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "order_number": {"type": "string"},
                "restaurant_id": {"type": "string"},
                "customer": {"$ref": "#/definitions/order.Customer"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/order.Item"}},
                "total_amount": {"type": "number"},
                "status": {"type": "string", "enum": ["pending", "accepted", "preparing", "ready", "delivered", "cancelled"]},
                "payment_method": {"type": "string", "enum": ["cash", "card", "online"]},
                "delivery_method": {"type": "string", "enum": ["dine_in", "pickup", "delivery"]},
                "table_number": {"type": "string"},
                "delivery_address": {"type": "string"},
                "status_history": {"type": "array", "items": {"$ref": "#/definitions/order.StatusChange"}},
                "notes": {"type": "array", "items": {"$ref": "#/definitions/order.Note"}},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "order.CreateOrderRequest": {
            "type": "object",
            "properties": {
                "restaurant_id": {"type": "string", "example": "rest-42"},
                "customer": {"$ref": "#/definitions/order.Customer"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/order.Item"}},
                "payment_method": {"type": "string", "example": "cash"},
                "delivery_method": {"type": "string", "example": "dine_in"},
                "table_number": {"type": "string", "example": "12"},
                "delivery_address": {"type": "string"}
            }
        },
        "order.UpdateStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "accepted"},
                "note": {"type": "string", "example": "kitchen notified"}
            }
        },
        "order.CancelOrderRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string", "example": "customer left"}
            }
        },
        "order.AddNoteRequest": {
            "type": "object",
            "properties": {
                "note": {"type": "string", "example": "no onions"}
            }
        },
        "order.HTTPError": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "order not found"},
                "current": {"type": "string"},
                "requested": {"type": "string"}
            }
        },
        "order.ListResponse": {
            "type": "object",
            "properties": {
                "restaurant_id": {"type": "string"},
                "status": {"type": "string"},
                "count": {"type": "integer"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/order.Order"}}
            }
        },
        "order.ItemStat": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "quantity": {"type": "integer"},
                "revenue": {"type": "number"}
            }
        },
        "order.Statistics": {
            "type": "object",
            "properties": {
                "total_orders": {"type": "integer"},
                "total_revenue": {"type": "number"},
                "average_order_value": {"type": "number"},
                "completion_rate": {"type": "number"},
                "unique_customers": {"type": "integer"},
                "by_status": {"type": "object", "additionalProperties": {"type": "integer"}},
                "top_items": {"type": "array", "items": {"$ref": "#/definitions/order.ItemStat"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Menu Orders API",
	Description:      "Order lifecycle, ledger and statistics for restaurant menus.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
