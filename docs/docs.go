// Package docs holds the swagger spec served under /swagger/. It is kept
// by hand in the layout swag init emits.
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
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [
                    {"description": "Credentials", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpapi.loginReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpapi.loginResp"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register user",
                "parameters": [
                    {"description": "Credentials", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpapi.registerReq"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.User"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/orders": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Create order",
                "parameters": [
                    {"description": "Order", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpapi.createOrderReq"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Order"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/orders/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Get order by id",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Order"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/orders/{id}/cancel": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Cancel order",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Order"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/payments": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Pay for an order",
                "parameters": [
                    {"type": "string", "description": "Client idempotency key", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Payment", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpapi.createPaymentReq"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Payment"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/payments/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Get payment by id",
                "parameters": [
                    {"type": "string", "description": "Payment ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Payment"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/products": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "List active products",
                "parameters": [
                    {"type": "string", "description": "Name contains", "name": "q", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Product"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Create product",
                "parameters": [
                    {"description": "Product", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpapi.createProductReq"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Product"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/products/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Get product by id",
                "parameters": [
                    {"type": "string", "description": "Product ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Product"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Update product",
                "parameters": [
                    {"type": "string", "description": "Product ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpapi.updateProductReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Product"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Order": {
            "type": "object",
            "properties": {
                "createdAt": {"type": "string"},
                "currency": {"type": "string"},
                "id": {"type": "string"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/domain.OrderItem"}},
                "status": {"type": "string", "enum": ["CREATED", "PAID", "CANCELLED"]},
                "totalAmount": {"type": "number"},
                "userId": {"type": "string"}
            }
        },
        "domain.OrderItem": {
            "type": "object",
            "properties": {
                "productId": {"type": "string"},
                "qty": {"type": "integer"}
            }
        },
        "domain.Payment": {
            "type": "object",
            "properties": {
                "amount": {"type": "number"},
                "createdAt": {"type": "string"},
                "currency": {"type": "string"},
                "id": {"type": "string"},
                "method": {"type": "string", "enum": ["CARD", "TRANSFER"]},
                "orderId": {"type": "string"},
                "providerRef": {"type": "string"},
                "status": {"type": "string", "enum": ["INITIATED", "CAPTURED", "FAILED", "REFUNDED"]}
            }
        },
        "domain.Product": {
            "type": "object",
            "properties": {
                "currency": {"type": "string"},
                "id": {"type": "string"},
                "isActive": {"type": "boolean"},
                "name": {"type": "string"},
                "price": {"type": "number"},
                "stock": {"type": "integer"}
            }
        },
        "domain.User": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "id": {"type": "string"},
                "role": {"type": "string", "enum": ["customer", "admin"]}
            }
        },
        "httpapi.createOrderReq": {
            "type": "object",
            "required": ["items"],
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/domain.OrderItem"}}
            }
        },
        "httpapi.createPaymentReq": {
            "type": "object",
            "required": ["method", "orderId"],
            "properties": {
                "method": {"type": "string", "enum": ["CARD", "TRANSFER"]},
                "orderId": {"type": "string"}
            }
        },
        "httpapi.createProductReq": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "currency": {"type": "string"},
                "isActive": {"type": "boolean"},
                "name": {"type": "string"},
                "price": {"type": "number"},
                "stock": {"type": "integer", "minimum": 0}
            }
        },
        "httpapi.errorBody": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {"type": "array", "items": {}},
                "message": {"type": "string"}
            }
        },
        "httpapi.errorResponse": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/httpapi.errorBody"},
                "requestId": {"type": "string"}
            }
        },
        "httpapi.loginReq": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "httpapi.loginResp": {
            "type": "object",
            "properties": {
                "accessToken": {"type": "string"},
                "expiresIn": {"type": "integer"},
                "tokenType": {"type": "string"}
            }
        },
        "httpapi.registerReq": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 8},
                "role": {"type": "string", "enum": ["customer", "admin"]}
            }
        },
        "httpapi.updateProductReq": {
            "type": "object",
            "properties": {
                "isActive": {"type": "boolean"},
                "name": {"type": "string"},
                "price": {"type": "number"},
                "stock": {"type": "integer", "minimum": 0}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Storefront Order & Payment API",
	Description:      "Orders reserved against inventory and settled by a simulated payment capture.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
