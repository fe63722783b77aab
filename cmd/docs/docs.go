// Package docs holds the OpenAPI description served under /swagger.
// Regenerate with: swag init -g cmd/expense_api/main.go -o cmd/docs
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
                "summary": "User login",
                "parameters": [
                    {"description": "Login Credentials", "name": "login", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.LoginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/expenses": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["expenses"],
                "summary": "List expenses",
                "parameters": [
                    {"type": "integer", "description": "Owner user ID", "name": "userId", "in": "query"},
                    {"enum": ["SUBMITTED", "APPROVED", "REJECTED", "REIMBURSED"], "type": "string", "description": "Expense status", "name": "status", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ListExpensesResponse"}},
                    "400": {"description": "Invalid query parameters", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["expenses"],
                "summary": "Submit a new expense",
                "parameters": [
                    {"description": "Expense details", "name": "expense", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.SubmitExpenseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.ExpenseResponse"}},
                    "400": {"description": "Invalid input format or validation error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/expenses/export": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["expenses"],
                "summary": "Export expenses as a spreadsheet",
                "parameters": [
                    {"enum": ["SUBMITTED", "APPROVED", "REJECTED", "REIMBURSED"], "type": "string", "description": "Only export expenses in this status", "name": "status", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "403": {"description": "Caller may not export", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/expenses/{expenseID}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["expenses"],
                "summary": "Get an expense by ID",
                "parameters": [
                    {"type": "integer", "description": "Expense ID", "name": "expenseID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ExpenseResponse"}},
                    "404": {"description": "Expense not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/expenses/{expenseID}/actions": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["expenses"],
                "summary": "Get the audit trail of an expense",
                "parameters": [
                    {"type": "integer", "description": "Expense ID", "name": "expenseID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ListExpenseActionsResponse"}},
                    "404": {"description": "Expense not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/expenses/{expenseID}/approve": {
            "put": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["expenses"],
                "summary": "Approve a submitted expense",
                "parameters": [
                    {"type": "integer", "description": "Expense ID", "name": "expenseID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ExpenseResponse"}},
                    "403": {"description": "Caller is not a manager", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Expense is not SUBMITTED", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/expenses/{expenseID}/reject": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["expenses"],
                "summary": "Reject a submitted expense",
                "parameters": [
                    {"type": "integer", "description": "Expense ID", "name": "expenseID", "in": "path", "required": true},
                    {"description": "Rejection reason", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/dto.RejectExpenseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ExpenseResponse"}},
                    "403": {"description": "Caller is not a manager", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Expense is not SUBMITTED", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/expenses/{expenseID}/reimburse": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["expenses"],
                "summary": "Reimburse an approved expense",
                "parameters": [
                    {"type": "integer", "description": "Expense ID", "name": "expenseID", "in": "path", "required": true},
                    {"description": "Payment comment", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/dto.ReimburseExpenseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ExpenseResponse"}},
                    "403": {"description": "Caller is not finance", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Expense is not APPROVED", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/users/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Get the caller's profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.UserResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.ExpenseActionResponse": {
            "type": "object",
            "properties": {
                "actionID": {"type": "integer"},
                "actionType": {"type": "string"},
                "actorID": {"type": "integer"},
                "comment": {"type": "string"},
                "expenseID": {"type": "integer"},
                "timestamp": {"type": "string"}
            }
        },
        "dto.ExpenseResponse": {
            "type": "object",
            "properties": {
                "amount": {"type": "string"},
                "category": {"type": "string"},
                "createdAt": {"type": "string"},
                "currency": {"type": "string"},
                "description": {"type": "string"},
                "expenseDate": {"type": "string"},
                "expenseID": {"type": "integer"},
                "status": {"type": "string"},
                "updatedAt": {"type": "string"},
                "userID": {"type": "integer"}
            }
        },
        "dto.ListExpenseActionsResponse": {
            "type": "object",
            "properties": {
                "actions": {"type": "array", "items": {"$ref": "#/definitions/dto.ExpenseActionResponse"}}
            }
        },
        "dto.ListExpensesResponse": {
            "type": "object",
            "properties": {
                "expenses": {"type": "array", "items": {"$ref": "#/definitions/dto.ExpenseResponse"}}
            }
        },
        "dto.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "dto.LoginResponse": {
            "type": "object",
            "properties": {
                "expiresAt": {"type": "string"},
                "token": {"type": "string"}
            }
        },
        "dto.RejectExpenseRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string", "maxLength": 500}
            }
        },
        "dto.ReimburseExpenseRequest": {
            "type": "object",
            "properties": {
                "comment": {"type": "string", "maxLength": 500}
            }
        },
        "dto.SubmitExpenseRequest": {
            "type": "object",
            "required": ["category", "description", "expenseDate"],
            "properties": {
                "amount": {"type": "string", "example": "125.50"},
                "category": {"type": "string", "enum": ["TRAVEL", "MEALS", "LODGING", "SUPPLIES", "OTHER"]},
                "currency": {"type": "string", "example": "USD"},
                "description": {"type": "string", "maxLength": 500},
                "expenseDate": {"type": "string", "example": "2024-03-01"}
            }
        },
        "dto.UserResponse": {
            "type": "object",
            "properties": {
                "createdAt": {"type": "string"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "role": {"type": "string"},
                "userID": {"type": "integer"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Expense Reimbursement API",
	Description:      "Expense submission, approval and reimbursement with an append-only audit trail.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
