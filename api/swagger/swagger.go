package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Ripetiamo Back Office API",
        "description": "Tutoring back office: prepaid lesson ledger, follow-up scheduling and reporting",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and account management"},
        {"name": "Students", "description": "Student roster and prepaid hour balances"},
        {"name": "Bookings", "description": "Lesson bookings with unpaid detection"},
        {"name": "Contacts", "description": "Follow-up scheduling for leads and clients"},
        {"name": "CallTypes", "description": "Call type catalogue"},
        {"name": "Dashboard", "description": "Admin home screen aggregates"},
        {"name": "Reports", "description": "Asynchronous CSV and PDF exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token pair", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "New token pair"},
                    "401": {"description": "Invalid refresh token"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke refresh token",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Logged out"}}
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a back-office account",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "Students", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create student",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/students/{id}/balance": {
            "get": {
                "tags": ["Students"],
                "summary": "Prepaid balance derived from the lesson ledger",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Balance"}}
            }
        },
        "/students/{id}/top-up": {
            "post": {
                "tags": ["Students"],
                "summary": "Add prepaid hours",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Updated balance"}}
            }
        },
        "/bookings": {
            "get": {
                "tags": ["Bookings"],
                "summary": "List bookings with payment annotations",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "Bookings"}}
            },
            "post": {
                "tags": ["Bookings"],
                "summary": "Create booking",
                "description": "Rejects bookings the prepaid balance cannot cover unless confirm_unpaid is set",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"},
                    "422": {"description": "Booking would be unpaid"}
                }
            }
        },
        "/bookings/preview-unpaid": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Preview whether a booking would be unpaid",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Preview"}}
            }
        },
        "/bookings/unmatched": {
            "get": {
                "tags": ["Bookings"],
                "summary": "Bookings not linked to any student",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Unmatched bookings"}}
            }
        },
        "/bookings/{id}/complete": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Complete booking and consume prepaid hours",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Completed"}}
            }
        },
        "/bookings/{id}/cancel": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Cancel booking",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Cancelled"}}
            }
        },
        "/contacts": {
            "get": {
                "tags": ["Contacts"],
                "summary": "List contacts",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Contacts"}}
            },
            "post": {
                "tags": ["Contacts"],
                "summary": "Create contact",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/contacts/buckets": {
            "get": {
                "tags": ["Contacts"],
                "summary": "Contacts partitioned into due and upcoming",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "day", "in": "query", "type": "string", "description": "Reference day (YYYY-MM-DD)"},
                    {"name": "includeCompleted", "in": "query", "type": "boolean"}
                ],
                "responses": {"200": {"description": "Buckets"}}
            }
        },
        "/contacts/{id}/advance": {
            "post": {
                "tags": ["Contacts"],
                "summary": "Mark contact as contacted and schedule next follow-up",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Updated contact"}}
            }
        },
        "/contacts/{id}/restart-cycle": {
            "post": {
                "tags": ["Contacts"],
                "summary": "Restart the lead nurture cycle",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Contact and cycle state"}}
            }
        },
        "/call-types": {
            "get": {
                "tags": ["CallTypes"],
                "summary": "List call types",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Call types"}}
            },
            "post": {
                "tags": ["CallTypes"],
                "summary": "Create call type",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Back-office dashboard overview",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Overview payload"}}
            }
        },
        "/calendar/month": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Calendar month grid with booking counts",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "day", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "Month grid"}}
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue a report export",
                "security": [{"BearerAuth": []}],
                "responses": {"202": {"description": "Job accepted"}}
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Job state"}}
            }
        },
        "/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished report via signed token",
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File stream"},
                    "404": {"description": "Unknown or expired token"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
