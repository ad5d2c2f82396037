package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Portal Sabido API",
        "description": "School portal for students and instructors: registration, announcements and rosters.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "in": "header",
            "name": "Authorization"
        }
    },
    "tags": [
        {
            "name": "Authentication",
            "description": "Registration, login and logout"
        },
        {
            "name": "Instructor Codes",
            "description": "Four digit instructor codes"
        },
        {
            "name": "Announcements",
            "description": "Instructor announcements and student receipts"
        },
        {
            "name": "Students",
            "description": "Instructor roster"
        }
    ],
    "paths": {
        "/instructor-codes/new": {
            "get": {
                "tags": [
                    "Instructor Codes"
                ],
                "summary": "Suggest an unused instructor code",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "503": {
                        "description": "No free code after the attempt budget",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/instructor-codes/{code}": {
            "get": {
                "tags": [
                    "Instructor Codes"
                ],
                "summary": "Check an instructor code",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "code",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/auth/register/student": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Register a student",
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid form or instructor code",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Email already registered",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/StudentRegistration"
                        }
                    }
                ]
            }
        },
        "/auth/register/instructor": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Register an instructor",
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Email or code already registered",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "503": {
                        "description": "No free instructor code",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/InstructorRegistration"
                        }
                    }
                ]
            }
        },
        "/auth/login": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Authenticate user",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Invalid credentials",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "No account",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Role mismatch",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/LoginRequest"
                        }
                    }
                ]
            }
        },
        "/auth/logout": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Logout current session",
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "401": {
                        "description": "Missing or expired session"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/me": {
            "get": {
                "tags": [
                    "Users"
                ],
                "summary": "Current user",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Missing or expired session"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "patch": {
                "tags": [
                    "Users"
                ],
                "summary": "Update contact number",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Missing or expired session"
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateContact"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/dashboard": {
            "get": {
                "tags": [
                    "Dashboard"
                ],
                "summary": "Dashboard for the session role",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Missing or expired session"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/announcements": {
            "get": {
                "tags": [
                    "Announcements"
                ],
                "summary": "List announcements",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Missing or expired session"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "post": {
                "tags": [
                    "Announcements"
                ],
                "summary": "Create announcement",
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Instructors only",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Missing or expired session"
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateAnnouncement"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/announcements/{id}/view": {
            "post": {
                "tags": [
                    "Announcements"
                ],
                "summary": "Mark announcement viewed",
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "401": {
                        "description": "Missing or expired session"
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/announcements/{id}/acknowledge": {
            "post": {
                "tags": [
                    "Announcements"
                ],
                "summary": "Acknowledge announcement",
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "401": {
                        "description": "Missing or expired session"
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/students": {
            "get": {
                "tags": [
                    "Students"
                ],
                "summary": "List roster",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Instructors only",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Missing or expired session"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/students/{id}": {
            "patch": {
                "tags": [
                    "Students"
                ],
                "summary": "Update student balance or remarks",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Student belongs to another instructor",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Student not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Missing or expired session"
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateStudentInfo"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/students/export": {
            "get": {
                "tags": [
                    "Students"
                ],
                "summary": "Export roster",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Missing or expired session"
                    }
                },
                "parameters": [
                    {
                        "in": "query",
                        "name": "format",
                        "type": "string",
                        "enum": [
                            "csv",
                            "pdf"
                        ]
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "text/csv",
                    "application/pdf"
                ]
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": [
                    "Ops"
                ],
                "summary": "Metrics summary",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "StudentRegistration": {
            "type": "object",
            "properties": {
                "first_name": {
                    "type": "string"
                },
                "middle_name": {
                    "type": "string"
                },
                "last_name": {
                    "type": "string"
                },
                "age": {
                    "type": "integer"
                },
                "gender": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "contact_number": {
                    "type": "string"
                },
                "address": {
                    "type": "string"
                },
                "church_affiliate": {
                    "type": "string"
                },
                "instructor_code": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                },
                "confirm_password": {
                    "type": "string"
                }
            },
            "required": [
                "first_name",
                "last_name",
                "age",
                "gender",
                "email",
                "contact_number",
                "instructor_code",
                "password",
                "confirm_password"
            ]
        },
        "InstructorRegistration": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "contact_number": {
                    "type": "string"
                },
                "instructor_code": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                },
                "confirm_password": {
                    "type": "string"
                }
            },
            "required": [
                "name",
                "email",
                "contact_number",
                "instructor_code",
                "password",
                "confirm_password"
            ]
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                },
                "role": {
                    "type": "string",
                    "enum": [
                        "student",
                        "instructor"
                    ]
                }
            },
            "required": [
                "email",
                "password",
                "role"
            ]
        },
        "UpdateContact": {
            "type": "object",
            "properties": {
                "contact_number": {
                    "type": "string"
                }
            },
            "required": [
                "contact_number"
            ]
        },
        "CreateAnnouncement": {
            "type": "object",
            "required": [
                "title",
                "content",
                "priority"
            ],
            "properties": {
                "title": {
                    "type": "string"
                },
                "content": {
                    "type": "string"
                },
                "priority": {
                    "type": "string",
                    "enum": [
                        "normal",
                        "important",
                        "urgent"
                    ]
                },
                "category": {
                    "type": "string",
                    "enum": [
                        "general",
                        "assignment",
                        "exam",
                        "event",
                        "payment"
                    ]
                },
                "target_audience": {
                    "type": "string",
                    "enum": [
                        "all",
                        "specific",
                        "class"
                    ]
                },
                "target_students": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "is_pinned": {
                    "type": "boolean"
                },
                "attachments": {
                    "type": "array",
                    "items": {
                        "type": "object"
                    }
                },
                "expires_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "UpdateStudentInfo": {
            "type": "object",
            "properties": {
                "balance": {
                    "type": "number"
                },
                "remarks": {
                    "type": "string"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "meta": {
                    "type": "object"
                }
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
