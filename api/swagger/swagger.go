package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ClassTrack API",
        "description": "Class session scheduling and attendance tracking",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and token lifecycle"},
        {"name": "Semesters", "description": "Academic terms and holidays"},
        {"name": "Students", "description": "Student roster"},
        {"name": "Classes", "description": "Class sections and session generation"},
        {"name": "Sessions", "description": "Concrete calendar sessions"},
        {"name": "Enrollments", "description": "Class rosters"},
        {"name": "Attendance", "description": "Scan ingestion and records"},
        {"name": "Reports", "description": "Asynchronous exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "Token pair issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate refresh token",
                "responses": {
                    "200": {"description": "New token pair"},
                    "401": {"description": "Token revoked or expired"}
                }
            }
        },
        "/semesters": {
            "get": {
                "tags": ["Semesters"],
                "summary": "List semesters",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Semesters"],
                "summary": "Create semester",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/semesters/{id}/holidays": {
            "get": {
                "tags": ["Semesters"],
                "summary": "List holidays",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Semesters"],
                "summary": "Add holiday",
                "responses": {
                    "201": {"description": "Created"},
                    "422": {"description": "Date outside the term"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register student",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/classes": {
            "get": {
                "tags": ["Classes"],
                "summary": "List class sections",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Classes"],
                "summary": "Open class section and generate sessions",
                "responses": {
                    "201": {"description": "Created"},
                    "422": {"description": "Missing schedule or semester dates"}
                }
            }
        },
        "/classes/{id}/sessions/generate": {
            "post": {
                "tags": ["Classes"],
                "summary": "Regenerate the session calendar",
                "responses": {
                    "200": {"description": "Sessions regenerated"},
                    "409": {"description": "Attendance already recorded"}
                }
            }
        },
        "/classes/{id}/attendance/summary": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Per-student attendance summary",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List sessions",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/sessions/{id}": {
            "patch": {
                "tags": ["Sessions"],
                "summary": "Edit a session",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll student",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Already enrolled"}
                }
            }
        },
        "/attendance/scan": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Process attendance scan",
                "responses": {
                    "200": {"description": "Per-class outcomes"},
                    "404": {"description": "Unknown code"}
                }
            }
        },
        "/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List attendance records",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Attendance"],
                "summary": "Record attendance manually",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Duplicate or cross-class pair"}
                }
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Request attendance export",
                "responses": {"202": {"description": "Job queued"}}
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download finished export",
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
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
