package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Course Scheduler API",
        "description": "Section assignment and conflict resolution for course timetables",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Schedule", "description": "Timetable resolution and export"},
        {"name": "Catalog", "description": "Course catalog reads and admin reload"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/schedule": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Resolve requested courses into a conflict-free timetable",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ScheduleResult"}},
                    "400": {"description": "Error or conflict", "schema": {"$ref": "#/definitions/ScheduleResult"}}
                }
            }
        },
        "/api/v1/schedule/export": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Download a timetable as CSV or PDF",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "Rendered document"},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/courses": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List selectable course codes",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/catalog/health": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Report the loaded catalog snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/catalog/reload": {
            "post": {
                "tags": ["Catalog"],
                "summary": "Trigger an asynchronous catalog reload",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "202": {"description": "Reload enqueued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing or invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Insufficient role", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "definitions": {
        "ScheduleRequest": {
            "type": "object",
            "properties": {
                "requests": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "course": {"type": "string"}
                        }
                    }
                },
                "preferences": {"$ref": "#/definitions/Preferences"}
            }
        },
        "Preferences": {
            "type": "object",
            "properties": {
                "noClassBefore": {"type": "string", "example": "10:00"},
                "noClassAfter": {"type": "string", "example": "18:00"},
                "noClassOnDays": {"type": "array", "items": {"type": "string"}},
                "maxContinuousHours": {"type": "number"}
            }
        },
        "ScheduleResult": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["ok", "error", "conflict"]},
                "message": {"type": "string"},
                "timetable": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/TimetableEntry"}
                },
                "warnings": {"type": "array", "items": {"type": "string"}},
                "appliedPreferences": {"$ref": "#/definitions/AppliedPreferences"}
            }
        },
        "TimetableEntry": {
            "type": "object",
            "properties": {
                "course": {"type": "string"},
                "component": {"type": "string"},
                "option": {"type": "string"},
                "day": {"type": "string"},
                "start": {"type": "string"},
                "end": {"type": "string"}
            }
        },
        "AppliedPreferences": {
            "type": "object",
            "properties": {
                "noClassBefore": {"type": "string"},
                "noClassAfter": {"type": "string"},
                "noClassOnDays": {"type": "array", "items": {"type": "string"}},
                "maxContinuousHours": {"type": "number"},
                "softConstraintRelaxed": {"type": "boolean"}
            }
        },
        "ExportScheduleRequest": {
            "type": "object",
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "title": {"type": "string"},
                "timetable": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/TimetableEntry"}
                }
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
