package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "url": "https://github.com/jackzampolin/rxdecode"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/prescription/upload": {
            "post": {
                "description": "Runs both recognizers on the uploaded image, reconciles them, corrects drug names and flags low-confidence entries",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["prescription"],
                "summary": "Decode a prescription image",
                "parameters": [
                    {
                        "type": "file",
                        "description": "Prescription image (JPEG, PNG, GIF, WebP, BMP, TIFF) or PDF",
                        "name": "file",
                        "in": "formData",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/endpoints.UploadResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/endpoints.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/endpoints.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/endpoints.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/endpoints.ErrorResponse"}}
                }
            }
        },
        "/api/text/parse": {
            "post": {
                "description": "Runs the line parser and the correction and review pass over raw OCR text",
                "consumes": ["text/plain"],
                "produces": ["application/json"],
                "tags": ["prescription"],
                "summary": "Parse prescription text",
                "parameters": [
                    {
                        "description": "Raw prescription text, one medicine per line",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"type": "string"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/endpoints.ParseTextResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/endpoints.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/endpoints.ErrorResponse"}}
                }
            }
        },
        "/api/vocabulary": {
            "get": {
                "description": "Canonical drug names used for correction, in file order",
                "produces": ["application/json"],
                "tags": ["vocabulary"],
                "summary": "List the reference vocabulary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/endpoints.VocabularyResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/endpoints.ErrorResponse"}}
                }
            }
        },
        "/api/vocabulary/correct": {
            "get": {
                "description": "Maps a misspelled drug name onto the reference vocabulary",
                "produces": ["application/json"],
                "tags": ["vocabulary"],
                "summary": "Correct a drug name",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Drug name as recognized",
                        "name": "name",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/endpoints.CorrectResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/endpoints.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/endpoints.ErrorResponse"}}
                }
            }
        },
        "/api/prompts": {
            "get": {
                "description": "Get all registered prompts with configured overrides applied",
                "produces": ["application/json"],
                "tags": ["prompts"],
                "summary": "List all prompts",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/endpoints.PromptsListResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/endpoints.ErrorResponse"}}
                }
            }
        },
        "/api/prompts/{key}": {
            "get": {
                "description": "Get a specific prompt by key",
                "produces": ["application/json"],
                "tags": ["prompts"],
                "summary": "Get a prompt",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Prompt key (e.g., recognizers.vision)",
                        "name": "key",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/endpoints.PromptResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/endpoints.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/endpoints.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "description": "Returns ok while the HTTP server is responding",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/endpoints.HealthResponse"}}
                }
            }
        },
        "/ready": {
            "get": {
                "description": "Returns ok only when at least one recognizer is registered",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/endpoints.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/endpoints.HealthResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "description": "Registered providers, pipeline configuration and vocabulary size",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Server status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/endpoints.StatusResponse"}}
                }
            }
        },
        "/metrics": {
            "get": {
                "description": "Pipeline metrics in the Prometheus text exposition format",
                "produces": ["text/plain"],
                "tags": ["health"],
                "summary": "Prometheus metrics",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "endpoints.CorrectResponse": {
            "type": "object",
            "properties": {
                "changed": {"type": "boolean"},
                "corrected": {"type": "string"},
                "input": {"type": "string"}
            }
        },
        "endpoints.ErrorResponse": {
            "type": "object",
            "properties": {
                "details": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "endpoints.HealthResponse": {
            "type": "object",
            "properties": {
                "recognizers": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "endpoints.ParseTextResponse": {
            "type": "object",
            "properties": {
                "medicines": {"type": "array", "items": {"$ref": "#/definitions/rx.Medicine"}}
            }
        },
        "endpoints.PipelineStatus": {
            "type": "object",
            "properties": {
                "degrade_on_failure": {"type": "boolean"},
                "ocr_hint": {"type": "string"},
                "preprocess": {"type": "boolean"},
                "primary": {"type": "string"},
                "secondary": {"type": "string"}
            }
        },
        "endpoints.PromptResponse": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "hash": {"type": "string"},
                "is_override": {"type": "boolean"},
                "key": {"type": "string"},
                "text": {"type": "string"},
                "variables": {"type": "array", "items": {"type": "string"}}
            }
        },
        "endpoints.PromptsListResponse": {
            "type": "object",
            "properties": {
                "prompts": {"type": "array", "items": {"$ref": "#/definitions/endpoints.PromptResponse"}}
            }
        },
        "endpoints.ProvidersStatus": {
            "type": "object",
            "properties": {
                "ocr": {"type": "array", "items": {"type": "string"}},
                "recognizers": {"type": "array", "items": {"type": "string"}}
            }
        },
        "endpoints.StatusResponse": {
            "type": "object",
            "properties": {
                "pipeline": {"$ref": "#/definitions/endpoints.PipelineStatus"},
                "providers": {"$ref": "#/definitions/endpoints.ProvidersStatus"},
                "server": {"type": "string"},
                "vocabulary": {"$ref": "#/definitions/endpoints.VocabularyStatus"}
            }
        },
        "endpoints.UploadResponse": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/rx.Prescription"},
                "message": {"type": "string"}
            }
        },
        "endpoints.VocabularyResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "names": {"type": "array", "items": {"type": "string"}}
            }
        },
        "endpoints.VocabularyStatus": {
            "type": "object",
            "properties": {
                "entries": {"type": "integer"}
            }
        },
        "rx.Medicine": {
            "type": "object",
            "properties": {
                "confidence": {"type": "integer"},
                "dose": {"type": "string"},
                "drug": {"type": "string"},
                "freq": {"type": "string"},
                "notes": {"type": "string"},
                "requiresManualReview": {"type": "boolean"}
            }
        },
        "rx.Prescription": {
            "type": "object",
            "properties": {
                "doctorName": {"type": "string"},
                "medicines": {"type": "array", "items": {"$ref": "#/definitions/rx.Medicine"}},
                "notes": {"type": "string"},
                "specialist": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "rxdecode API",
	Description:      "Handwritten prescription decoding: dual-recognizer reconciliation, drug name correction and review flagging.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
