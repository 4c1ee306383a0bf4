package server

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/server.HealthResponse"}
                    }
                }
            }
        },
        "/convert": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json", "image/gif"],
                "summary": "Convert a video to an animated GIF",
                "parameters": [
                    {"type": "file", "description": "Video file (mp4, webm, mov, avi)", "name": "video", "in": "formData", "required": true},
                    {"type": "integer", "description": "Frames per second", "name": "fps", "in": "formData"},
                    {"type": "number", "description": "Scale factor in (0, 1]", "name": "scale", "in": "formData"}
                ],
                "responses": {
                    "200": {
                        "description": "GIF URL (hosted-url) or GIF attachment (direct-stream)",
                        "schema": {"$ref": "#/definitions/server.ConvertResponse"}
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {"$ref": "#/definitions/server.ErrorResponse"}
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {"$ref": "#/definitions/server.ErrorResponse"}
                    }
                }
            }
        }
    },
    "definitions": {
        "server.ConvertResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "gif_url": {"type": "string"}
            }
        },
        "server.ErrorResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "error": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "server.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "delivery_mode": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Video to GIF Converter API",
	Description:      "API for converting videos to size-bounded animated GIFs.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
