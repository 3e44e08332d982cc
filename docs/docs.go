// Package docs registers the Swagger specification for the HTTP API.
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
        "/pets": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Pets"],
                "summary": "List the current user's pets",
                "operationId": "listPets",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/pets/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Pets"],
                "summary": "Fetch one pet",
                "operationId": "getPet",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/breeding": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Breeding"],
                "summary": "Initiate a breeding request",
                "operationId": "initiateBreeding",
                "responses": {
                    "201": {"description": "Created"},
                    "402": {"description": "Insufficient balance"},
                    "409": {"description": "Parent busy or on cooldown"}
                }
            }
        },
        "/battles": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Battles"],
                "summary": "Challenge another pet",
                "operationId": "challenge",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/boxes": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Minting"],
                "summary": "Buy a mystery box",
                "operationId": "purchaseBox",
                "responses": {
                    "201": {"description": "Created"},
                    "402": {"description": "Insufficient balance"}
                }
            }
        },
        "/oracle/requests/{id}/fulfill": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Oracle"],
                "summary": "Fulfill a randomness request from the entropy source",
                "operationId": "fulfillFromProvider",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Already fulfilled"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "PetVerse API",
	Description:      "Breeding, battles and mystery-box minting for on-chain pets, backed by an asynchronous randomness oracle.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
