package apis

import (
	"github.com/tansive/datacatalog/internal/catalogsrv/schemavalidator"
)

var createDatasetSchema = schemavalidator.MustCompileSchema(`{
	"type": "object",
	"properties": {
		"name": {"type": "string", "maxLength": 100},
		"description": {"type": "string"},
		"tags": {"type": "array", "items": {"type": "string"}},
		"parent_id": {"type": "string"}
	},
	"additionalProperties": false
}`)

type createDatasetReq struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags" validate:"omitempty,tagList"`
	ParentID    string   `json:"parent_id" validate:"omitempty,uuid"`
}

var createVersionSchema = schemavalidator.MustCompileSchema(`{
	"type": "object",
	"properties": {
		"description": {"type": "string"},
		"tags": {"type": "array", "items": {"type": "string"}}
	},
	"additionalProperties": false
}`)

type createVersionReq struct {
	Description *string  `json:"description"`
	Tags        []string `json:"tags" validate:"omitempty,tagList"`
}

var updateDatasetSchema = schemavalidator.MustCompileSchema(`{
	"type": "object",
	"properties": {
		"description": {"type": "string", "minLength": 1},
		"tags": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["description"],
	"additionalProperties": false
}`)

type updateDatasetReq struct {
	Description string   `json:"description" validate:"required"`
	Tags        []string `json:"tags" validate:"omitempty,tagList"`
}

var productionSchema = schemavalidator.MustCompileSchema(`{
	"type": "object",
	"properties": {
		"production": {"type": "boolean"}
	},
	"required": ["production"],
	"additionalProperties": false
}`)

type productionReq struct {
	Production *bool `json:"production" validate:"required"`
}
