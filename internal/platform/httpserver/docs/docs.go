// Package docs holds the Swagger document served under /swagger/.
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
        "/api/automation/v1/snapshot": {
            "get": {
                "description": "Returns settings, turns, automation flag, recent audit log and platform run states in one read.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "adset-automation"
                ],
                "summary": "Aggregate automation snapshot",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.SnapshotResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/automation/v1/adsets/{adset_id}": {
            "get": {
                "description": "Returns stored settings, or defaults for ad sets not observed yet.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "adset-automation"
                ],
                "summary": "Get ad set settings",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Ad set id",
                        "name": "adset_id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.GetSettingsResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/automation/v1/adsets/{adset_id}/fields": {
            "post": {
                "description": "Validates and writes turns, stopLossPercent or isFrozen for one ad set.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "adset-automation"
                ],
                "summary": "Set one settings field",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Operator identity",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Ad set id",
                        "name": "adset_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Field write",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/http.SetFieldRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.SetFieldResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/automation/v1/adsets/bulk-fields": {
            "post": {
                "description": "Applies the same value to every id; each id reports its own outcome.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "adset-automation"
                ],
                "summary": "Set one field across many ad sets",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Operator identity",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    },
                    {
                        "description": "Bulk write",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/http.BulkSetFieldRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.BulkSetFieldResponse"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/automation/v1/adsets/{adset_id}/run-state": {
            "post": {
                "description": "Records a manual override and applies it on the platform. Frozen ad sets are rejected.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "adset-automation"
                ],
                "summary": "Manually run or pause an ad set",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Operator identity",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Ad set id",
                        "name": "adset_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Target status; empty flips",
                        "name": "request",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/http.ToggleRunStateRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.ToggleRunStateResponse"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Bad Gateway",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/automation/v1/adsets/bulk-run-state": {
            "post": {
                "description": "Applies the same status to every id as a manual override; each id reports its own outcome.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "adset-automation"
                ],
                "summary": "Manually run or pause many ad sets",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Operator identity",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    },
                    {
                        "description": "Ids and target status",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/http.BulkRunStateRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.BulkRunStateResponse"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/automation/v1/scheduled-actions": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "adset-automation"
                ],
                "summary": "List scheduled actions",
                "parameters": [
                    {
                        "type": "boolean",
                        "description": "Only actions that have not run",
                        "name": "pending",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.ListScheduledActionsResponse"
                        }
                    }
                }
            },
            "post": {
                "description": "Stores one action per ad set; the worker applies it as a manual override once the time passes. Frozen ad sets are skipped at execution time.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "adset-automation"
                ],
                "summary": "Schedule a one-shot run or pause",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Operator identity",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    },
                    {
                        "description": "Ids, status and execution time",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/http.ScheduleRunStateRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/http.ScheduleRunStateResponse"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/automation/v1/automation/toggle": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "adset-automation"
                ],
                "summary": "Flip the automation kill switch",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Operator identity",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.ToggleAutomationResponse"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/automation/v1/automation/evaluate": {
            "post": {
                "description": "Evaluates every ad set against schedule and stop-loss and applies boundary crossings. When the API runs beside a worker the request is queued for the worker and answered with 202.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "adset-automation"
                ],
                "summary": "Run one automation cycle now",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Operator identity",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.EvaluateResponse"
                        }
                    },
                    "202": {
                        "description": "Accepted",
                        "schema": {
                            "$ref": "#/definitions/http.EvaluateResponse"
                        }
                    },
                    "502": {
                        "description": "Bad Gateway",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/automation/v1/turns": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "adset-automation"
                ],
                "summary": "List shift definitions",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.ListTurnsResponse"
                        }
                    }
                }
            }
        },
        "/api/automation/v1/turns/{name}": {
            "put": {
                "description": "Replaces the named shift wholesale. Hours use half-hour steps; days accept Mon-Fri, Mon,Wed or L-V.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "adset-automation"
                ],
                "summary": "Create or replace a shift",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Operator identity",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Shift name",
                        "name": "name",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Shift definition",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/http.UpsertTurnRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.UpsertTurnResponse"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/automation/v1/logs": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "adset-automation"
                ],
                "summary": "Recent audit log",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Entries to return (1-50)",
                        "name": "limit",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.ListLogsResponse"
                        }
                    }
                }
            }
        },
        "/health": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "platform"
                ],
                "summary": "Liveness probe",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.HealthResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "http.AdSetSettingsDTO": {
            "type": "object",
            "properties": {
                "adset_id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "turns": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "stop_loss_percent": {
                    "type": "number"
                },
                "is_frozen": {
                    "type": "boolean"
                },
                "last_known_status": {
                    "type": "string"
                },
                "spend": {
                    "type": "number"
                },
                "daily_budget_minor": {
                    "type": "integer"
                },
                "spend_percent": {
                    "type": "number"
                },
                "observed_at": {
                    "type": "string"
                },
                "turns_updated_at": {
                    "type": "string"
                },
                "stop_loss_updated_at": {
                    "type": "string"
                },
                "frozen_updated_at": {
                    "type": "string"
                },
                "manual_override": {
                    "$ref": "#/definitions/http.ManualOverrideDTO"
                },
                "automation": {
                    "$ref": "#/definitions/http.AutomationRecordDTO"
                }
            }
        },
        "http.AuditLogDTO": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "actor": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "cause": {
                    "type": "string"
                },
                "adset_id": {
                    "type": "string"
                },
                "timestamp": {
                    "type": "string"
                }
            }
        },
        "http.AutomationRecordDTO": {
            "type": "object",
            "properties": {
                "state": {
                    "type": "string"
                },
                "cause": {
                    "type": "string"
                },
                "direction": {
                    "type": "string"
                },
                "last_transition_at": {
                    "type": "string"
                },
                "shadow_target": {
                    "type": "string"
                },
                "reconciled": {
                    "type": "boolean"
                },
                "last_error": {
                    "type": "string"
                },
                "attempts": {
                    "type": "integer"
                }
            }
        },
        "http.BulkItemResult": {
            "type": "object",
            "properties": {
                "adset_id": {
                    "type": "string"
                },
                "success": {
                    "type": "boolean"
                },
                "updated_at": {
                    "type": "string"
                },
                "error": {
                    "type": "string"
                },
                "error_code": {
                    "type": "string"
                }
            }
        },
        "http.BulkRunStateRequest": {
            "type": "object",
            "properties": {
                "ids": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "status": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "http.BulkRunStateResponse": {
            "type": "object",
            "properties": {
                "desired": {
                    "type": "string"
                },
                "results": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/http.BulkItemResult"
                    }
                },
                "succeeded": {
                    "type": "integer"
                },
                "failed": {
                    "type": "integer"
                }
            }
        },
        "http.BulkSetFieldRequest": {
            "type": "object",
            "properties": {
                "ids": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "all": {
                    "type": "boolean"
                },
                "field": {
                    "type": "string"
                },
                "value": {}
            }
        },
        "http.BulkSetFieldResponse": {
            "type": "object",
            "properties": {
                "field": {
                    "type": "string"
                },
                "results": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/http.BulkItemResult"
                    }
                },
                "succeeded": {
                    "type": "integer"
                },
                "failed": {
                    "type": "integer"
                }
            }
        },
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "http.EvaluateOutcome": {
            "type": "object",
            "properties": {
                "adset_id": {
                    "type": "string"
                },
                "target": {
                    "type": "string"
                },
                "cause": {
                    "type": "string"
                },
                "desired": {
                    "type": "string"
                },
                "spend_percent": {
                    "type": "number"
                },
                "shadow": {
                    "type": "boolean"
                },
                "applied": {
                    "type": "boolean"
                },
                "error": {
                    "type": "string"
                }
            }
        },
        "http.EvaluateResponse": {
            "type": "object",
            "properties": {
                "queued": {
                    "type": "boolean"
                },
                "started_at": {
                    "type": "string"
                },
                "automation_enabled": {
                    "type": "boolean"
                },
                "evaluated": {
                    "type": "integer"
                },
                "transitions": {
                    "type": "integer"
                },
                "applied": {
                    "type": "integer"
                },
                "failed": {
                    "type": "integer"
                },
                "outcomes": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/http.EvaluateOutcome"
                    }
                }
            }
        },
        "http.GetSettingsResponse": {
            "type": "object",
            "properties": {
                "settings": {
                    "$ref": "#/definitions/http.AdSetSettingsDTO"
                }
            }
        },
        "http.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string"
                },
                "account": {
                    "type": "string"
                },
                "timestamp": {
                    "type": "string"
                }
            }
        },
        "http.ListLogsResponse": {
            "type": "object",
            "properties": {
                "items": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/http.AuditLogDTO"
                    }
                }
            }
        },
        "http.ListScheduledActionsResponse": {
            "type": "object",
            "properties": {
                "items": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/http.ScheduledActionDTO"
                    }
                }
            }
        },
        "http.ListTurnsResponse": {
            "type": "object",
            "properties": {
                "items": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/http.TurnDTO"
                    }
                }
            }
        },
        "http.ManualOverrideDTO": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string"
                },
                "actor": {
                    "type": "string"
                },
                "issued_at": {
                    "type": "string"
                },
                "in_session_at_issue": {
                    "type": "boolean"
                }
            }
        },
        "http.ScheduleRunStateRequest": {
            "type": "object",
            "properties": {
                "ids": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "status": {
                    "type": "string"
                },
                "execute_at": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "http.ScheduleRunStateResponse": {
            "type": "object",
            "properties": {
                "items": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/http.ScheduledActionDTO"
                    }
                },
                "delay_seconds": {
                    "type": "number"
                }
            }
        },
        "http.ScheduledActionDTO": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "adset_id": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "execute_at": {
                    "type": "string"
                },
                "actor": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "state": {
                    "type": "string"
                },
                "executed_at": {
                    "type": "string"
                },
                "error": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                }
            }
        },
        "http.SetFieldRequest": {
            "type": "object",
            "properties": {
                "field": {
                    "type": "string"
                },
                "value": {},
                "message": {
                    "type": "string"
                }
            }
        },
        "http.SetFieldResponse": {
            "type": "object",
            "properties": {
                "adset_id": {
                    "type": "string"
                },
                "field": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                },
                "settings": {
                    "$ref": "#/definitions/http.AdSetSettingsDTO"
                }
            }
        },
        "http.SnapshotResponse": {
            "type": "object",
            "properties": {
                "generated_at": {
                    "type": "string"
                },
                "automation_enabled": {
                    "type": "boolean"
                },
                "settings": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/http.AdSetSettingsDTO"
                    }
                },
                "turns": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/http.TurnDTO"
                    }
                },
                "logs": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/http.AuditLogDTO"
                    }
                },
                "run_states": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "string"
                    }
                }
            }
        },
        "http.ToggleAutomationResponse": {
            "type": "object",
            "properties": {
                "enabled": {
                    "type": "boolean"
                },
                "updated_at": {
                    "type": "string"
                }
            }
        },
        "http.ToggleRunStateRequest": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "http.ToggleRunStateResponse": {
            "type": "object",
            "properties": {
                "adset_id": {
                    "type": "string"
                },
                "desired": {
                    "type": "string"
                },
                "changed": {
                    "type": "boolean"
                },
                "attempts": {
                    "type": "integer"
                }
            }
        },
        "http.TurnDTO": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "start_hour": {
                    "type": "number"
                },
                "end_hour": {
                    "type": "number"
                },
                "days": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                }
            }
        },
        "http.UpsertTurnRequest": {
            "type": "object",
            "properties": {
                "start": {},
                "end": {},
                "days": {
                    "type": "string"
                }
            }
        },
        "http.UpsertTurnResponse": {
            "type": "object",
            "properties": {
                "turn": {
                    "$ref": "#/definitions/http.TurnDTO"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "adshift automation API",
	Description:      "Ad-set scheduling, stop-loss automation and operator settings.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
