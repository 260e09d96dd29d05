// Package docs registers the OpenAPI document served under /swagger/.
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/challenges/{challenge_id}/fairness-audits": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["fairness"],
                "summary": "List fairness audits for a challenge, newest first",
                "parameters": [
                    {"type": "string", "name": "challenge_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AuditHistoryResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["fairness"],
                "summary": "Run a fairness audit and append its record",
                "parameters": [
                    {"type": "string", "name": "challenge_id", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/FairnessAuditResponse"}},
                    "404": {"description": "Challenge or distribution not found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "424": {"description": "Mandatory upstream unavailable", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/payout-splits": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["fairness"],
                "summary": "Split a bounty by contributor weights",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CalculateSplitRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CalculateSplitResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/challenges/{challenge_id}/evidence-packages": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["evidence"],
                "summary": "List evidence packages for a challenge, newest first",
                "parameters": [
                    {"type": "string", "name": "challenge_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/PackageListResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["evidence"],
                "summary": "Generate and commit an evidence package",
                "parameters": [
                    {"type": "string", "name": "challenge_id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GeneratePackageRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/PackageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Challenge not found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "503": {"description": "Storage unavailable", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/evidence-packages/{artifact_id}/content": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf", "application/json"],
                "tags": ["evidence"],
                "summary": "Download package bytes if they still match the recorded hash",
                "parameters": [
                    {"type": "string", "name": "artifact_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Package bytes"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Integrity violation", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/evidence/verify/{reference}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["evidence"],
                "summary": "Verify a package by its public reference",
                "parameters": [
                    {"type": "string", "name": "reference", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/VerificationResponse"}}
                }
            }
        }
    },
    "definitions": {
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "Flag": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "kind": {"type": "string"},
                "detail": {"type": "string"}
            }
        },
        "Recommendation": {
            "type": "object",
            "properties": {
                "severity": {"type": "string", "enum": ["CRITICAL", "WARNING", "SUGGESTION"]},
                "flag_id": {"type": "string"},
                "title": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "FairnessAuditResponse": {
            "type": "object",
            "properties": {
                "audit_id": {"type": "string"},
                "challenge_id": {"type": "string"},
                "gini_coefficient": {"type": "number"},
                "gini_category": {"type": "string"},
                "fairness_score": {"type": "number"},
                "red_flags": {"type": "array", "items": {"$ref": "#/definitions/Flag"}},
                "green_flags": {"type": "array", "items": {"$ref": "#/definitions/Flag"}},
                "recommendations": {"type": "array", "items": {"$ref": "#/definitions/Recommendation"}},
                "evidence_links": {"type": "array", "items": {"type": "string"}},
                "distribution_source": {"type": "string", "enum": ["PROPOSED_DISTRIBUTION", "REALIZED_PAYMENTS"]},
                "incomplete_sections": {"type": "array", "items": {"type": "string"}},
                "warnings": {"type": "array", "items": {"type": "string"}},
                "input_hash": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"}
            }
        },
        "AuditHistoryResponse": {
            "type": "object",
            "properties": {
                "challenge_id": {"type": "string"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/FairnessAuditResponse"}}
            }
        },
        "CalculateSplitRequest": {
            "type": "object",
            "properties": {
                "bounty": {"type": "number"},
                "contributors": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "contributor_id": {"type": "string"},
                            "weight": {"type": "number"}
                        }
                    }
                }
            }
        },
        "CalculateSplitResponse": {
            "type": "object",
            "properties": {
                "bounty": {"type": "number"},
                "shares": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "contributor_id": {"type": "string"},
                            "weight": {"type": "number"},
                            "percentage": {"type": "number"},
                            "amount": {"type": "number"}
                        }
                    }
                }
            }
        },
        "InclusionFlags": {
            "type": "object",
            "properties": {
                "timeline": {"type": "boolean"},
                "file_hashes": {"type": "boolean"},
                "signatures": {"type": "boolean"},
                "ai_analysis": {"type": "boolean"}
            }
        },
        "GeneratePackageRequest": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["PAYOUT_AUDIT", "COMPLIANCE_REPORT", "INCIDENT_EVIDENCE", "ETHICS_CERTIFICATION"]},
                "include": {"$ref": "#/definitions/InclusionFlags"}
            }
        },
        "PackageResponse": {
            "type": "object",
            "properties": {
                "artifact_id": {"type": "string"},
                "challenge_id": {"type": "string"},
                "kind": {"type": "string"},
                "file_name": {"type": "string"},
                "content_type": {"type": "string"},
                "size_bytes": {"type": "integer"},
                "sha256": {"type": "string"},
                "verification_reference": {"type": "string"},
                "include": {"$ref": "#/definitions/InclusionFlags"},
                "supersedes_id": {"type": "string"},
                "fairness_audit_id": {"type": "string"},
                "incomplete_sections": {"type": "array", "items": {"type": "string"}},
                "created_at": {"type": "string", "format": "date-time"}
            }
        },
        "PackageListResponse": {
            "type": "object",
            "properties": {
                "challenge_id": {"type": "string"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/PackageResponse"}}
            }
        },
        "VerificationResponse": {
            "type": "object",
            "properties": {
                "valid": {"type": "boolean"},
                "artifact_id": {"type": "string"},
                "sha256": {"type": "string"},
                "recomputed_sha256": {"type": "string"},
                "recorded_at": {"type": "string", "format": "date-time"},
                "reason": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Payout Fairness & Evidence Integrity API",
	Description:      "Fairness audits of challenge payouts and tamper-evident evidence packages.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
