package api

import "signalx/internal/common/validation"

var (
	minOne  = 1
	maxName = 200
)

var checkSupplyDemandSchema = validation.JSONSchema{
	Type:                 "object",
	AdditionalProperties: true,
	Properties: map[string]validation.Property{
		"districtName": {Type: "string", MinLength: &minOne, MaxLength: &maxName},
		"blockName":    {Type: "string", MaxLength: &maxName},
		"dryRun":       {Type: "boolean"},
	},
	Required: []string{"districtName"},
}

var bulkAlertSchema = validation.JSONSchema{
	Type:                 "object",
	AdditionalProperties: true,
	Properties: map[string]validation.Property{
		"reports": {Type: "array", Items: &validation.Property{Type: "object"}},
	},
	Required: []string{"reports"},
}

var reviewSchema = validation.JSONSchema{
	Type:                 "object",
	AdditionalProperties: true,
	Properties: map[string]validation.Property{
		"approve":   {Type: "boolean"},
		"publishAt": {Type: "string"},
	},
	Required: []string{"approve"},
}

var createJobSchema = validation.JSONSchema{
	Type:                 "object",
	AdditionalProperties: true,
	Properties: map[string]validation.Property{
		"employerId":     {Type: "string"},
		"title":          {Type: "string", MinLength: &minOne, MaxLength: &maxName},
		"description":    {Type: "string"},
		"district":       {Type: "string", MaxLength: &maxName},
		"block":          {Type: "string", MaxLength: &maxName},
		"salary":         {Type: "string"},
		"skills":         {Type: "array", Items: &validation.Property{Type: "string"}},
		"employmentType": {Type: "string"},
		"publishAt":      {Type: "string"},
	},
	Required: []string{"employerId", "title", "district"},
}

// jobData or jobId; which one is checked by the service.
var sendAlertsSchema = validation.JSONSchema{
	Type:                 "object",
	AdditionalProperties: true,
	Properties: map[string]validation.Property{
		"jobId":   {Type: "string"},
		"jobData": {Type: "object"},
	},
}

var applySchema = validation.JSONSchema{
	Type:                 "object",
	AdditionalProperties: true,
	Properties: map[string]validation.Property{
		"workerId": {Type: "string"},
		"jobId":    {Type: "string"},
	},
	Required: []string{"workerId", "jobId"},
}

var decisionSchema = validation.JSONSchema{
	Type:                 "object",
	AdditionalProperties: true,
	Properties: map[string]validation.Property{
		"status": {Type: "string", Enum: []string{"accepted", "rejected"}},
	},
	Required: []string{"status"},
}

var notifyEmployerSchema = validation.JSONSchema{
	Type:                 "object",
	AdditionalProperties: true,
	Properties: map[string]validation.Property{
		"applicationId": {Type: "string"},
		"jobId":         {Type: "string"},
	},
	Required: []string{"applicationId", "jobId"},
}

var statusEmailSchema = validation.JSONSchema{
	Type:                 "object",
	AdditionalProperties: true,
	Properties: map[string]validation.Property{
		"applicationId": {Type: "string"},
		"status":        {Type: "string", Enum: []string{"accepted", "rejected"}},
	},
	Required: []string{"applicationId", "status"},
}

var ensureUserSchema = validation.JSONSchema{
	Type:                 "object",
	AdditionalProperties: true,
	Properties: map[string]validation.Property{
		"id":          {Type: "string"},
		"email":       {Type: "string"},
		"displayName": {Type: "string"},
	},
	Required: []string{"id", "email"},
}

var profileSchema = validation.JSONSchema{
	Type:                 "object",
	AdditionalProperties: true,
	Properties: map[string]validation.Property{
		"displayName":  {Type: "string", MaxLength: &maxName},
		"organization": {Type: "string", MaxLength: &maxName},
		"phone":        {Type: "string"},
		"district":     {Type: "string"},
	},
	Required: []string{"displayName", "organization"},
}

var testEmailSchema = validation.JSONSchema{
	Type:                 "object",
	AdditionalProperties: true,
	Properties: map[string]validation.Property{
		"to":   {Type: "string"},
		"type": {Type: "string", Enum: []string{testEmailBasic, testEmailRiskAlert, testEmailDigest}},
	},
	Required: []string{"to"},
}
