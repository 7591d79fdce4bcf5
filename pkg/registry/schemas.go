package registry

import "github.com/dukex/docflow/pkg/models"

// Config schemas describe the structural shape of each config document. They
// check types and enumerated values only; completeness (required names,
// assignees, condition operands) is left to the validation package so that
// draft workflows can be stored.

func formConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"fields": map[string]any{
				"type":        "array",
				"description": "Ordered form fields. Field names are unique within the step.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":  map[string]any{"type": "string"},
						"label": map[string]any{"type": "string"},
						"fieldType": map[string]any{
							"type": "string",
							"enum": enumValues(models.FieldTypes),
						},
						"required": map[string]any{"type": "boolean"},
						"options": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"uniqueItems": true,
						},
					},
				},
			},
		},
	}
}

func approvalConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"assignedTo": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"kind": map[string]any{
						"type": "string",
						"enum": enumValues(models.AssigneeKinds),
					},
					"value": map[string]any{
						"type":        "string",
						"description": "User id, role name, or dynamic expression depending on kind.",
					},
				},
			},
		},
	}
}

func notificationConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
			"recipientKind": map[string]any{
				"type": "string",
				"enum": enumValues(models.RecipientKinds),
			},
			"customRecipient": map[string]any{"type": "string"},
		},
	}
}

func conditionConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"field": map[string]any{
				"type":        "string",
				"description": "Document or form field the condition reads.",
			},
			"operator": map[string]any{
				"type": "string",
				"enum": enumValues(models.Operators),
			},
			"value": map[string]any{"type": "string"},
		},
	}
}

func emptyConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
	}
}

func enumValues[T ~string](values []T) []any {
	enum := make([]any, 0, len(values))
	for _, v := range values {
		enum = append(enum, string(v))
	}

	return enum
}
