package registry

import "github.com/dukex/docflow/pkg/models"

// Output connectors of branching step types.
const (
	ConnectorApproved = "approved"
	ConnectorRejected = "rejected"
	ConnectorTrue     = "true"
	ConnectorFalse    = "false"
)

func builtinStepTypes() []StepTypeDescriptor {
	return []StepTypeDescriptor{
		{
			Type:             models.StepTypeUpload,
			Label:            "Upload",
			Description:      "Receives a document into the workflow.",
			OutputConnectors: []string{models.DefaultConnector},
			ConfigSchema:     emptyConfigSchema(),
			defaultConfig:    &models.EmptyConfig{Type: models.StepTypeUpload},
		},
		{
			Type:             models.StepTypeForm,
			Label:            "Form",
			Description:      "Collects structured data about the document.",
			OutputConnectors: []string{models.DefaultConnector},
			ConfigSchema:     formConfigSchema(),
			defaultConfig:    &models.FormConfig{Fields: []models.FormField{}},
		},
		{
			Type:             models.StepTypeApproval,
			Label:            "Approval",
			Description:      "Waits for an assignee to approve or reject the document.",
			OutputConnectors: []string{ConnectorApproved, ConnectorRejected},
			ConfigSchema:     approvalConfigSchema(),
			defaultConfig: &models.ApprovalConfig{
				AssignedTo: models.Assignee{Kind: models.AssigneeKindUser},
			},
		},
		{
			Type:             models.StepTypeNotification,
			Label:            "Notification",
			Description:      "Sends a message about the document.",
			OutputConnectors: []string{models.DefaultConnector},
			ConfigSchema:     notificationConfigSchema(),
			defaultConfig: &models.NotificationConfig{
				RecipientKind: models.RecipientKindAssignee,
			},
		},
		{
			Type:             models.StepTypeCondition,
			Label:            "Condition",
			Description:      "Routes the document on a field comparison.",
			OutputConnectors: []string{ConnectorTrue, ConnectorFalse},
			ConfigSchema:     conditionConfigSchema(),
			defaultConfig: &models.ConditionConfig{
				Operator: models.OperatorEquals,
			},
		},
		{
			Type:             models.StepTypeArchive,
			Label:            "Archive",
			Description:      "Archives the document. Terminal: has no outputs.",
			OutputConnectors: []string{},
			ConfigSchema:     emptyConfigSchema(),
			defaultConfig:    &models.EmptyConfig{Type: models.StepTypeArchive},
		},
	}
}
