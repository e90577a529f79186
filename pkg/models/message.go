package models

// Content block types of an agent message.
const (
	BlockTypeText            = "text"
	BlockTypeTable           = "table"
	BlockTypeForm            = "form"
	BlockTypeRecommendations = "recommendations"
	BlockTypeCapabilities    = "capabilities"
)

// AgentMessage is the structured reply the agent sends back to the client.
type AgentMessage struct {
	DisableUserInput bool           `json:"disableUserInput"`
	Summary          string         `json:"summary"`
	Workflow         *WorkflowRef   `json:"workflow,omitempty"`
	Content          []ContentBlock `json:"content,omitempty"`
}

// WorkflowRef tells the client which workflow a message belongs to.
type WorkflowRef struct {
	Name            string `json:"name"`
	ID              string `json:"id,omitempty"`
	CancelationText string `json:"cancelationText,omitempty"`
}

// ContentBlock is a tagged union; Type selects which of the other fields are set.
type ContentBlock struct {
	Type         string               `json:"type"`
	Text         string               `json:"text,omitempty"`
	Data         []map[string]any     `json:"data,omitempty"`
	Filter       map[string]any       `json:"filter,omitempty"`
	Name         string               `json:"name,omitempty"`
	SubmitLabel  string               `json:"submitLabel,omitempty"`
	Fields       []FormField          `json:"fields,omitempty"`
	Actions      []RecommendedAction  `json:"actions,omitempty"`
	Capabilities []CapabilityCategory `json:"capabilities,omitempty"`
}

// FormField is a dropdown field; dropdowns are the only supported form field.
type FormField struct {
	Type     string         `json:"type"`
	Label    string         `json:"label"`
	Name     string         `json:"name"`
	Options  []SelectOption `json:"options"`
	Required bool           `json:"required"`
}

type SelectOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type RecommendedAction struct {
	Action bool   `json:"action"`
	Type   string `json:"type"`
	Label  string `json:"label"`
	Value  string `json:"value"`
}

type CapabilityCategory struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// NewTextMessage builds a message with a summary and a single text block.
func NewTextMessage(text string) *AgentMessage {
	return &AgentMessage{
		Summary: text,
		Content: []ContentBlock{{Type: BlockTypeText, Text: text}},
	}
}

// TransformResults converts a loosely typed result map
// ({summary, result, filter, recommendations, capabilities, workflow, disableUserInput})
// into an AgentMessage. Unknown keys are ignored.
func TransformResults(output map[string]any) *AgentMessage {
	message := &AgentMessage{}
	message.Summary, _ = output["summary"].(string)
	message.DisableUserInput, _ = output["disableUserInput"].(bool)

	if rows := toRows(output["result"]); len(rows) > 0 {
		filter, _ := output["filter"].(map[string]any)
		message.Content = append(message.Content, ContentBlock{Type: BlockTypeTable, Data: rows, Filter: filter})
	}

	if recommendations, ok := output["recommendations"].(map[string]any); ok {
		if block, ok := recommendationsBlock(recommendations); ok {
			message.Content = append(message.Content, block)
		}
	}

	if capabilities, ok := output["capabilities"].([]any); ok && len(capabilities) > 0 {
		block := ContentBlock{Type: BlockTypeCapabilities}

		for _, item := range capabilities {
			category, ok := item.(map[string]any)
			if !ok {
				continue
			}

			title, _ := category["title"].(string)
			description, _ := category["description"].(string)
			block.Capabilities = append(block.Capabilities, CapabilityCategory{Title: title, Description: description})
		}

		message.Content = append(message.Content, block)
	}

	if workflow, ok := output["workflow"].(map[string]any); ok {
		name, _ := workflow["name"].(string)
		if name == "" {
			name = "Workflow"
		}

		message.Workflow = &WorkflowRef{Name: name}
	}

	return message
}

func toRows(value any) []map[string]any {
	switch rows := value.(type) {
	case []map[string]any:
		return rows
	case []any:
		result := make([]map[string]any, 0, len(rows))

		for _, row := range rows {
			if m, ok := row.(map[string]any); ok {
				result = append(result, m)
			}
		}

		return result
	case map[string]any:
		return []map[string]any{rows}
	default:
		return nil
	}
}

func recommendationsBlock(data map[string]any) (ContentBlock, bool) {
	actions, ok := data["actions"].([]any)
	if !ok {
		return ContentBlock{}, false
	}

	name, _ := data["name"].(string)
	if name == "" {
		name = "recommendations"
	}

	block := ContentBlock{Type: BlockTypeRecommendations, Name: name}

	for _, item := range actions {
		action, ok := item.(map[string]any)
		if !ok {
			continue
		}

		label, _ := action["label"].(string)
		value, _ := action["value"].(string)

		var enabled bool
		switch v := action["action"].(type) {
		case bool:
			enabled = v
		case string:
			enabled = v == "true"
		}

		block.Actions = append(block.Actions, RecommendedAction{Action: enabled, Type: "message", Label: label, Value: value})
	}

	return block, true
}
