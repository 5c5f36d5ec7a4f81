package schema

import "strings"

// Role identifies who produced a message.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
	RoleTool   Role = "tool"
)

// Message is the common contract shared by every message variant exchanged
// with a chat model: system instructions, human input, AI output, and tool
// results all implement it.
type Message interface {
	GetRole() Role
	GetContent() []ContentPart
	GetMetadata() map[string]any
	// Text concatenates this message's TextPart content with "\n",
	// ignoring any non-text parts. It returns "" if the message has no
	// text content.
	Text() string
}

func textOf(parts []ContentPart) string {
	var b strings.Builder
	first := true
	for _, p := range parts {
		tp, ok := p.(TextPart)
		if !ok {
			continue
		}
		if !first {
			b.WriteByte('\n')
		}
		b.WriteString(tp.Text)
		first = false
	}
	return b.String()
}

// SystemMessage carries instructions that frame the conversation for the
// model; it never originates from the user or the model itself.
type SystemMessage struct {
	Parts    []ContentPart
	Metadata map[string]any
}

func NewSystemMessage(text string) *SystemMessage {
	return &SystemMessage{Parts: []ContentPart{TextPart{Text: text}}}
}

func (m *SystemMessage) GetRole() Role                { return RoleSystem }
func (m *SystemMessage) GetContent() []ContentPart     { return m.Parts }
func (m *SystemMessage) GetMetadata() map[string]any   { return m.Metadata }
func (m *SystemMessage) Text() string                  { return textOf(m.Parts) }

// HumanMessage is input supplied by the end user.
type HumanMessage struct {
	Parts    []ContentPart
	Metadata map[string]any
}

func NewHumanMessage(text string) *HumanMessage {
	return &HumanMessage{Parts: []ContentPart{TextPart{Text: text}}}
}

func (m *HumanMessage) GetRole() Role              { return RoleHuman }
func (m *HumanMessage) GetContent() []ContentPart   { return m.Parts }
func (m *HumanMessage) GetMetadata() map[string]any { return m.Metadata }
func (m *HumanMessage) Text() string                { return textOf(m.Parts) }

// AIMessage is model output. It may carry tool calls the runtime must
// dispatch before the turn can complete, plus the usage and model
// identity the provider reported for this generation.
type AIMessage struct {
	Parts     []ContentPart
	Metadata  map[string]any
	ToolCalls []ToolCall
	Usage     Usage
	ModelID   string
}

func NewAIMessage(text string) *AIMessage {
	return &AIMessage{Parts: []ContentPart{TextPart{Text: text}}}
}

func (m *AIMessage) GetRole() Role              { return RoleAI }
func (m *AIMessage) GetContent() []ContentPart   { return m.Parts }
func (m *AIMessage) GetMetadata() map[string]any { return m.Metadata }
func (m *AIMessage) Text() string                { return textOf(m.Parts) }

// ToolMessage carries the result of executing a single tool call back into
// the conversation, tied to the originating call by ToolCallID.
type ToolMessage struct {
	Parts      []ContentPart
	Metadata   map[string]any
	ToolCallID string
}

func NewToolMessage(toolCallID, text string) *ToolMessage {
	return &ToolMessage{
		Parts:      []ContentPart{TextPart{Text: text}},
		ToolCallID: toolCallID,
	}
}

func (m *ToolMessage) GetRole() Role              { return RoleTool }
func (m *ToolMessage) GetContent() []ContentPart   { return m.Parts }
func (m *ToolMessage) GetMetadata() map[string]any { return m.Metadata }
func (m *ToolMessage) Text() string                { return textOf(m.Parts) }
