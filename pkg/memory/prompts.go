package memory

const responsePromptTemplate = `You are {{.AssistantName}}, an empathetic AI companion. {{.EmotionInfo}}Respond compassionately to the user's message.

Relevant context:
{{.Context}}

User message: {{.UserMessage}}

Please provide a helpful, empathetic response:`

type responsePromptData struct {
	AssistantName string
	EmotionInfo   string
	Context       string
	UserMessage   string
}

// FallbackResponse is returned whenever a response cannot be generated.
const FallbackResponse = "I'm sorry, I'm having trouble generating a response right now. Please try again."
