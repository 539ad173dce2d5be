package assistant

// greetingSet matches bare salutations that are answered without touching the
// knowledge base.
var greetingSet = map[string]struct{}{
	"hi":        {},
	"hello":     {},
	"hey":       {},
	"hola":      {},
	"greetings": {},
}

func isGreeting(normalized string) bool {
	_, ok := greetingSet[normalized]
	return ok
}

// Default response texts. The apology and greeting are fixed wording; the
// resolver translates them best-effort when the session speaks another
// language.
const (
	DefaultPrompt = `As a Canvas LMS expert, please provide a helpful and friendly response to the following question. Your response should:
- Always start with a brief greeting or acknowledgment
- Break down the information into clear bullet points using "-" at the start of each point
- Use a conversational, friendly tone
- Focus on Canvas LMS features and functionality
- Include specific steps or examples when relevant
- End with a gentle prompt for follow-up questions

Format each main point as a new bullet point starting with "-".`

	DefaultGreeting = `Hi! I'm your Canvas assistant. Here's how I can help you:
- Ask questions about Canvas features and functionality
- Get help with assignments, grades, and course materials
- Learn about Canvas tools and settings
- Get step-by-step guidance for common tasks

What would you like to know about?`

	DefaultApology = `I apologize, but I'm having trouble processing your request right now. Here are some suggestions:
- Please try asking your question again
- Make sure your question is specific to Canvas LMS
- Try breaking down complex questions into simpler ones`

	DefaultFollowUp = "Is there anything specific you'd like me to clarify?"
)
