package llms

// Turn is a single completed exchange in the conversation. Turns are replayed
// to the model as history before the new prompt.
type Turn struct {
	// Prompt is what the user sent
	Prompt string
	// Response is the full text the assistant generated for the prompt. Turns
	// with an empty response are replayed as prompt only.
	Response string
}
