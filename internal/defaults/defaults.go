package defaults

// Backend names accepted by the provider selector.
const (
	BackendClaude = "claude"
	BackendGroq   = "groq"
)

// Default models per backend.
const (
	ClaudeModel = "claude-sonnet-4-20250514"
	GroqModel   = "llama-3.3-70b-versatile"
)

// Provider endpoints. Claude uses the SDK default when BaseURL is empty.
const (
	GroqBaseURL = "https://api.groq.com/openai/v1"
)

// Reddit access.
const (
	RedditBaseURL   = "https://www.reddit.com"
	RedditUserAgent = "persona/1.0 (activity analyzer)"
)

// REPLPrompt is the line-mode input prompt.
const REPLPrompt = "persona> "

// DefaultSystemPrompt is the preamble of the persona system turn. The
// activity digest rendered from fetched records is appended below it.
const DefaultSystemPrompt = `
You are an analyst answering questions about a specific Reddit user, based
only on their public activity listed below.

RULES
- Ground every claim in the listed posts and comments; quote or paraphrase
  them when useful.
- If the activity does not support an answer, say so instead of guessing.
- Be concrete: name subreddits, dates and scores where they matter.
- Keep answers short unless the question asks for depth.
- Reply in the same language as the question.
`
