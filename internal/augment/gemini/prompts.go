package gemini

import "fmt"

// generationConfig mirrors the generateContent generationConfig object.
type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP"`
}

var (
	responseConfig = generationConfig{Temperature: 0.7, MaxOutputTokens: 200, TopP: 0.9}
	summaryConfig  = generationConfig{Temperature: 0.3, MaxOutputTokens: 100, TopP: 0.9}
	actionsConfig  = generationConfig{Temperature: 0.6, MaxOutputTokens: 150, TopP: 0.9}
)

func responsePrompt(rating int, text string) string {
	return fmt.Sprintf(`You are a professional and empathetic customer service representative responding to a review.

Customer Rating: %d/5 stars
Customer Review: %s

Write a brief, warm, and professional response that:
- Acknowledges their specific feedback
- If positive: Thanks them and highlights what you appreciated
- If negative: Apologizes, addresses their concerns, and offers to improve
- Maximum 2-3 sentences (under 150 words)

Response:`, rating, text)
}

func summaryPrompt(text string) string {
	return fmt.Sprintf(`Extract the key points from this customer review in 1-2 concise sentences (max 50 words).
Focus on specific issues, praise, or problems mentioned.

Review: %q

Summary (be specific, not generic):`, text)
}

func actionsPrompt(rating int, text string) string {
	return fmt.Sprintf(`Based on this customer feedback, suggest 1-2 specific, concrete business actions.

Rating: %d/5 stars
Review: %q

For POSITIVE feedback: How to leverage or reinforce this?
For NEGATIVE feedback: What specific issues need addressing?

Provide 2 actionable items (max 60 words):

Actions:`, rating, text)
}
