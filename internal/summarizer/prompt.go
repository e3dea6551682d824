package summarizer

import (
	"strings"
	"unicode/utf8"
)

const promptTemplate = `You are a journalist writing in Axios Smart Brevity style. Summarize the article below using the appropriate format.

First decide whether the article is mainly about a specific PRODUCT (hardware, software, an app or a device) or is EDITORIAL (news, policy, analysis or an industry event).

RULES:
1. Use ONLY information from the article, no outside knowledge
2. Keep each section to 1-2 concise sentences
3. If the article does not have enough content, respond with: "Insufficient content for summary"
4. If the article has a direct quote with a clearly attributed speaker, include the most important one

If EDITORIAL, respond in exactly this format:
FORMAT: EDITORIAL
WHATS_HAPPENING: One strong sentence capturing the core news or development.
WHY_IT_MATTERS: 1-2 sentences explaining why this is significant.
BIG_PICTURE: One sentence on the broader industry or societal implications. Leave this line out if the article is too narrow for broader context.
QUOTE: "quote text" -- Speaker Name

If PRODUCT, respond in exactly this format:
FORMAT: PRODUCT
THE_PRODUCT: What the product is and what it does (1-2 sentences).
COST: Pricing details. Leave this line out if pricing is not mentioned.
AVAILABILITY: When and where it can be bought. Leave this line out if not mentioned.
PLATFORMS: Platforms or operating systems it runs on. Leave this line out for hardware-only products or if not mentioned.
QUOTE: "quote text" -- Speaker Name

Leave the QUOTE line out when the article has no quotes or no clear speaker attribution.

Article:
`

func buildPrompt(article string) string {
	return promptTemplate + article
}

// Truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	end := max
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return strings.ToValidUTF8(s[:end], "")
}
