package chat

import (
	"fmt"
	"time"
)

const (
	// LoadingMessage is shown while a reply is streaming
	LoadingMessage = "Analyst AI is typing..."

	welcomeMessage = "Hello! I'm Analyst AI specialized in document analysis. I can help you analyze documents, validate data consistency, and detect duplicate metrics across reports.\n\nUpload documents or ask me anything!"

	setupNotice = "\n\n**Important Setup Required**: You need to set up your Gemini API key before using this application. Use the `/key <value>` command to get started."

	credentialUpdatedMessage = "API key has been updated successfully! You can now use the chat."

	invalidCredentialMessage = "API key error: The API key you provided is not valid. Please set a new API key with `/key <value>` to continue."

	genericErrorMessage = "Sorry, an error occurred. Please try again."
)

// defaultPrefixes returns the built-in prefixes seeded into an empty registry
func defaultPrefixes(now time.Time) []Prefix {
	stamp := now.UnixMilli()
	return []Prefix{
		{
			ID:        fmt.Sprintf("data-validation-%d", stamp),
			Name:      "Data Validation & Duplicates",
			Content:   `Please analyze this document with special focus on identifying duplicate metrics and data inconsistencies. For any metric that appears multiple times, report ALL instances with their specific PDF page numbers (e.g., "PDF page 15"). If values are identical, consolidate with page references. If values differ, provide all variations with their respective pages in a simple table format. ONLY provide information that is actually present in the document - do not invent or assume any data. Respond in English only regardless of document language.`,
			CreatedAt: now,
		},
		{
			ID:        fmt.Sprintf("financial-metrics-%d", stamp),
			Name:      "Financial Metrics Analysis",
			Content:   "Extract and analyze all financial metrics from this document. Pay special attention to: Revenue, EBITDA, Net Income, Cash Flow, and any other key financial indicators. If the same metric appears multiple times with different values, report all instances with specific PDF page numbers and flag potential discrepancies. ONLY extract information that is explicitly stated in the document. Do not estimate or assume missing values. Translate all content to English if the document is in another language.",
			CreatedAt: now,
		},
		{
			ID:        fmt.Sprintf("esg-metrics-%d", stamp),
			Name:      "ESG Metrics Analysis",
			Content:   "Analyze all ESG (Environmental, Social, Governance) metrics in this document. Focus on: Scope 1/2/3 emissions, water consumption, waste generation, energy usage, and social indicators. For any metric reported multiple times, provide all values with their specific PDF page references and identify any inconsistencies. ONLY report metrics that are explicitly mentioned in the document. Do not provide typical industry values or estimates for missing data. Provide analysis in English regardless of original document language.",
			CreatedAt: now,
		},
	}
}

func greeting(hasCredential bool) string {
	if hasCredential {
		return welcomeMessage
	}
	return welcomeMessage + setupNotice
}
