package tool

import "time"

// Tool is a named capability (RAG, web search, ...) that agents can use.
type Tool struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Defaults are the tools installed by the seeder.
func Defaults() []Tool {
	return []Tool{
		{Name: "rag", Description: "Retrieval augmented generation over uploaded documents"},
		{Name: "web_search", Description: "Search the public web"},
		{Name: "code_interpreter", Description: "Run code in a sandbox"},
		{Name: "image_generation", Description: "Generate images from prompts"},
		{Name: "file_search", Description: "Search files attached to the agent"},
	}
}
