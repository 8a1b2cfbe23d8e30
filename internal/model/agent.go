package model

// AgentModel describes the LLM backing an agent.
type AgentModel struct {
	Provider    string  `json:"provider"`
	Name        string  `json:"name"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
}

// AgentConfig is the registry entry for one automated participant. UserID is
// the User record the agent posts as; messages it creates are shaped exactly
// like human ones apart from the sender's IsAgent flag.
type AgentConfig struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Name         string     `json:"name"`
	SystemPrompt string     `json:"systemPrompt,omitempty"`
	Model        AgentModel `json:"model"`
}

// ListAgentsResponse is the response for listing agent configs.
type ListAgentsResponse struct {
	Agents []AgentConfig `json:"agents"`
}
