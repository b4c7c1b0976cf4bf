package dto

// CompanionMessageRequestDTO is a message sent to the companion
type CompanionMessageRequestDTO struct {
	Message     string `json:"message" validate:"required,max=2000"`
	SessionType string `json:"session_type,omitempty" validate:"omitempty,oneof=question guidance pattern guardian silence"`
	Tone        string `json:"tone,omitempty" validate:"omitempty,oneof=observation clarity alert protection"`
}

// CompanionMessageResponseDTO is the companion's reply
type CompanionMessageResponseDTO struct {
	Reply       string           `json:"reply"`
	MemoryCount int              `json:"memory_count"`
	TurnCount   int              `json:"turn_count"`
	Quota       QuotaResponseDTO `json:"quota"`
}

// CompanionContextResponseDTO is a preview of the context sent to the model
type CompanionContextResponseDTO struct {
	Context     string `json:"context"`
	MemoryCount int    `json:"memory_count"`
	TurnCount   int    `json:"turn_count"`
}
