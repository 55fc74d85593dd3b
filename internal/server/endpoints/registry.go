package endpoints

import (
	"github.com/jackzampolin/rxdecode/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},
		&MetricsEndpoint{},

		// Prescription endpoints
		&UploadEndpoint{},
		&ParseTextEndpoint{},

		// Vocabulary endpoints
		&CorrectEndpoint{},
		&VocabularyEndpoint{},

		// Prompt endpoints
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},

		// Upload page
		&StaticEndpoint{},
	}
}

