package gemini

import "strings"

// Live session defaults for the studio.
const (
	DefaultLiveModel = "gemini-2.5-flash-native-audio-preview-12-2025"
	DefaultVoice     = "Zephyr"
	ModalityAudio    = "AUDIO"

	// GenerateImageTool is the only tool the studio declares.
	GenerateImageTool = "generate_image"

	DefaultSystemInstruction = `You are the creative spirit of Visionary Studio.
You interact with users via real-time audio and video.
- You have a tool called 'generate_image'.
- Use 'generate_image' whenever the user asks you to draw something, visualize a concept, or if you decide to show them something visual.
- Always tell the user "I am drawing that for you now" when you use the tool.`
)

// FunctionDeclaration declares a callable tool. Parameters is an OpenAPI
// schema subset.
type FunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// GenerateImageDeclaration returns the generate_image tool declaration.
func GenerateImageDeclaration() FunctionDeclaration {
	return FunctionDeclaration{
		Name: GenerateImageTool,
		Parameters: map[string]any{
			"type":        "OBJECT",
			"description": "Generates a new image on the users studio canvas based on a description.",
			"properties": map[string]any{
				"prompt": map[string]any{
					"type":        "STRING",
					"description": "A detailed, creative description of the image to generate.",
				},
			},
			"required": []string{"prompt"},
		},
	}
}

// LiveConfig describes the session requested in the setup message.
type LiveConfig struct {
	Model             string
	Voice             string
	SystemInstruction string
	Tools             []FunctionDeclaration
}

// DefaultLiveConfig returns the studio's live session settings.
func DefaultLiveConfig() LiveConfig {
	return LiveConfig{
		Model:             DefaultLiveModel,
		Voice:             DefaultVoice,
		SystemInstruction: DefaultSystemInstruction,
		Tools:             []FunctionDeclaration{GenerateImageDeclaration()},
	}
}

type setupMessage struct {
	Setup setupContent `json:"setup"`
}

type setupContent struct {
	Model             string            `json:"model"`
	GenerationConfig  generationConfig  `json:"generationConfig"`
	SystemInstruction *contentParts     `json:"systemInstruction,omitempty"`
	Tools             []toolDeclaration `json:"tools,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoice `json:"prebuiltVoiceConfig"`
}

type prebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type contentParts struct {
	Parts []Part `json:"parts"`
}

type toolDeclaration struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

// modelPath returns model in the "models/{name}" form the API expects.
func modelPath(model string) string {
	if model == "" {
		model = DefaultLiveModel
	}
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

func buildSetupMessage(cfg LiveConfig) setupMessage {
	voice := cfg.Voice
	if voice == "" {
		voice = DefaultVoice
	}
	content := setupContent{
		Model: modelPath(cfg.Model),
		GenerationConfig: generationConfig{
			ResponseModalities: []string{ModalityAudio},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoice{VoiceName: voice}},
			},
		},
	}
	if cfg.SystemInstruction != "" {
		content.SystemInstruction = &contentParts{Parts: []Part{{Text: cfg.SystemInstruction}}}
	}
	if len(cfg.Tools) > 0 {
		content.Tools = []toolDeclaration{{FunctionDeclarations: cfg.Tools}}
	}
	return setupMessage{Setup: content}
}
