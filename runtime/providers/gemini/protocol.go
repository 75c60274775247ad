// Package gemini speaks the Gemini Live bidirectional protocol over a websocket.
// Canvas images are generated by the imagegen subpackage.
//
// The Live API does not accept TEXT and AUDIO response modalities together;
// the studio session always asks for AUDIO.
package gemini

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PCMMIMEPrefix prefixes the MIME type of every raw PCM audio payload.
const PCMMIMEPrefix = "audio/pcm"

// ErrMalformedMessage is returned for downlink frames that are not a JSON object.
var ErrMalformedMessage = errors.New("malformed server message")

// ServerMessage is one downlink frame (BidiGenerateContentServerMessage).
type ServerMessage struct {
	SetupComplete *SetupComplete `json:"setupComplete,omitempty"`
	ServerContent *ServerContent `json:"serverContent,omitempty"`
	ToolCall      *ToolCallMsg   `json:"toolCall,omitempty"`
	GoAway        *GoAway        `json:"goAway,omitempty"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
}

// SetupComplete acknowledges the setup message. It has no fields.
type SetupComplete struct{}

// GoAway warns that the server will close the connection soon.
type GoAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

// UsageMetadata reports token usage.
type UsageMetadata struct {
	PromptTokenCount   int `json:"promptTokenCount,omitempty"`
	ResponseTokenCount int `json:"responseTokenCount,omitempty"`
	TotalTokenCount    int `json:"totalTokenCount,omitempty"`
}

// ToolCallMsg carries the model's function invocations.
type ToolCallMsg struct {
	FunctionCalls []FunctionCall `json:"functionCalls,omitempty"`
}

// FunctionCall is one tool invocation.
type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name,omitempty"`
	Args map[string]any `json:"args,omitempty"`
}

// StringArg returns args[key] when it is a string.
func (fc FunctionCall) StringArg(key string) (string, bool) {
	v, ok := fc.Args[key].(string)
	return v, ok
}

// ServerContent is streamed model output.
type ServerContent struct {
	ModelTurn          *ModelTurn `json:"modelTurn,omitempty"`
	TurnComplete       bool       `json:"turnComplete,omitempty"`
	GenerationComplete bool       `json:"generationComplete,omitempty"`
	Interrupted        bool       `json:"interrupted,omitempty"`
}

// ModelTurn holds the parts of a model response.
type ModelTurn struct {
	Parts []Part `json:"parts,omitempty"`
}

// Part is text or inline media.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Blob is base64 media tagged with its MIME type. It is used in both directions.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// AudioParts returns the PCM audio payloads of a message's model turn, in
// order. Inline parts of any other MIME type are skipped.
func (m *ServerMessage) AudioParts() []Blob {
	if m == nil || m.ServerContent == nil || m.ServerContent.ModelTurn == nil {
		return nil
	}
	var out []Blob
	for _, p := range m.ServerContent.ModelTurn.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" && p.InlineData.IsPCM() {
			out = append(out, *p.InlineData)
		}
	}
	return out
}

// IsPCM reports whether b carries raw PCM audio.
func (b Blob) IsPCM() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(b.MIMEType)), PCMMIMEPrefix)
}

// Interrupted reports whether the message carries the interruption flag.
func (m *ServerMessage) Interrupted() bool {
	return m != nil && m.ServerContent != nil && m.ServerContent.Interrupted
}

// FunctionCalls returns the message's tool invocations.
func (m *ServerMessage) FunctionCalls() []FunctionCall {
	if m == nil || m.ToolCall == nil {
		return nil
	}
	return m.ToolCall.FunctionCalls
}

// DecodeServerMessage parses one downlink frame.
func DecodeServerMessage(raw []byte) (*ServerMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrMalformedMessage
	}
	var msg ServerMessage
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return &msg, nil
}

// Client messages.

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	MediaChunks []Blob `json:"mediaChunks"`
}

type toolResponseMessage struct {
	ToolResponse toolResponse `json:"toolResponse"`
}

type toolResponse struct {
	FunctionResponses []FunctionResponse `json:"functionResponses"`
}

// FunctionResponse answers one FunctionCall, correlated by ID.
type FunctionResponse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// NewFunctionResult builds a response whose payload is {"result": result}.
func NewFunctionResult(id, name, result string) FunctionResponse {
	return FunctionResponse{ID: id, Name: name, Response: map[string]any{"result": result}}
}
