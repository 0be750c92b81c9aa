package sse

import (
	"bytes"
	"encoding/json"
	"errors"
)

const (
	// DataPrefix marks a data frame. The payload follows the single space.
	DataPrefix = "data: "
	// CommentPrefix marks a frame that carries nothing.
	CommentPrefix = ":"
	// DoneSentinel ends the logical stream. Matched case-sensitively.
	DoneSentinel = "[DONE]"
)

type FrameKind int

const (
	FrameBlank FrameKind = iota
	FrameComment
	FrameData
	FrameUnrecognized
)

func (k FrameKind) String() string {
	switch k {
	case FrameBlank:
		return "blank"
	case FrameComment:
		return "comment"
	case FrameData:
		return "data"
	default:
		return "unrecognized"
	}
}

// ClassifyLine strips a trailing carriage return and reports the frame kind.
// For data frames the returned content is the trimmed text after DataPrefix;
// for unrecognized lines it is the line itself. Blank and comment frames
// return nil content.
func ClassifyLine(line []byte) (FrameKind, []byte) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if bytes.HasPrefix(line, []byte(CommentPrefix)) {
		return FrameComment, nil
	}
	if len(bytes.TrimSpace(line)) == 0 {
		return FrameBlank, nil
	}
	if !bytes.HasPrefix(line, []byte(DataPrefix)) {
		return FrameUnrecognized, line
	}
	return FrameData, bytes.TrimSpace(line[len(DataPrefix):])
}

// DeltaExtractor pulls the incremental text out of one data frame payload.
// It must return an error only when the payload is not a complete JSON
// document; a valid document without text yields ("", nil).
type DeltaExtractor func(payload []byte) (string, error)

var ErrInvalidJSON = errors.New("sse: invalid json payload")

// ChatCompletionDelta reads choices[0].delta.content from an OpenAI-style
// chat completion chunk. Fields of unexpected type are treated as absent.
func ChatCompletionDelta(payload []byte) (string, error) {
	if !json.Valid(payload) {
		return "", ErrInvalidJSON
	}
	var chunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	_ = json.Unmarshal(payload, &chunk)
	if len(chunk.Choices) == 0 {
		return "", nil
	}
	return chunk.Choices[0].Delta.Content, nil
}
