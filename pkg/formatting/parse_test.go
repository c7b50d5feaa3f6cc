package formatting_test

import (
	"errors"
	"testing"

	"github.com/conveyorworks/conveyor/pkg/formatting"
)

type payload struct {
	Found      bool    `json:"found"`
	Confidence float64 `json:"confidence"`
}

func TestDecodeDirect(t *testing.T) {
	got, err := formatting.Decode[payload](`{"found": true, "confidence": 0.9}`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !got.Found || got.Confidence != 0.9 {
		t.Errorf("got %+v, want found=true confidence=0.9", got)
	}
}

func TestDecodeFenced(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"json fence", "```json\n{\"found\": true, \"confidence\": 0.5}\n```"},
		{"bare fence", "```\n{\"found\": true, \"confidence\": 0.5}\n```"},
		{"fence with prose", "Here is the result:\n```json\n{\"found\": true, \"confidence\": 0.5}\n```\nDone."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := formatting.Decode[payload](tc.content)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if !got.Found || got.Confidence != 0.5 {
				t.Errorf("got %+v, want found=true confidence=0.5", got)
			}
		})
	}
}

func TestDecodeFailure(t *testing.T) {
	_, err := formatting.Decode[payload]("the model refused to answer")
	if !errors.Is(err, formatting.ErrDecodeFailed) {
		t.Errorf("got %v, want ErrDecodeFailed", err)
	}
}
