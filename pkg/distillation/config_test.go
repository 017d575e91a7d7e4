package distillation_test

import (
	"testing"

	"github.com/palantir/palantir-compute-module-data-joiner/pkg/distillation"
)

func TestTaskTypeMembership(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{in: "NLI", want: true},
		{in: "CONVERSATION", want: true},
		{in: "NLU_QA", want: true},
		{in: "nli", want: false},
		{in: "SUMMARIZATION", want: false},
		{in: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := distillation.IsTaskType(tt.in); got != tt.want {
				t.Fatalf("IsTaskType(%q)=%t want=%t", tt.in, got, tt.want)
			}
		})
	}
}

func TestInferenceModeValid(t *testing.T) {
	valid := []distillation.InferenceMode{
		distillation.InferenceModeHFTV2ChatCompletion,
		distillation.InferenceModeHFTV2TextGeneration,
		distillation.InferenceModeVLLMChatCompletion,
		distillation.InferenceModeVLLMTextGeneration,
	}
	for _, m := range valid {
		if !m.Valid() {
			t.Fatalf("mode %q should be valid", m)
		}
	}
	if distillation.InferenceMode("vllm_embeddings").Valid() {
		t.Fatalf("unknown mode should be invalid")
	}
}
