// Package distillation holds the process-wide configuration for the
// distillation data-generation component: endpoint URL patterns, supported
// model registries, inference defaults, prompt templates, and the closed task
// and inference-mode sets. Everything here is immutable after package init.
package distillation

import "time"

// ComponentName identifies the data-generation component in telemetry.
const ComponentName = "oss_distillation_generate_data"

// RequestsRetryDelay is the pause between retried scoring requests.
const RequestsRetryDelay = 5 * time.Second

// SupportedFileFormats lists the input file extensions the generator accepts.
var SupportedFileFormats = []string{".jsonl"}

const (
	TrainFileName      = "train_input.jsonl"
	ValidationFileName = "validation_input.jsonl"
)

// Scoring paths by serving container.
const (
	VLLMChatScorePath     = "/v1/chat/completions"
	HFTV2TextGenScorePath = "/score"
)

// Request batching defaults.
const (
	DefaultSuccessRatio     = 0.7
	DefaultRequestBatchSize = 10
	MaxBatchSize            = 100
)

// Inference request parameter keys (vLLM payload field names).
const (
	KeyTopP             = "top_p"
	KeyMaxTokens        = "max_tokens"
	KeyMaxNewTokens     = "max_new_tokens"
	KeyTemperature      = "temperature"
	KeyFrequencyPenalty = "frequency_penalty"
	KeyPresencePenalty  = "presence_penalty"
	KeyStop             = "stop"
)

// Teacher model default inference parameters.
const (
	DefaultMaxNewTokens = 128
	DefaultTopP         = 0.1
	DefaultTemperature  = 0.2
)

// COTSystemPrompt is the chain-of-thought system prompt sent to the teacher
// model when reasoning traces are requested.
const COTSystemPrompt = "You are a helpful assistant. " +
	"Write out in a step by step manner your reasoning about the answer using no more than 80 words. " +
	"Based on the reasoning, produce the final answer. " +
	"Your response should be in JSON format without using any backticks. " +
	"The JSON is a dictionary whose keys are 'reason' and 'answer_choice'. " +
	"Always generate a syntactically correct JSON without using markdown and any additional words. "

// InferenceMode selects the serving container protocol for scoring requests.
type InferenceMode string

const (
	InferenceModeHFTV2ChatCompletion InferenceMode = "hftv2_chat_completion"
	InferenceModeHFTV2TextGeneration InferenceMode = "hftv2_text_generation"
	InferenceModeVLLMChatCompletion  InferenceMode = "vllm_chat_completion"
	InferenceModeVLLMTextGeneration  InferenceMode = "vllm_text_generation"
)

// Valid reports whether m is one of the supported inference modes.
func (m InferenceMode) Valid() bool {
	switch m {
	case InferenceModeHFTV2ChatCompletion,
		InferenceModeHFTV2TextGeneration,
		InferenceModeVLLMChatCompletion,
		InferenceModeVLLMTextGeneration:
		return true
	}
	return false
}

// TaskType is a data-generation task type.
type TaskType string

const (
	TaskTypeNLI                  TaskType = "NLI"
	TaskTypeConversation         TaskType = "CONVERSATION"
	TaskTypeNLUQuestionAnswering TaskType = "NLU_QA"
)

// Valid reports whether t is one of the supported task types.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeNLI, TaskTypeConversation, TaskTypeNLUQuestionAnswering:
		return true
	}
	return false
}

// IsTaskType reports whether s names a supported task type.
func IsTaskType(s string) bool {
	return TaskType(s).Valid()
}

// Telemetry activity names emitted by the distillation components.
const (
	ActivityInvokeModelEndpoint        = "invoke_model_endpoint"
	ActivityBatchProcessTrainingData   = "batch_process_training_data"
	ActivityBatchProcessValidationData = "batch_process_validation_data"
	ActivityProcessDatasetRecord       = "process_dataset_record"
)
