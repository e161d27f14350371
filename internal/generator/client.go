package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/studyloop/backend/internal/executor"
	"github.com/studyloop/backend/internal/models"
)

// LLMClient is the interface both client implementations satisfy.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (*LLMResponse, error)
	CompleteVision(ctx context.Context, systemPrompt, userPrompt, imageMediaType, imageBase64 string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// Generator produces practice-question candidates through the resilient
// executor. It is the only component that talks to the external service.
type Generator struct {
	llm   LLMClient
	exec  *executor.Executor
	model string
}

func NewGenerator(exec *executor.Executor) *Generator {
	var llm LLMClient
	model := "mock"

	if os.Getenv("MOCK_GENERATOR") == "true" {
		llm = NewMockClient()
		log.Println("Generator using mock data")
	} else {
		model = os.Getenv("ANTHROPIC_MODEL")
		if model == "" {
			model = "claude-sonnet-4-5-20250929"
		}
		llm = NewAPIClient(model)
		log.Println("Generator using Anthropic API:", model)
	}

	return &Generator{llm: llm, exec: exec, model: model}
}

func (g *Generator) ModelName() string {
	return g.model
}

// GeneratePractice asks the service for count fresh questions matching the
// request and parses them into candidates. Failures after retry exhaustion
// come back as an error; candidates are never partially parsed.
func (g *Generator) GeneratePractice(ctx context.Context, req models.ResolveRequest, count int) ([]models.GeneratedCandidate, *LLMResponse, error) {
	if count <= 0 {
		count = 1
	}
	systemPrompt := PracticeSystemPrompt()
	userPrompt := BuildPracticePrompt(req, count)

	res := g.exec.Execute(ctx, func(callCtx context.Context) (any, error) {
		return g.llm.Complete(callCtx, systemPrompt, userPrompt)
	}, executor.Options{MaxRetries: executor.DefaultMaxRetries, Timeout: executor.DefaultTimeout})

	if !res.Success {
		return nil, nil, fmt.Errorf("generate practice (%d attempts): %w", res.Attempts, res.Err)
	}

	resp := res.Data.(*LLMResponse)
	candidates, err := ParseCandidates(resp.Content)
	if err != nil {
		return nil, resp, fmt.Errorf("parse practice response: %w", err)
	}

	for i := range candidates {
		applyRequestFields(&candidates[i], req)
	}
	return candidates, resp, nil
}

// ExtractFromWorksheet sends a worksheet image through the vision path and
// parses any questions found on it.
func (g *Generator) ExtractFromWorksheet(ctx context.Context, req models.ResolveRequest, imageMediaType, imageBase64 string) ([]models.GeneratedCandidate, *LLMResponse, error) {
	systemPrompt := WorksheetSystemPrompt()
	userPrompt := BuildWorksheetPrompt(req)

	res := g.exec.Execute(ctx, func(callCtx context.Context) (any, error) {
		return g.llm.CompleteVision(callCtx, systemPrompt, userPrompt, imageMediaType, imageBase64)
	}, executor.Options{MaxRetries: executor.DefaultMaxRetries, Timeout: executor.DefaultTimeout})

	if !res.Success {
		return nil, nil, fmt.Errorf("extract worksheet (%d attempts): %w", res.Attempts, res.Err)
	}

	resp := res.Data.(*LLMResponse)
	candidates, err := ParseCandidates(resp.Content)
	if err != nil {
		return nil, resp, fmt.Errorf("parse worksheet response: %w", err)
	}

	for i := range candidates {
		applyRequestFields(&candidates[i], req)
	}
	return candidates, resp, nil
}

func applyRequestFields(c *models.GeneratedCandidate, req models.ResolveRequest) {
	c.TopicID = req.TopicID
	c.TopicName = req.TopicName
	c.SubtopicID = req.SubtopicID
	c.SubtopicName = req.SubtopicName
	c.Difficulty = req.Difficulty
	c.GradeLevel = req.GradeLevel
}

// ── APIClient — Anthropic SDK (Production) ─────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
}

func NewAPIClient(model string) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	)
	return &APIClient{client: &client, model: model}
}

func (c *APIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (*LLMResponse, error) {
	return c.send(ctx, systemPrompt, []anthropic.ContentBlockParamUnion{
		anthropic.NewTextBlock(userPrompt),
	})
}

func (c *APIClient) CompleteVision(ctx context.Context, systemPrompt, userPrompt, imageMediaType, imageBase64 string) (*LLMResponse, error) {
	return c.send(ctx, systemPrompt, []anthropic.ContentBlockParamUnion{
		anthropic.NewImageBlockBase64(imageMediaType, imageBase64),
		anthropic.NewTextBlock(userPrompt),
	})
}

func (c *APIClient) send(ctx context.Context, systemPrompt string, blocks []anthropic.ContentBlockParamUnion) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   8192,
		Temperature: param.NewOpt(0.8),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyAPIError(err)
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

// classifyAPIError translates SDK errors into the executor's taxonomy so the
// retry loop can distinguish transient overload from bad requests.
func classifyAPIError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		provErr := &executor.ProviderError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Error(),
		}
		if apiErr.StatusCode == 429 && apiErr.Response != nil {
			if ra := apiErr.Response.Header.Get("Retry-After"); ra != "" {
				if d, parseErr := time.ParseDuration(ra + "s"); parseErr == nil {
					provErr.RetryAfter = d
				}
			}
		}
		return provErr
	}
	return err
}

// ── MockClient — Local Development ─────────────────────────

type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (*LLMResponse, error) {
	return &LLMResponse{
		Content:      mockCandidateJSON(),
		PromptTokens: 800,
		OutputTokens: 600,
	}, nil
}

func (m *MockClient) CompleteVision(ctx context.Context, systemPrompt, userPrompt, imageMediaType, imageBase64 string) (*LLMResponse, error) {
	return m.Complete(ctx, systemPrompt, userPrompt)
}

func mockCandidateJSON() string {
	return `{"questions":[
		{"text":"[Mock] A garden bed is 6 meters long and 4 meters wide. How many square meters of soil are needed to cover it?",
		 "correct_answer":"24",
		 "hints":["Area of a rectangle is length times width."],
		 "explanation":"[Mock] Multiply 6 by 4 to get 24 square meters.",
		 "solution_steps":["Write the area formula: A = l × w","Substitute: A = 6 × 4","A = 24"]},
		{"text":"[Mock] Maria reads 15 pages each day. How many pages does she read in 7 days?",
		 "correct_answer":"105",
		 "hints":["Multiply the daily amount by the number of days."],
		 "explanation":"[Mock] 15 pages per day for 7 days is 15 × 7 = 105 pages.",
		 "solution_steps":["15 × 7 = 105"]}
	]}`
}
