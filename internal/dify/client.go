// Package dify is a minimal client for the Dify workflow API: file upload,
// blocking workflow runs, and tolerant extraction of the workflow answer.
package dify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/feever-health/feever/internal/config"
	"github.com/feever-health/feever/internal/resilience"
)

const (
	defaultBaseURL = "https://api.dify.ai/v1"
	defaultUser    = "feever-backend"
)

// Client calls the Dify workflow API. All requests pass through a shared
// rate limiter and transient failures are retried with backoff.
type Client struct {
	apiKey          string
	baseURL         string
	emailWorkflowID string
	user            string
	httpClient      *http.Client
	limiter         *rate.Limiter
	retry           resilience.RetryConfig
}

// NewClient creates a Client from configuration. The request timeout bounds
// a single attempt; retries layer on top.
func NewClient(cfg config.DifyConfig) (*Client, error) {
	if cfg.Key == "" {
		return nil, eris.New("dify: api key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2.0
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("dify", "workflow")

	return &Client{
		apiKey:          cfg.Key,
		baseURL:         strings.TrimRight(baseURL, "/"),
		emailWorkflowID: cfg.EmailWorkflowID,
		user:            defaultUser,
		httpClient:      &http.Client{Timeout: timeout},
		limiter:         rate.NewLimiter(rate.Limit(rps), 1),
		retry:           retryCfg,
	}, nil
}

// FileInput references an uploaded file in a workflow run.
type FileInput struct {
	Type           string `json:"type"`
	TransferMethod string `json:"transfer_method"`
	UploadFileID   string `json:"upload_file_id"`
}

// ImageInput builds the file reference for a previously uploaded image.
func ImageInput(fileID string) FileInput {
	return FileInput{Type: "image", TransferMethod: "local_file", UploadFileID: fileID}
}

type uploadResponse struct {
	ID string `json:"id"`
}

// UploadFile uploads a file and returns its Dify file ID.
func (c *Client) UploadFile(ctx context.Context, filename string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", eris.Wrap(err, "dify: read upload content")
	}

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (string, error) {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			return "", eris.Wrap(err, "dify: create form file")
		}
		if _, err := part.Write(data); err != nil {
			return "", eris.Wrap(err, "dify: write form file")
		}
		if err := writer.WriteField("user", c.user); err != nil {
			return "", eris.Wrap(err, "dify: write user field")
		}
		if err := writer.Close(); err != nil {
			return "", eris.Wrap(err, "dify: close multipart writer")
		}

		respBody, err := c.do(ctx, c.baseURL+"/files/upload", &body, writer.FormDataContentType())
		if err != nil {
			return "", err
		}

		var upload uploadResponse
		if err := json.Unmarshal(respBody, &upload); err != nil {
			return "", eris.Wrap(err, "dify: unmarshal upload response")
		}
		if upload.ID == "" {
			return "", eris.New("dify: upload response has no file id")
		}
		return upload.ID, nil
	})
}

type workflowRequest struct {
	Inputs       map[string]any `json:"inputs"`
	ResponseMode string         `json:"response_mode"`
	User         string         `json:"user"`
	WorkflowID   string         `json:"workflow_id,omitempty"`
	Files        []FileInput    `json:"files,omitempty"`
}

type workflowResponse struct {
	Data struct {
		Outputs map[string]any `json:"outputs"`
	} `json:"data"`
	Message string `json:"message"`
}

// RunWorkflow executes a workflow in blocking mode and returns its outputs.
// An empty workflowID runs the app's default workflow.
func (c *Client) RunWorkflow(ctx context.Context, workflowID string, inputs map[string]any, files []FileInput) (map[string]any, error) {
	reqBody, err := json.Marshal(workflowRequest{
		Inputs:       inputs,
		ResponseMode: "blocking",
		User:         c.user,
		WorkflowID:   workflowID,
		Files:        files,
	})
	if err != nil {
		return nil, eris.Wrap(err, "dify: marshal workflow request")
	}

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (map[string]any, error) {
		respBody, err := c.do(ctx, c.baseURL+"/workflows/run", bytes.NewReader(reqBody), "application/json")
		if err != nil {
			return nil, err
		}

		var wf workflowResponse
		if err := json.Unmarshal(respBody, &wf); err != nil {
			return nil, eris.Wrap(err, "dify: unmarshal workflow response")
		}
		return wf.Data.Outputs, nil
	})
}

// ExtractBill uploads a bill image and runs the extraction workflow,
// returning the raw workflow answer for downstream parsing.
func (c *Client) ExtractBill(ctx context.Context, filename string, content io.Reader, prompt string) (any, error) {
	fileID, err := c.UploadFile(ctx, filename, content)
	if err != nil {
		return nil, err
	}

	image := ImageInput(fileID)
	outputs, err := c.RunWorkflow(ctx, "", map[string]any{
		"image": image,
		"query": prompt,
	}, []FileInput{image})
	if err != nil {
		return nil, err
	}

	answer := PickAnswer(outputs)
	if answer == nil {
		return nil, eris.New("dify: workflow finished but returned no usable output")
	}
	return answer, nil
}

// promptDataPlaceholder marks where the serialized report is spliced into an
// email prompt.
const promptDataPlaceholder = "[JSON_DATA_HERE]"

// GenerateEmail runs the email-drafting workflow with the analysis report
// spliced into the system prompt, returning the drafted email text.
func (c *Client) GenerateEmail(ctx context.Context, systemPrompt string, analysis any) (string, error) {
	encoded, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "dify: marshal analysis data")
	}
	fullPrompt := strings.ReplaceAll(systemPrompt, promptDataPlaceholder, string(encoded))

	outputs, err := c.RunWorkflow(ctx, c.emailWorkflowID, map[string]any{
		"analysis_data": fullPrompt,
	}, nil)
	if err != nil {
		return "", err
	}

	for _, key := range []string{"email_draft", "text"} {
		if s, ok := outputs[key].(string); ok && s != "" {
			return s, nil
		}
	}
	return "", eris.New("dify: email workflow returned no draft")
}

// do issues one rate-limited POST and returns the response body. Retryable
// statuses come back as transient errors so the retry layer can act on them.
func (c *Client) do(ctx context.Context, url string, body io.Reader, contentType string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "dify: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, eris.Wrap(err, "dify: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "dify: api call"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "dify: read response")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := eris.Errorf("dify: api returned %d: %s", resp.StatusCode, apiErrorMessage(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return nil, apiErr
	}
	return respBody, nil
}

func apiErrorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}

// answerKeys are checked in order when picking the workflow answer out of
// its outputs map.
var answerKeys = []string{"text", "result", "output", "json", "answer"}

// PickAnswer extracts the usable answer from workflow outputs. Named answer
// keys win; an outputs map that itself looks like bill data passes through
// whole; otherwise the first string value is taken, falling back to the
// JSON-encoded map.
func PickAnswer(outputs map[string]any) any {
	if len(outputs) == 0 {
		return nil
	}

	for _, key := range answerKeys {
		if v, ok := outputs[key]; ok && !isEmptyValue(v) {
			return v
		}
	}

	if _, ok := outputs["items"]; ok {
		return outputs
	}
	if _, ok := outputs["charges"]; ok {
		return outputs
	}

	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s, ok := outputs[k].(string); ok && s != "" {
			return s
		}
	}

	encoded, err := json.Marshal(outputs)
	if err != nil {
		return fmt.Sprintf("%v", outputs)
	}
	return string(encoded)
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	default:
		return false
	}
}
