package enhance

import "context"

// Defaults applied when the caller omits the optional request fields.
const (
	DefaultOutputFormat = "png"
	DefaultImageSize    = "auto"
)

// SuccessMessage is returned to the browser alongside a completed result.
const SuccessMessage = "Image enhanced successfully!"

// Request is one inbound enhancement request.
type Request struct {
	Prompt       string   `json:"prompt" validate:"required"`
	ImageURLs    []string `json:"image_urls" validate:"required,min=1,dive,required"`
	OutputFormat string   `json:"output_format,omitempty"`
	ImageSize    string   `json:"image_size,omitempty"`
}

// Result is the terminal artifact of a successful enhancement.
type Result struct {
	ImageURL string `json:"image"`
	TaskID   string `json:"taskId"`
	Message  string `json:"message"`

	// Attempts is the number of status checks made before completion.
	Attempts int `json:"-"`
}

// Enhancer runs one enhancement to completion. *Client talks to the upstream
// API; *DemoEnhancer fabricates a result without any outbound call.
type Enhancer interface {
	Enhance(ctx context.Context, req Request) (*Result, error)
}

// Upstream task states reported by recordInfo.
const (
	StateWaiting = "waiting"
	StateSuccess = "success"
	StateFail    = "fail"
)

// --- Upstream wire types ---

type createTaskRequest struct {
	Model string    `json:"model"`
	Input taskInput `json:"input"`
}

type taskInput struct {
	Prompt       string   `json:"prompt"`
	ImageURLs    []string `json:"image_urls"`
	OutputFormat string   `json:"output_format"`
	ImageSize    string   `json:"image_size"`
}

type createTaskResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

type recordInfoResponse struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data *taskRecord `json:"data"`
}

// taskRecord is the data block of a recordInfo response.
type taskRecord struct {
	TaskID     string `json:"taskId"`
	State      string `json:"state"`
	ResultJSON string `json:"resultJson"`
	FailCode   any    `json:"failCode"`
	FailMsg    string `json:"failMsg"`
}
