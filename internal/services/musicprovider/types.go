package musicprovider

// generateRequest is the provider's generation submission payload
type generateRequest struct {
	Prompt       string `json:"prompt"`
	CustomMode   bool   `json:"customMode"`
	Instrumental bool   `json:"instrumental"`
	Model        string `json:"model"`
	Style        string `json:"style"`
	Title        string `json:"title"`
	CallBackURL  string `json:"callBackUrl,omitempty"`
}

// generateResponse wraps the provider's submission response
type generateResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg,omitempty"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

// recordInfoResponse wraps the provider's record-info (poll) response
type recordInfoResponse struct {
	Code int            `json:"code"`
	Msg  string         `json:"msg,omitempty"`
	Data recordInfoData `json:"data"`
}

type recordInfoData struct {
	TaskID       string            `json:"taskId"`
	Status       string            `json:"status"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Response     recordInfoPayload `json:"response"`
}

type recordInfoPayload struct {
	SunoData []audioClip `json:"sunoData"`
}

// audioClip is one generated track in a successful record-info response
type audioClip struct {
	ID             string  `json:"id,omitempty"`
	Title          string  `json:"title,omitempty"`
	SourceAudioURL string  `json:"sourceAudioUrl,omitempty"`
	AudioURL       string  `json:"audioUrl,omitempty"`
	Duration       float64 `json:"duration,omitempty"`
	Tags           string  `json:"tags,omitempty"`
}

// Provider generation statuses
const (
	statusPending      = "PENDING"
	statusTextSuccess  = "TEXT_SUCCESS"
	statusFirstSuccess = "FIRST_SUCCESS"
	statusSuccess      = "SUCCESS"
)

// terminalFailureStatuses are provider statuses that end a generation
// without audio
var terminalFailureStatuses = map[string]struct{}{
	"CREATE_TASK_FAILED":    {},
	"GENERATE_AUDIO_FAILED": {},
	"CALLBACK_EXCEPTION":    {},
	"SENSITIVE_WORD_ERROR":  {},
}
