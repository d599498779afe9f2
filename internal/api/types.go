package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Board describes a board in a transport-friendly format.
type Board struct {
	ID          int64             `json:"id"`
	PublicID    string            `json:"publicId"`
	Title       string            `json:"title"`
	Stages      []Stage           `json:"stages"`
	Fields      []FieldDef        `json:"fields,omitempty"`
	Translation TranslationConfig `json:"translation"`
	CreatedBy   string            `json:"createdBy"`
	SharedWith  []string          `json:"sharedWith,omitempty"`
	CreatedAt   string            `json:"createdAt,omitempty"`
	UpdatedAt   string            `json:"updatedAt,omitempty"`
}

// Stage mirrors one stage definition.
type Stage struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	WIPLimit int    `json:"wipLimit,omitempty"`
}

// FieldDef mirrors one custom field definition.
type FieldDef struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Kind    string   `json:"kind"`
	Options []string `json:"options,omitempty"`
}

// FieldValue mirrors one tagged custom field value.
type FieldValue struct {
	Kind   string   `json:"kind"`
	Text   string   `json:"text,omitempty"`
	Number *float64 `json:"number,omitempty"`
	Date   string   `json:"date,omitempty"`
	Option string   `json:"option,omitempty"`
}

// TranslationConfig mirrors a board's translation settings.
type TranslationConfig struct {
	SourceLang      string   `json:"sourceLang"`
	TargetLang      string   `json:"targetLang"`
	IntermediateHop bool     `json:"intermediateHop"`
	HopLang         string   `json:"hopLang,omitempty"`
	Providers       []string `json:"providers,omitempty"`
}

// Card describes a card in a transport-friendly format.
type Card struct {
	ID                 int64                 `json:"id"`
	BoardID            int64                 `json:"boardId"`
	SeqNumber          int64                 `json:"seqNumber"`
	Title              string                `json:"title"`
	Content            string                `json:"content,omitempty"`
	StageID            string                `json:"stageId"`
	Assignee           string                `json:"assignee,omitempty"`
	CreatedBy          string                `json:"createdBy"`
	FieldValues        map[string]FieldValue `json:"fieldValues,omitempty"`
	Lock               *LockStatus           `json:"lock,omitempty"`
	Steps              []TranslationStep     `json:"steps,omitempty"`
	ReviewStatus       string                `json:"reviewStatus"`
	NeedsReview        bool                  `json:"needsReview"`
	CurrentTranslation string                `json:"currentTranslation,omitempty"`
	TranslationDone    bool                  `json:"translationDone"`
	CreatedAt          string                `json:"createdAt,omitempty"`
	UpdatedAt          string                `json:"updatedAt,omitempty"`
}

// LockStatus is the edit lock view rendered for a particular user.
type LockStatus struct {
	Locked    bool   `json:"locked"`
	Holder    string `json:"holder,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

// SweepResult reports how many expired locks a sweep cleared.
type SweepResult struct {
	Swept int64 `json:"swept"`
}

// TranslationStep mirrors one step of a card's translation plan.
type TranslationStep struct {
	FromLang       string `json:"fromLang"`
	ToLang         string `json:"toLang"`
	OriginalText   string `json:"originalText,omitempty"`
	TranslatedText string `json:"translatedText,omitempty"`
	Status         string `json:"status"`
	ManuallyEdited bool   `json:"manuallyEdited,omitempty"`
	Provider       string `json:"provider,omitempty"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
}

// AuditEntry mirrors one audit log record.
type AuditEntry struct {
	ID        int64  `json:"id"`
	CardID    int64  `json:"cardId"`
	Action    string `json:"action"`
	FromStage string `json:"fromStage"`
	ToStage   string `json:"toStage"`
	UserID    string `json:"userId"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// CreateBoardRequest is the payload for board creation.
type CreateBoardRequest struct {
	Title       string            `json:"title"`
	Stages      []Stage           `json:"stages"`
	Fields      []FieldDef        `json:"fields,omitempty"`
	Translation TranslationConfig `json:"translation"`
	SharedWith  []string          `json:"sharedWith,omitempty"`
}

// CreateCardRequest is the payload for card creation.
type CreateCardRequest struct {
	Title       string                `json:"title"`
	Content     string                `json:"content,omitempty"`
	Assignee    string                `json:"assignee,omitempty"`
	FieldValues map[string]FieldValue `json:"fieldValues,omitempty"`
}

// UpdateCardRequest is the payload for a full-card edit. Nil pointers leave
// the corresponding field untouched.
type UpdateCardRequest struct {
	Title       *string               `json:"title,omitempty"`
	Content     *string               `json:"content,omitempty"`
	Assignee    *string               `json:"assignee,omitempty"`
	FieldValues map[string]FieldValue `json:"fieldValues,omitempty"`
}

// MoveCardRequest names the stage a card should move to.
type MoveCardRequest struct {
	TargetStage string `json:"targetStage"`
}

// ExecuteStepRequest names the provider that should run a step.
type ExecuteStepRequest struct {
	Step     int    `json:"step"`
	Provider string `json:"provider"`
}

// ManualStepRequest carries a hand-entered translation for a step.
type ManualStepRequest struct {
	Step int    `json:"step"`
	Text string `json:"text"`
}

// ApproveStepRequest names the step to promote to approved.
type ApproveStepRequest struct {
	Step int `json:"step"`
}

// ShareRequest names the user a board should be shared with.
type ShareRequest struct {
	UserID string `json:"userId"`
}

// CreateUserRequest is the payload for user registration.
type CreateUserRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// User describes a registered user.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// BoardListResponse wraps a collection of boards.
type BoardListResponse struct {
	Boards []Board `json:"boards"`
}

// CardListResponse wraps a collection of cards.
type CardListResponse struct {
	Cards []Card `json:"cards"`
}

// AuditListResponse wraps a collection of audit entries.
type AuditListResponse struct {
	Entries []AuditEntry `json:"entries"`
}

// StageCountsResponse maps stage ids to card counts.
type StageCountsResponse struct {
	Counts map[string]int `json:"counts"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool   `json:"running"`
	PID          int    `json:"pid"`
	DatabasePath string `json:"databasePath"`
	LockFilePath string `json:"lockFilePath"`
	BoardCount   int    `json:"boardCount"`
	Providers    []string `json:"providers"`
}
