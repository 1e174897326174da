package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/dgnsrekt/tabrestore/internal/tabs"
)

const (
	CodeValidation        = "VALIDATION"
	CodeNotFound          = "NOT_FOUND"
	CodeBridgeUnavailable = "BRIDGE_UNAVAILABLE"
	CodeBridgeTimeout     = "BRIDGE_TIMEOUT"
	CodeBridgeRemote      = "BRIDGE_REMOTE"
)

// CodedError is a typed error used for stable API mapping.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

func newError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// Commands sent to the extension.
const (
	MethodQuery = "tabs.query"
	MethodGet   = "tabs.get"
	MethodMove  = "tabs.move"
)

// Events forwarded by the extension.
const (
	EventHello     = "bridge.hello"
	EventPing      = "bridge.ping"
	EventActivated = "tabs.onActivated"
	EventUpdated   = "tabs.onUpdated"
	EventRemoved   = "tabs.onRemoved"
	EventCreated   = "tabs.onCreated"
)

// message is the envelope for every frame in both directions. Requests carry
// id+method, responses id+result|error, events method only.
type message struct {
	ID     int64           `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *remoteError    `json:"error,omitempty"`
}

type remoteError struct {
	Message string `json:"message"`
}

type queryParams struct {
	Active   bool          `json:"active,omitempty"`
	WindowID tabs.WindowID `json:"windowId,omitempty"`
}

type getParams struct {
	TabID tabs.TabID `json:"tabId"`
}

type moveParams struct {
	TabID tabs.TabID `json:"tabId"`
	Index int        `json:"index"`
}

type helloParams struct {
	ExtensionID string `json:"extensionId"`
	Version     string `json:"version"`
}

type activatedParams struct {
	TabID    tabs.TabID    `json:"tabId"`
	WindowID tabs.WindowID `json:"windowId"`
}

type updatedParams struct {
	TabID      tabs.TabID `json:"tabId"`
	ChangeInfo struct {
		Status string `json:"status"`
	} `json:"changeInfo"`
	Tab tabs.Tab `json:"tab"`
}

type removedParams struct {
	TabID      tabs.TabID `json:"tabId"`
	RemoveInfo struct {
		WindowID        tabs.WindowID `json:"windowId"`
		IsWindowClosing bool          `json:"isWindowClosing"`
	} `json:"removeInfo"`
}

type createdParams struct {
	Tab tabs.Tab `json:"tab"`
}

// Status describes the current extension session.
type Status struct {
	Connected   bool   `json:"connected"`
	SessionID   string `json:"session_id,omitempty"`
	ExtensionID string `json:"extension_id,omitempty"`
	Version     string `json:"version,omitempty"`
	RemoteAddr  string `json:"remote_addr,omitempty"`
}
