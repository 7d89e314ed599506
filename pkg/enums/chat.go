package enums

import "fmt"

// ChatThreadStatus maps to the chat_thread_status enum in Postgres.
type ChatThreadStatus string

const (
	ChatThreadActive ChatThreadStatus = "active"
	ChatThreadClosed ChatThreadStatus = "closed"
)

var validChatThreadStatuses = []ChatThreadStatus{
	ChatThreadActive,
	ChatThreadClosed,
}

func (s ChatThreadStatus) IsValid() bool {
	for _, candidate := range validChatThreadStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseChatThreadStatus converts raw input into ChatThreadStatus.
func ParseChatThreadStatus(value string) (ChatThreadStatus, error) {
	for _, candidate := range validChatThreadStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid chat thread status %q", value)
}

// ChatSenderRole identifies which side of a thread authored a message.
type ChatSenderRole string

const (
	ChatSenderUser  ChatSenderRole = "user"
	ChatSenderAdmin ChatSenderRole = "admin"
)

func (r ChatSenderRole) IsValid() bool {
	return r == ChatSenderUser || r == ChatSenderAdmin
}
