package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type BlockType string

const (
	BlockQuery BlockType = "query"
	BlockPaper BlockType = "paper"
	BlockError BlockType = "error"
)

// Block is one element of an assistant turn. Exactly one of Query, Paper or
// Message is meaningful, selected by Type.
type Block struct {
	Type    BlockType `json:"type"`
	Query   string    `json:"query,omitempty"`
	Paper   *Paper    `json:"paper,omitempty"`
	Message string    `json:"message,omitempty"`
}

func QueryBlock(query string) Block {
	return Block{Type: BlockQuery, Query: query}
}

func PaperBlock(p Paper) Block {
	return Block{Type: BlockPaper, Paper: &p}
}

func ErrorBlock(message string) Block {
	return Block{Type: BlockError, Message: message}
}

// ConversationTurn is one transcript entry. User turns carry Text, assistant
// turns carry Blocks.
type ConversationTurn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text,omitempty"`
	Blocks    []Block   `json:"blocks,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func UserTurn(question string, at time.Time) ConversationTurn {
	return ConversationTurn{Role: RoleUser, Text: question, CreatedAt: at.UTC()}
}

func AssistantTurn(blocks []Block, at time.Time) ConversationTurn {
	return ConversationTurn{Role: RoleAssistant, Blocks: blocks, CreatedAt: at.UTC()}
}
