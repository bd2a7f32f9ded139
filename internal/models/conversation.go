package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Conversation is an AI planning chat between a coach and the assistant about
// one client.
type Conversation struct {
	ID        int64
	UserID    int64
	ClientID  int64
	Title     sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time

	// Populated by ListConversations.
	ClientName   string
	MessageCount int
}

// Message is one turn of a conversation.
type Message struct {
	ID             int64
	ConversationID int64
	Role           string
	Content        string
	CreatedAt      time.Time
}

// CreateConversation starts a conversation for the coach about the client.
func CreateConversation(ctx context.Context, db DBTX, userID, clientID int64) (*Conversation, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO ai_conversations (user_id, client_id) VALUES (?, ?) RETURNING id`,
		userID, clientID,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("models: create conversation for client %d: %w", clientID, err)
	}
	return GetConversation(ctx, db, id)
}

// GetConversation retrieves a conversation by primary key.
func GetConversation(ctx context.Context, db DBTX, id int64) (*Conversation, error) {
	c := &Conversation{}
	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, client_id, title, created_at, updated_at FROM ai_conversations WHERE id = ?`, id,
	).Scan(&c.ID, &c.UserID, &c.ClientID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("models: get conversation %d: %w", id, err)
	}
	return c, nil
}

// ListConversations returns a coach's conversations, most recently active
// first. A non-nil clientID restricts the list to that client.
func ListConversations(ctx context.Context, db DBTX, userID int64, clientID *int64) ([]*Conversation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT c.id, c.user_id, c.client_id, c.title, c.created_at, c.updated_at,
		        cl.first_name || ' ' || cl.last_name,
		        (SELECT COUNT(*) FROM ai_messages m WHERE m.conversation_id = c.id)
		 FROM ai_conversations c
		 JOIN clients cl ON cl.id = c.client_id
		 WHERE c.user_id = ? AND (? IS NULL OR c.client_id = ?)
		 ORDER BY c.updated_at DESC, c.id DESC`,
		userID, nullInt64(clientID), nullInt64(clientID))
	if err != nil {
		return nil, fmt.Errorf("models: list conversations for user %d: %w", userID, err)
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		c := &Conversation{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.ClientID, &c.Title, &c.CreatedAt, &c.UpdatedAt,
			&c.ClientName, &c.MessageCount); err != nil {
			return nil, fmt.Errorf("models: scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// SetConversationTitleIfEmpty sets the title only when none is set yet. It
// reports whether the title was written.
func SetConversationTitleIfEmpty(ctx context.Context, db DBTX, id int64, title string) (bool, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE ai_conversations SET title = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND (title IS NULL OR title = '')`, title, id)
	if err != nil {
		return false, fmt.Errorf("models: set title for conversation %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// AppendMessage adds a turn to the conversation and returns the stored row.
func AppendMessage(ctx context.Context, db DBTX, conversationID int64, role, content string) (*Message, error) {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return nil, fmt.Errorf("models: append message: invalid role %q", role)
	}

	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO ai_messages (conversation_id, role, content) VALUES (?, ?, ?) RETURNING id`,
		conversationID, role, content,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("models: append message to conversation %d: %w", conversationID, err)
	}

	m := &Message{}
	if err := db.QueryRowContext(ctx,
		`SELECT id, conversation_id, role, content, created_at FROM ai_messages WHERE id = ?`, id,
	).Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("models: get message %d: %w", id, err)
	}

	if _, err := db.ExecContext(ctx,
		`UPDATE ai_conversations SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, conversationID,
	); err != nil {
		return nil, fmt.Errorf("models: touch conversation %d: %w", conversationID, err)
	}
	return m, nil
}

// ListMessages returns a conversation's messages in creation order.
func ListMessages(ctx context.Context, db DBTX, conversationID int64) ([]*Message, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, created_at FROM ai_messages
		 WHERE conversation_id = ? ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("models: list messages for conversation %d: %w", conversationID, err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("models: scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// PruneEmptyConversations deletes conversations that never received a
// message and were created before cutoff. Returns the number deleted.
func PruneEmptyConversations(ctx context.Context, db DBTX, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM ai_conversations
		 WHERE created_at < ?
		   AND NOT EXISTS (SELECT 1 FROM ai_messages m WHERE m.conversation_id = ai_conversations.id)`,
		cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, fmt.Errorf("models: prune empty conversations: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
