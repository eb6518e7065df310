package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Message represents a single conversation turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ThreadKey derives the session thread key for an owner. One thread per owner.
func ThreadKey(ownerID int64) string {
	return fmt.Sprintf("user-%d", ownerID)
}

// Manager manages conversation persistence in the chat_messages table.
type Manager struct {
	db         *sql.DB
	writeLocks map[string]*sync.Mutex
	locksMu    sync.Mutex
}

// NewManager creates a session manager over the shared database pool.
func NewManager(db *sql.DB) *Manager {
	return &Manager{
		db:         db,
		writeLocks: make(map[string]*sync.Mutex),
	}
}

// getWriteLock gets or creates the write lock serializing appends per thread.
func (m *Manager) getWriteLock(sessionKey string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	if lock, exists := m.writeLocks[sessionKey]; exists {
		return lock
	}
	lock := &sync.Mutex{}
	m.writeLocks[sessionKey] = lock
	return lock
}

func validateSessionKey(sessionKey string) error {
	if sessionKey == "" {
		return fmt.Errorf("session key cannot be empty")
	}
	return nil
}

// Append durably adds a message to the thread. The thread is created lazily
// by the first append.
func (m *Manager) Append(ctx context.Context, sessionKey string, message Message) error {
	if err := validateSessionKey(sessionKey); err != nil {
		return err
	}
	if message.Role == "" {
		return fmt.Errorf("message role cannot be empty")
	}
	if message.Content == "" {
		return fmt.Errorf("message content cannot be empty")
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}

	lock := m.getWriteLock(sessionKey)
	lock.Lock()
	defer lock.Unlock()

	if _, err := m.db.ExecContext(ctx,
		`INSERT INTO chat_messages (session_key, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionKey, message.Role, message.Content, message.Timestamp,
	); err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	log.Debug().Str("session_key", sessionKey).Str("role", message.Role).Msg("Message appended")
	return nil
}

// Load returns the full thread history in insertion order. A thread that has
// never been written to loads as empty, not as an error.
func (m *Manager) Load(ctx context.Context, sessionKey string) ([]Message, error) {
	if err := validateSessionKey(sessionKey); err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM chat_messages WHERE session_key = ? ORDER BY id`,
		sessionKey,
	)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// MessageCount returns how many messages a thread holds.
func (m *Manager) MessageCount(ctx context.Context, sessionKey string) (int, error) {
	if err := validateSessionKey(sessionKey); err != nil {
		return 0, err
	}

	var count int
	if err := m.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE session_key = ?`, sessionKey,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// ListThreads returns all thread keys that hold at least one message.
func (m *Manager) ListThreads(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT DISTINCT session_key FROM chat_messages ORDER BY session_key`)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan thread key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
