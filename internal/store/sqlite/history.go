package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"chronicle/internal/store"
)

func (c *Client) GetChatHistory(ctx context.Context, playerID int64) (*store.ChatHistory, error) {
	h := store.ChatHistory{PlayerID: playerID}
	var raw, updated string
	err := c.db.QueryRowContext(ctx, `SELECT messages, updated_at FROM chat_histories WHERE player_id = ?`, playerID).
		Scan(&raw, &updated)
	if err != nil {
		return nil, fmt.Errorf("getting chat history: %w", translateError(err))
	}
	if err := json.Unmarshal([]byte(raw), &h.Messages); err != nil {
		return nil, fmt.Errorf("decoding chat history: %w", err)
	}
	if h.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) SaveChatHistory(ctx context.Context, playerID int64, messages []store.Message) error {
	if messages == nil {
		messages = []store.Message{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encoding chat history: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
	INSERT INTO chat_histories (player_id, messages, updated_at) VALUES (?, ?, ?)
	ON CONFLICT (player_id) DO UPDATE SET messages = excluded.messages, updated_at = excluded.updated_at`,
		playerID, string(raw), now())
	if err != nil {
		return fmt.Errorf("saving chat history: %w", translateError(err))
	}
	return nil
}
