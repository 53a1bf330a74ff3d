package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"chronicle/internal/store"
)

func (c *Client) GetChatHistory(ctx context.Context, playerID int64) (*store.ChatHistory, error) {
	h := store.ChatHistory{PlayerID: playerID}
	var raw []byte
	err := c.pool.QueryRow(ctx, `SELECT messages, updated_at FROM chat_histories WHERE player_id = $1`, playerID).
		Scan(&raw, &h.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting chat history: %w", translateError(err))
	}
	if err := json.Unmarshal(raw, &h.Messages); err != nil {
		return nil, fmt.Errorf("decoding chat history: %w", err)
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
	_, err = c.pool.Exec(ctx, `
INSERT INTO chat_histories (player_id, messages, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (player_id) DO UPDATE SET messages = EXCLUDED.messages, updated_at = now()`, playerID, raw)
	if err != nil {
		return fmt.Errorf("saving chat history: %w", translateError(err))
	}
	return nil
}
