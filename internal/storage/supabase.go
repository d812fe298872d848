package storage

import (
	"context"
	"fmt"

	supa "github.com/supabase-community/supabase-go"
)

type supabaseRow struct {
	Key  string `json:"snapshot_key"`
	Data string `json:"data"`
}

// Supabase stores snapshots through the PostgREST API of a Supabase project.
// The table needs snapshot_key (text, primary key) and data (text) columns.
// The client has no context support; ctx is accepted for the interface only.
type Supabase struct {
	client *supa.Client
	table  string
}

func NewSupabase(url, key, table string) (*Supabase, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	if table == "" {
		table = "session_snapshots"
	}
	return &Supabase{client: client, table: table}, nil
}

func (s *Supabase) Load(_ context.Context, key string) ([]byte, error) {
	var rows []supabaseRow
	_, err := s.client.From(s.table).
		Select("snapshot_key,data", "", false).
		Eq("snapshot_key", key).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return []byte(rows[0].Data), nil
}

func (s *Supabase) Save(_ context.Context, key string, data []byte) error {
	row := supabaseRow{Key: key, Data: string(data)}
	_, _, err := s.client.From(s.table).Upsert(row, "snapshot_key", "minimal", "").Execute()
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *Supabase) Delete(_ context.Context, key string) error {
	_, _, err := s.client.From(s.table).Delete("minimal", "").Eq("snapshot_key", key).Execute()
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
