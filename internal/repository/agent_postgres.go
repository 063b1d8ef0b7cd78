package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AgentRepository defines the interface for retrieval-agent persistence
type AgentRepository interface {
	GetByBotID(ctx context.Context, botID string) (*entity.RetrievalAgent, error)
	List(ctx context.Context) ([]*entity.RetrievalAgent, error)
	Upsert(ctx context.Context, agent entity.RetrievalAgent) (*entity.RetrievalAgent, error)
	Delete(ctx context.Context, botID string) error
}

var _ AgentRepository = &AgentPostgres{}

// AgentPostgres implements AgentRepository using PostgreSQL
type AgentPostgres struct {
	db *pgxpool.Pool
}

func NewAgentPostgres(db *pgxpool.Pool) *AgentPostgres {
	return &AgentPostgres{
		db: db,
	}
}

const agentColumns = `bot_id, name, system_prompt, collection, top_k, date_range_days, allow_web_search`

func (r *AgentPostgres) GetByBotID(ctx context.Context, botID string) (*entity.RetrievalAgent, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM retrieval_agents WHERE bot_id = $1`,
		botID,
	)

	agent, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrAgentNotFound
		}
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return agent, nil
}

func (r *AgentPostgres) List(ctx context.Context) ([]*entity.RetrievalAgent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+agentColumns+` FROM retrieval_agents ORDER BY bot_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []*entity.RetrievalAgent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return agents, nil
}

func (r *AgentPostgres) Upsert(ctx context.Context, agent entity.RetrievalAgent) (*entity.RetrievalAgent, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO retrieval_agents (`+agentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (bot_id) DO UPDATE SET
		   name = EXCLUDED.name,
		   system_prompt = EXCLUDED.system_prompt,
		   collection = EXCLUDED.collection,
		   top_k = EXCLUDED.top_k,
		   date_range_days = EXCLUDED.date_range_days,
		   allow_web_search = EXCLUDED.allow_web_search
		 RETURNING `+agentColumns,
		agent.ID, agent.Name, agent.SystemPrompt, agent.Collection,
		agent.TopK, agent.DateRangeDays, agent.AllowWebSearch,
	)

	stored, err := scanAgent(row)
	if err != nil {
		return nil, fmt.Errorf("upsert agent: %w", err)
	}
	return stored, nil
}

func (r *AgentPostgres) Delete(ctx context.Context, botID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM retrieval_agents WHERE bot_id = $1`, botID)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrAgentNotFound
	}
	return nil
}

func scanAgent(row pgx.Row) (*entity.RetrievalAgent, error) {
	var agent entity.RetrievalAgent
	err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.SystemPrompt,
		&agent.Collection,
		&agent.TopK,
		&agent.DateRangeDays,
		&agent.AllowWebSearch,
	)
	if err != nil {
		return nil, err
	}
	return &agent, nil
}
