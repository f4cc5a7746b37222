// Package sqlagent answers structured-data questions by generating a
// read-only SQL query with the model, executing it against SQLite, and
// summarizing the result.
package sqlagent

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ragstack/ragchat/llm"
)

// Fixed user-facing messages for the failure stages.
const (
	schemaErrorResponse = "I couldn't access the database to answer that. Please check the database configuration and try again."
	badQueryResponse    = "I couldn't generate a valid query for your question. Could you rephrase it, perhaps naming the table or columns you mean?"
	execErrorResponse   = "I encountered an error while querying the database. Please try asking your question again."
)

const maxResultRows = 20

// LLM is the slice of the gateway the agent uses.
type LLM interface {
	Complete(ctx context.Context, systemPrompt, prompt string) string
}

const sqlSystemPrompt = `You translate questions into a single SQLite SELECT statement.
Reply with the SQL only, no commentary. Never write anything but SELECT.`

const generatePrompt = `Database schema:
%s

Question: %s

SQL:`

const insightPrompt = `Question: %s

Query executed: %s

Result:
%s

Answer the question in one or two sentences based on the result.`

// Agent generates and runs read-only queries.
type Agent struct {
	db  *sql.DB
	llm LLM
	log *zap.Logger
}

// New opens the SQLite database at path.
func New(path string, l LLM, log *zap.Logger) (*Agent, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database failed, err: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database failed, err: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Agent{db: db, llm: l, log: log}, nil
}

func (a *Agent) Close() error {
	return a.db.Close()
}

// Answer handles one question end to end. It never returns an error;
// each failure stage has a fixed fallback message.
func (a *Agent) Answer(ctx context.Context, question string) string {
	schemaSummary, err := a.schemaSummary(ctx)
	if err != nil {
		a.log.Warn("schema introspection failed", zap.Error(err))
		return schemaErrorResponse
	}
	raw := a.llm.Complete(ctx, sqlSystemPrompt, fmt.Sprintf(generatePrompt, schemaSummary, question))
	if raw == llm.ErrorResponse {
		return execErrorResponse
	}
	query, ok := sanitizeQuery(raw)
	if !ok {
		a.log.Warn("generated query rejected", zap.String("raw", raw))
		return badQueryResponse
	}
	table, err := a.execute(ctx, query)
	if err != nil {
		a.log.Warn("query execution failed", zap.String("query", query), zap.Error(err))
		return execErrorResponse
	}
	insight := a.llm.Complete(ctx, "", fmt.Sprintf(insightPrompt, question, query, table))
	if insight == llm.ErrorResponse {
		return table
	}
	return insight
}

// schemaSummary renders each user table with its columns.
func (a *Agent) schemaSummary(ctx context.Context) (string, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return "", fmt.Errorf("list tables failed, err: %w", err)
	}
	defer rows.Close()
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", fmt.Errorf("scan table name failed, err: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate tables failed, err: %w", err)
	}
	if len(tables) == 0 {
		return "", fmt.Errorf("database has no tables")
	}
	var b strings.Builder
	for _, table := range tables {
		cols, err := a.tableColumns(ctx, table)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%s(%s)\n", table, strings.Join(cols, ", "))
	}
	return b.String(), nil
}

func (a *Agent) tableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return nil, fmt.Errorf("table info failed, err: %w", err)
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column failed, err: %w", err)
		}
		cols = append(cols, name+" "+typ)
	}
	return cols, rows.Err()
}

// sanitizeQuery strips code fences and enforces a single SELECT
// statement. Everything else is rejected.
func sanitizeQuery(raw string) (string, bool) {
	q := strings.TrimSpace(raw)
	if idx := strings.Index(q, "```"); idx >= 0 {
		q = q[idx+3:]
		q = strings.TrimPrefix(q, "sql")
		if end := strings.Index(q, "```"); end >= 0 {
			q = q[:end]
		}
	}
	q = strings.TrimSpace(q)
	q = strings.TrimSuffix(q, ";")
	if q == "" || strings.Contains(q, ";") {
		return "", false
	}
	if !strings.HasPrefix(strings.ToUpper(q), "SELECT") {
		return "", false
	}
	return q, true
}

// execute runs the query and renders up to maxResultRows as a compact
// text table.
func (a *Agent) execute(ctx context.Context, query string) (string, error) {
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("query failed, err: %w", err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("read columns failed, err: %w", err)
	}
	var b strings.Builder
	b.WriteString(strings.Join(cols, " | "))
	b.WriteString("\n")
	count := 0
	for rows.Next() && count < maxResultRows {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", fmt.Errorf("scan row failed, err: %w", err)
		}
		cells := make([]string, len(values))
		for i, v := range values {
			switch x := v.(type) {
			case nil:
				cells[i] = "NULL"
			case []byte:
				cells[i] = string(x)
			default:
				cells[i] = fmt.Sprintf("%v", x)
			}
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
		count++
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate rows failed, err: %w", err)
	}
	if count == 0 {
		b.WriteString("(no rows)\n")
	}
	return b.String(), nil
}
