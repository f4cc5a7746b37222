package sqlagent

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
)

type scriptedLLM struct {
	sql     string
	insight string
}

func (m *scriptedLLM) Complete(ctx context.Context, systemPrompt, prompt string) string {
	if strings.Contains(prompt, "SQL:") {
		return m.sql
	}
	return m.insight
}

func newTestDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	stmts := []string{
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, customer TEXT, total REAL)`,
		`INSERT INTO orders (customer, total) VALUES ('alice', 10.5), ('bob', 20.0), ('alice', 5.0)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	return path
}

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"plain select", "SELECT * FROM orders", "SELECT * FROM orders", true},
		{"fenced", "```sql\nSELECT count(*) FROM orders\n```", "SELECT count(*) FROM orders", true},
		{"trailing semicolon", "select id from orders;", "select id from orders", true},
		{"update rejected", "UPDATE orders SET total = 0", "", false},
		{"drop rejected", "DROP TABLE orders", "", false},
		{"stacked statements rejected", "SELECT 1; DROP TABLE orders", "", false},
		{"empty", "   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := sanitizeQuery(tt.raw)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("sanitizeQuery(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAnswerHappyPath(t *testing.T) {
	agent, err := New(newTestDB(t), &scriptedLLM{
		sql:     "SELECT customer, SUM(total) AS total FROM orders GROUP BY customer ORDER BY customer",
		insight: "Alice spent 15.5 in total, Bob 20.0.",
	}, nil)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	defer agent.Close()

	got := agent.Answer(context.Background(), "how much did each customer spend")
	if got != "Alice spent 15.5 in total, Bob 20.0." {
		t.Errorf("Answer = %q", got)
	}
}

func TestAnswerRejectsWriteQuery(t *testing.T) {
	agent, err := New(newTestDB(t), &scriptedLLM{sql: "DELETE FROM orders"}, nil)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	defer agent.Close()

	if got := agent.Answer(context.Background(), "wipe the orders"); got != badQueryResponse {
		t.Errorf("write query should be rejected, got %q", got)
	}
	// table untouched
	var n int
	if err := agent.db.QueryRow("SELECT count(*) FROM orders").Scan(&n); err != nil || n != 3 {
		t.Errorf("orders table modified: n=%d err=%v", n, err)
	}
}

func TestAnswerBrokenSQLFallsBack(t *testing.T) {
	agent, err := New(newTestDB(t), &scriptedLLM{sql: "SELECT nope FROM missing_table"}, nil)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	defer agent.Close()

	if got := agent.Answer(context.Background(), "anything"); got != execErrorResponse {
		t.Errorf("broken SQL should fall back, got %q", got)
	}
}

func TestSchemaSummaryListsTables(t *testing.T) {
	agent, err := New(newTestDB(t), &scriptedLLM{}, nil)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	defer agent.Close()

	summary, err := agent.schemaSummary(context.Background())
	if err != nil {
		t.Fatalf("schema summary: %v", err)
	}
	if !strings.Contains(summary, "orders(") || !strings.Contains(summary, "customer TEXT") {
		t.Errorf("summary missing table shape: %q", summary)
	}
}
