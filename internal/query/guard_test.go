package query

import (
	"errors"
	"testing"

	"github.com/ontomap/ontomap-backend/internal/domain"
)

func TestEnsureReadOnlyAllowsReadQueries(t *testing.T) {
	queries := []string{
		"MATCH (p:Instance {project_id: $project_id}) RETURN p LIMIT 10",
		"MATCH (a)-[r:RELATED]->(b) WHERE r.type = 'WORKS_FOR' RETURN a, b",
		"MATCH (n) RETURN count(n) AS total",
		"MATCH (p:Instance) WITH p.class_name AS cn, count(*) AS c RETURN cn, c ORDER BY c DESC",
		"CALL db.labels() YIELD label RETURN label",
	}
	for _, q := range queries {
		if err := EnsureReadOnly(q); err != nil {
			t.Errorf("query %q should pass the guard, got %v", q, err)
		}
	}
}

func TestEnsureReadOnlyRejectsWriteClauses(t *testing.T) {
	queries := map[string]string{
		"CREATE (n:Instance {id: '1'})":                          "CREATE",
		"MATCH (n) SET n.hacked = true RETURN n":                 "SET",
		"MATCH (n) DETACH DELETE n":                              "DETACH",
		"MERGE (n:Instance {id: '1'}) RETURN n":                  "MERGE",
		"MATCH (n) REMOVE n.name RETURN n":                       "REMOVE",
		"DROP CONSTRAINT instance_id_unique":                     "DROP",
		"match (n) delete n":                                     "DELETE",
		"FOREACH (x IN [1] | CREATE (:Instance))":                "FOREACH",
		"LOAD CSV FROM 'file:///etc/passwd' AS row RETURN row":   "LOAD",
	}
	for q, clause := range queries {
		err := EnsureReadOnly(q)
		var unsafe *domain.UnsafeQueryError
		if !errors.As(err, &unsafe) {
			t.Errorf("query %q should be rejected, got %v", q, err)
			continue
		}
		if unsafe.Clause != clause {
			t.Errorf("query %q: expected clause %q, got %q", q, clause, unsafe.Clause)
		}
	}
}

func TestEnsureReadOnlyRejectsWriteProcedures(t *testing.T) {
	queries := []string{
		"CALL apoc.create.node(['X'], {}) YIELD node RETURN node",
		"CALL db.createLabel('X')",
		"CALL dbms.security.listUsers()",
		"CALL apoc.periodic.iterate('MATCH (n) RETURN n', 'RETURN 1', {})",
	}
	for _, q := range queries {
		var unsafe *domain.UnsafeQueryError
		if err := EnsureReadOnly(q); !errors.As(err, &unsafe) {
			t.Errorf("query %q should be rejected, got %v", q, err)
		}
	}
}

func TestEnsureReadOnlyIgnoresKeywordsInsideLiterals(t *testing.T) {
	queries := []string{
		`MATCH (n) WHERE n.name = 'DELETE ME' RETURN n`,
		`MATCH (n) WHERE n.note = "please CREATE a ticket" RETURN n`,
		"MATCH (n) WHERE n.`set name` IS NOT NULL RETURN n",
		`MATCH (n) WHERE n.name = 'it\'s a MERGE conflict' RETURN n`,
		"// SET is mentioned here\nMATCH (n) RETURN n",
		"/* DROP nothing */ MATCH (n) RETURN n",
	}
	for _, q := range queries {
		if err := EnsureReadOnly(q); err != nil {
			t.Errorf("query %q should pass the guard, got %v", q, err)
		}
	}
}

func TestEnsureReadOnlyRejectsEmptyStatement(t *testing.T) {
	var unsafe *domain.UnsafeQueryError
	if err := EnsureReadOnly("   "); !errors.As(err, &unsafe) {
		t.Fatalf("expected UnsafeQueryError for empty statement, got %v", err)
	}
}
