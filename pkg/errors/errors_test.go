package errors

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"google.golang.org/api/googleapi"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		publicMsg string
		retryable bool
	}{
		{code: CodeSchema, publicMsg: "schema operation failed"},
		{code: CodeSourceUnavailable, publicMsg: "staging relation unavailable"},
		{code: CodeTransientStore, publicMsg: "warehouse temporarily unavailable", retryable: true},
		{code: CodeIntegrity, publicMsg: "integrity check failed"},
		{code: CodeValidation, publicMsg: "validation failed"},
		{code: CodeConflict, publicMsg: "another run owns the warehouse", retryable: true},
		{code: CodeDependency, publicMsg: "dependency unavailable", retryable: true},
		{code: CodeInternal, publicMsg: "internal error"},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta != MetadataFor(CodeInternal) {
		t.Fatalf("expected internal metadata, got %+v", meta)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("relation \"songs\" already exists")
	wrapped := Wrap(CodeSchema, cause, "create table songs")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeSchema {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
	if !strings.Contains(wrapped.Error(), cause.Error()) {
		t.Fatalf("expected cause text verbatim in %q", wrapped.Error())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeConflict, "locked"))
	if got := As(err); got == nil || got.Code() != CodeConflict {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatalf("plain errors should map to internal")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "pgx undefined table", err: &pgconn.PgError{Code: "42P01"}, want: CodeSourceUnavailable},
		{name: "pgx connection failure", err: &pgconn.PgError{Code: "08006"}, want: CodeTransientStore},
		{name: "pq admin shutdown", err: &pq.Error{Code: "57P01"}, want: CodeTransientStore},
		{name: "pq syntax error", err: &pq.Error{Code: "42601"}, want: CodeSchema},
		{name: "deadline", err: fmt.Errorf("exec: %w", context.DeadlineExceeded), want: CodeTransientStore},
		{name: "sqlite missing table", err: stdErrors.New("no such table: staging_events"), want: CodeSourceUnavailable},
		{name: "closed pool", err: stdErrors.New("sql: database is closed"), want: CodeTransientStore},
		{name: "conn done", err: fmt.Errorf("query: %w", sql.ErrConnDone), want: CodeTransientStore},
		{name: "plain", err: stdErrors.New("boom"), want: CodeSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, CodeSchema, "ddl")
			if CodeOf(got) != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, CodeOf(got))
			}
		})
	}

	if Classify(nil, CodeSchema, "ddl") != nil {
		t.Fatal("nil should stay nil")
	}
	typed := New(CodeIntegrity, "orphans")
	if Classify(typed, CodeSchema, "ddl") != error(typed) {
		t.Fatal("typed errors should pass through")
	}
}

func TestDumpIncludesChainAndPGDetails(t *testing.T) {
	err := Wrap(CodeSchema, &pgconn.PgError{Code: "42P07", Message: "relation exists", TableName: "songs"}, "create")
	d := Dump(err)
	if d.Code != CodeSchema {
		t.Fatalf("expected schema code, got %s", d.Code)
	}
	if d.PGCode != "42P07" || d.PGTable != "songs" {
		t.Fatalf("expected pg details, got %+v", d)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d", len(d.Chain))
	}
}

func TestDumpIncludesBigQueryReason(t *testing.T) {
	apiErr := &googleapi.Error{Code: 404, Errors: []googleapi.ErrorItem{{Reason: "notFound"}}}
	d := Dump(Wrap(CodeSourceUnavailable, apiErr, "count staging_events"))
	if d.APIStatus != 404 || d.APIReason != "notFound" {
		t.Fatalf("expected api details, got %+v", d)
	}
	if d.Retryable {
		t.Fatal("source unavailable is not retryable")
	}
}
