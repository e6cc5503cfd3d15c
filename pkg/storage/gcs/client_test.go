package gcs

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func staticTokens() *tokenSource {
	return &tokenSource{
		fetch: func(context.Context) (string, time.Time, error) {
			return "test-token", time.Now().Add(time.Hour), nil
		},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/storage/v1/b/bucket/o", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if got := r.URL.Query().Get("prefix"); got != "song_data/" {
			t.Errorf("unexpected prefix %q", got)
		}
		switch r.URL.Query().Get("pageToken") {
		case "":
			fmt.Fprint(w, `{"items":[{"name":"song_data/A/a.json"}],"nextPageToken":"p2"}`)
		case "p2":
			fmt.Fprint(w, `{"items":[{"name":"song_data/B/b.json"}]}`)
		}
	})
	mux.HandleFunc("/storage/v1/b/bucket/o/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("alt") != "media" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if strings.HasSuffix(r.URL.Path, "missing.json") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"song_id":"SOAAA"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestListFollowsPages(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	client := newClient(srv.Client(), srv.URL, staticTokens())

	names, err := client.List(context.Background(), "bucket", "song_data/")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(names) != 2 || names[0] != "song_data/A/a.json" || names[1] != "song_data/B/b.json" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestOpenStreamsObject(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	client := newClient(srv.Client(), srv.URL, staticTokens())

	rc, err := client.Open(context.Background(), "bucket", "song_data/A/a.json")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != `{"song_id":"SOAAA"}` {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestOpenMissingObject(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	client := newClient(srv.Client(), srv.URL, staticTokens())

	_, err := client.Open(context.Background(), "bucket", "missing.json")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestNilClient(t *testing.T) {
	t.Parallel()

	var client *Client
	if _, err := client.List(context.Background(), "bucket", ""); err == nil {
		t.Fatal("expected error from nil client")
	}
	if err := client.Ping(context.Background(), "bucket"); err == nil {
		t.Fatal("expected error from nil client ping")
	}
}

func TestTokenSourceCaches(t *testing.T) {
	t.Parallel()

	calls := 0
	ts := &tokenSource{
		fetch: func(context.Context) (string, time.Time, error) {
			calls++
			return "tok", time.Now().Add(time.Hour), nil
		},
	}
	for i := 0; i < 3; i++ {
		if _, err := ts.Token(context.Background()); err != nil {
			t.Fatalf("Token returned error: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single fetch, got %d", calls)
	}
}

func TestSignAssertionVerifies(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}

	signed, err := signAssertion("etl@project.iam.gserviceaccount.com", tokenEndpoint, key, time.Now())
	if err != nil {
		t.Fatalf("signAssertion returned error: %v", err)
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != assertionSigningMethod {
			return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
		}
		return &key.PublicKey, nil
	}, jwt.WithAudience(tokenEndpoint))
	if err != nil || !token.Valid {
		t.Fatalf("verify assertion: %v", err)
	}
	if claims["iss"] != "etl@project.iam.gserviceaccount.com" {
		t.Fatalf("unexpected issuer %v", claims["iss"])
	}
	if claims["scope"] != scope {
		t.Fatalf("unexpected scope %v", claims["scope"])
	}
	if _, ok := claims["aud"].(string); !ok {
		t.Fatalf("audience should be a single string, got %T", claims["aud"])
	}

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	_, err = jwt.Parse(signed, func(*jwt.Token) (interface{}, error) { return &other.PublicKey, nil })
	if err == nil {
		t.Fatal("expected verification with a foreign key to fail")
	}
}

func TestParsePrivateKey(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	pkcs1 := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if _, err := parsePrivateKey(string(pkcs1)); err != nil {
		t.Fatalf("parse pkcs1: %v", err)
	}

	pkcs8Bytes, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal pkcs8: %v", err)
	}
	pkcs8 := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8Bytes})
	if _, err := parsePrivateKey(string(pkcs8)); err != nil {
		t.Fatalf("parse pkcs8: %v", err)
	}

	if _, err := parsePrivateKey("not a key"); err == nil {
		t.Fatal("expected error for garbage key")
	}
}

func TestServiceAccountCredentialsValidation(t *testing.T) {
	t.Parallel()

	if _, err := newServiceAccountTokenSource(http.DefaultClient, `{"client_email":""}`); err == nil {
		t.Fatal("expected error for missing fields")
	}
	if _, err := newServiceAccountTokenSource(http.DefaultClient, `not json`); err == nil {
		t.Fatal("expected error for invalid json")
	}
}
