package mailer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/contre95/mailwatch/src/features/config"
	"github.com/wneessen/go-mail"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("id,value\n1,2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCompose_SubjectAndAttachments(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv")
	b := writeFile(t, dir, "b.txt")
	gone := filepath.Join(dir, "gone.csv")
	if err := os.Mkdir(filepath.Join(dir, "folder.csv"), 0755); err != nil {
		t.Fatal(err)
	}
	at := time.Date(2024, 5, 1, 9, 3, 7, 0, time.Local)

	msg, attached, err := compose([]string{a, gone, filepath.Join(dir, "folder.csv"), b}, "ops@example.com", "robot@example.com", at, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	subject := msg.GetGenHeader(mail.HeaderSubject)
	if len(subject) != 1 || subject[0] != "New Files Detected at 2024-05-01 09:03:07" {
		t.Errorf("unexpected subject %v", subject)
	}
	if len(attached) != 2 || attached[0] != "a.csv" || attached[1] != "b.txt" {
		t.Errorf("expected only regular files attached in order, got %v", attached)
	}
	files := msg.GetAttachments()
	if len(files) != 2 || files[0].Name != "a.csv" || files[1].Name != "b.txt" {
		t.Errorf("unexpected attachments on message: %d", len(files))
	}
}

func TestCompose_AsciiFilenames(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Résumé año.csv")
	_, attached, err := compose([]string{path}, "ops@example.com", "robot@example.com", time.Now(), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(attached) != 1 || attached[0] != "Resume ano.csv" {
		t.Errorf("expected transliterated name, got %v", attached)
	}
}

func TestCompose_InvalidAddresses(t *testing.T) {
	if _, _, err := compose(nil, "ops@example.com", "not an address", time.Now(), false); err == nil {
		t.Error("expected invalid sender to fail")
	}
	if _, _, err := compose(nil, "", "robot@example.com", time.Now(), false); err == nil {
		t.Error("expected empty recipient to fail")
	}
}

func TestAsciiName(t *testing.T) {
	tests := map[string]string{
		"report.csv": "report.csv",
		"naïve.txt":  "naive.txt",
		`a"b.csv`:    "a_b.csv",
		".csv":       "attachment.csv",
	}
	for in, want := range tests {
		if got := asciiName(in); got != want {
			t.Errorf("asciiName(%q) = %q, want %q", in, got, want)
		}
	}
}

func testManager(m config.Mail) *config.Manager {
	return config.NewManager(&config.Config{Mail: m})
}

func TestDispatch_PasswordRequired(t *testing.T) {
	m := NewMailer(testManager(config.Mail{Host: "127.0.0.1", Port: 587, Auth: "password"}))
	err := m.Dispatch(context.Background(), nil, "ops@example.com", "robot@example.com")
	if !errors.Is(err, ErrNoCredentials) {
		t.Errorf("expected ErrNoCredentials, got %v", err)
	}
}

func TestDispatch_UnreachableServer(t *testing.T) {
	host, port := closedPort(t)

	m := NewMailer(testManager(config.Mail{Host: host, Port: port, Auth: "none", TimeoutSecs: 2}))
	path := writeFile(t, t.TempDir(), "a.csv")
	if err := m.Dispatch(context.Background(), []string{path}, "ops@example.com", "robot@example.com"); err == nil {
		t.Error("expected dispatch to a closed port to fail")
	}
}

func TestTokenSource_RefreshesAccessToken(t *testing.T) {
	var gotRefresh string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotRefresh = r.PostForm.Get("refresh_token")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"ya29.token","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	m := NewMailer(testManager(config.Mail{}))
	token, err := m.accessToken(context.Background(), config.OAuth2{
		ClientID:     "client",
		ClientSecret: "secret",
		RefreshToken: "refresh-1",
		TokenURL:     srv.URL,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token != "ya29.token" {
		t.Errorf("unexpected access token %q", token)
	}
	if gotRefresh != "refresh-1" {
		t.Errorf("expected refresh token to be sent, got %q", gotRefresh)
	}
}

func TestAccessToken_RequiresRefreshToken(t *testing.T) {
	m := NewMailer(testManager(config.Mail{}))
	if _, err := m.accessToken(context.Background(), config.OAuth2{ClientID: "client"}); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("expected ErrNoCredentials, got %v", err)
	}
}
