package audit

import (
	"context"
	"testing"

	"checkops/internal/platform/database/dbtest"
	"checkops/internal/platform/repositories"
)

func TestLogLoginRecordsParsedAgent(t *testing.T) {
	db := dbtest.New(t)
	if _, err := db.Exec(`INSERT INTO users (id, email, password_hash, name, created_at, updated_at) VALUES ('usr_1', 'a@x.com', 'h', 'A', 0, 0)`); err != nil {
		t.Fatal(err)
	}

	logger := NewLogger(repositories.NewLoginLogRepository(db))
	logger.LogLogin("usr_1", "10.0.0.1", "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/124.0 Mobile Safari/537.36")
	logger.LogLogin("usr_1", "10.0.0.2", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Firefox/126.0")
	logger.Wait()

	logs, err := logger.ListLoginLogs(context.Background(), "usr_1", 0)
	if err != nil {
		t.Fatalf("ListLoginLogs() error = %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d logs, want 2", len(logs))
	}

	byIP := map[string]string{}
	for _, l := range logs {
		byIP[l.IPAddress] = l.OS
	}
	if byIP["10.0.0.1"] != "Android" || byIP["10.0.0.2"] != "Windows" {
		t.Errorf("os by ip = %v", byIP)
	}
}

func TestLogLoginUnknownUserDoesNotPanic(t *testing.T) {
	db := dbtest.New(t)
	logger := NewLogger(repositories.NewLoginLogRepository(db))

	logger.LogLogin("usr_missing", "10.0.0.1", "curl/8.0")
	logger.Wait()

	logs, err := logger.ListLoginLogs(context.Background(), "usr_missing", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 0 {
		t.Errorf("got %d logs, want 0", len(logs))
	}
}
