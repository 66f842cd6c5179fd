package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"checkops/internal/pkg/parser"
	"checkops/internal/platform/models"
	"checkops/internal/platform/repositories"
)

const defaultListLimit = 50

// Logger writes the append-only login trail. Writes are best-effort and run
// off the request path.
type Logger struct {
	repo *repositories.LoginLogRepository
	wg   sync.WaitGroup
}

func NewLogger(repo *repositories.LoginLogRepository) *Logger {
	return &Logger{repo: repo}
}

func (l *Logger) LogLogin(userID, ip, userAgent string) {
	ua := parser.ParseUserAgent(userAgent)

	entry := &models.LoginLog{
		ID:        "log_" + uuid.New().String(),
		UserID:    userID,
		IPAddress: ip,
		UserAgent: userAgent,
		OS:        ua.OS,
		Browser:   ua.Browser,
		Device:    ua.Device,
		CreatedAt: time.Now().Unix(),
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.repo.Create(ctx, entry); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to write login log")
		}
	}()
}

// Wait blocks until pending writes finish.
func (l *Logger) Wait() {
	l.wg.Wait()
}

func (l *Logger) ListLoginLogs(ctx context.Context, userID string, limit int) ([]*models.LoginLog, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultListLimit
	}
	return l.repo.ListByUser(ctx, userID, limit)
}
