package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"rider-agent/internal/common/jwt"
	"rider-agent/internal/sharing/domain"
)

// Ensure FileStore implements the domain.CredentialProvider interface.
var _ domain.CredentialProvider = (*FileStore)(nil)

// FileStore reads the rider's bearer token from a file on every call, so a
// token rotated by the companion app takes effect on the next report without
// restarting the agent. The rider ID is the token subject; an expired token
// is still returned (the backend is the authority) but logged.
type FileStore struct {
	path   string
	logger *slog.Logger
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

func (s *FileStore) Credential(ctx context.Context) (domain.Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return domain.Credential{}, fmt.Errorf("token file %s is empty", s.path)
	}

	claims, err := jwt.PeekClaims(token)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("decode token claims: %w", err)
	}
	if claims.Expired(time.Now()) {
		s.logger.Warn("credential_expired", "action", "read_credential", "rider_id", claims.Subject, "expired_at", claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
	}

	return domain.Credential{Token: token, RiderID: claims.Subject}, nil
}
