package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"

	"truco/internal/ports"
)

const (
	sessionCollection = "truco_sessions"
	sessionKey        = "active_room"
)

// storageModule is the part of runtime.NakamaModule the session store uses.
type storageModule interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
	StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error
}

// NakamaSessionStore keeps each player's active room in Nakama storage, owned
// by the player and readable only by the server.
type NakamaSessionStore struct {
	nk storageModule
}

// NewNakamaSessionStore creates a session store. A nil module yields a nil
// store so callers can skip persistence.
func NewNakamaSessionStore(nk storageModule) ports.SessionStore {
	if nk == nil {
		return nil
	}
	return &NakamaSessionStore{nk: nk}
}

func (s *NakamaSessionStore) Save(ctx context.Context, session ports.Session) error {
	if session.UserID == "" {
		return fmt.Errorf("userID is required")
	}
	value, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      sessionCollection,
			Key:             sessionKey,
			UserID:          session.UserID,
			Value:           string(value),
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (s *NakamaSessionStore) Load(ctx context.Context, userID string) (ports.Session, error) {
	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: sessionCollection, Key: sessionKey, UserID: userID},
	})
	if err != nil {
		return ports.Session{}, fmt.Errorf("failed to read session: %w", err)
	}
	if len(objects) == 0 {
		return ports.Session{}, ports.ErrSessionNotFound
	}

	var session ports.Session
	if err := json.Unmarshal([]byte(objects[0].GetValue()), &session); err != nil {
		return ports.Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, nil
}

func (s *NakamaSessionStore) Delete(ctx context.Context, userID string) error {
	err := s.nk.StorageDelete(ctx, []*runtime.StorageDelete{
		{Collection: sessionCollection, Key: sessionKey, UserID: userID},
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
