package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/popspot/popchat/internal/chat"
)

// UploadStatus is the lifecycle of a queued image upload.
type UploadStatus string

const (
	UploadQueued    UploadStatus = "queued"
	UploadUploading UploadStatus = "uploading"
	UploadUploaded  UploadStatus = "uploaded"
	UploadFailed    UploadStatus = "failed"
)

// ErrUploadNotFound is returned when no upload row has the given key.
var ErrUploadNotFound = errors.New("upload not found")

// Upload is one image waiting to be uploaded and sent as a message.
type Upload struct {
	ID               int64
	ClientMessageKey string
	Room             chat.RoomKey
	SenderID         int64
	LocalPath        string
	Status           UploadStatus
	Attempts         int
	ImageURL         string
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

const uploadColumns = `id, client_message_key, room_type, room_id, sender_id, local_path,
	status, attempts, image_url, error_message, created_at, updated_at`

// QueueUpload inserts a new upload in the queued state.
func (db *DB) QueueUpload(u Upload) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO uploads (client_message_key, room_type, room_id, sender_id, local_path, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 'queued', ?, ?)`,
		u.ClientMessageKey, string(u.Room.Type), u.Room.ID, u.SenderID, u.LocalPath, now, now)
	if err != nil {
		return fmt.Errorf("queue upload %s: %w", u.ClientMessageKey, err)
	}
	return nil
}

// ClaimUpload moves a queued upload to uploading and counts the attempt. It
// reports false when the row is no longer queued, e.g. it was cancelled.
func (db *DB) ClaimUpload(key string) (bool, error) {
	res, err := db.Exec(`
		UPDATE uploads SET status = 'uploading', attempts = attempts + 1, updated_at = ?
		WHERE client_message_key = ? AND status = 'queued'`,
		time.Now().UnixMilli(), key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// MarkUploadDone records the backend URL of a finished upload.
func (db *DB) MarkUploadDone(key, imageURL string) error {
	_, err := db.Exec(`
		UPDATE uploads SET status = 'uploaded', image_url = ?, error_message = '', updated_at = ?
		WHERE client_message_key = ?`,
		imageURL, time.Now().UnixMilli(), key)
	return err
}

// SetUploadURL records the backend URL without changing the status.
func (db *DB) SetUploadURL(key, imageURL string) error {
	_, err := db.Exec(`UPDATE uploads SET image_url = ?, updated_at = ? WHERE client_message_key = ?`,
		imageURL, time.Now().UnixMilli(), key)
	return err
}

// MarkUploadFailed keeps the row so the upload can be retried with the same key.
func (db *DB) MarkUploadFailed(key, errMsg string) error {
	_, err := db.Exec(`
		UPDATE uploads SET status = 'failed', error_message = ?, updated_at = ?
		WHERE client_message_key = ?`,
		errMsg, time.Now().UnixMilli(), key)
	return err
}

// RequeueUpload moves a failed upload back to queued.
func (db *DB) RequeueUpload(key string) error {
	res, err := db.Exec(`
		UPDATE uploads SET status = 'queued', error_message = '', updated_at = ?
		WHERE client_message_key = ? AND status = 'failed'`,
		time.Now().UnixMilli(), key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("requeue %s: %w", key, ErrUploadNotFound)
	}
	return nil
}

// DeleteUpload removes an upload that is not currently uploading.
func (db *DB) DeleteUpload(key string) error {
	res, err := db.Exec(`DELETE FROM uploads WHERE client_message_key = ? AND status != 'uploading'`, key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete %s: %w", key, ErrUploadNotFound)
	}
	return nil
}

// ResetInterrupted requeues uploads left in uploading by a crashed daemon.
func (db *DB) ResetInterrupted() (int64, error) {
	res, err := db.Exec(`UPDATE uploads SET status = 'queued', updated_at = ? WHERE status = 'uploading'`, time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetUpload returns the upload with key.
func (db *DB) GetUpload(key string) (Upload, error) {
	row := db.QueryRow(`SELECT `+uploadColumns+` FROM uploads WHERE client_message_key = ?`, key)
	u, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Upload{}, fmt.Errorf("get %s: %w", key, ErrUploadNotFound)
	}
	return u, err
}

// UploadsByStatus returns uploads in status, oldest first.
func (db *DB) UploadsByStatus(status UploadStatus) ([]Upload, error) {
	rows, err := db.Query(`SELECT `+uploadColumns+` FROM uploads WHERE status = ? ORDER BY created_at ASC, id ASC`, string(status))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UploadsForRoom returns the not yet delivered uploads of a room, so a
// reopened room can show its failed placeholders again.
func (db *DB) UploadsForRoom(room chat.RoomKey) ([]Upload, error) {
	rows, err := db.Query(`SELECT `+uploadColumns+` FROM uploads
		WHERE room_type = ? AND room_id = ? AND status != 'uploaded'
		ORDER BY created_at ASC, id ASC`, string(room.Type), room.ID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// PurgeUploaded deletes delivered uploads older than cutoff.
func (db *DB) PurgeUploaded(cutoff time.Time) (int64, error) {
	res, err := db.Exec(`DELETE FROM uploads WHERE status = 'uploaded' AND updated_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(s scanner) (Upload, error) {
	var (
		u                Upload
		roomType, status string
		created, updated int64
	)
	if err := s.Scan(&u.ID, &u.ClientMessageKey, &roomType, &u.Room.ID, &u.SenderID, &u.LocalPath,
		&status, &u.Attempts, &u.ImageURL, &u.ErrorMessage, &created, &updated); err != nil {
		return Upload{}, err
	}
	u.Room.Type = chat.RoomType(roomType)
	u.Status = UploadStatus(status)
	u.CreatedAt = time.UnixMilli(created)
	u.UpdatedAt = time.UnixMilli(updated)
	return u, nil
}
