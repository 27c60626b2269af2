package storage

import "time"

// Upload records a GPX file stored by an admin.
type Upload struct {
	ID         string    `json:"id"`
	AdminID    string    `json:"admin_id"`
	BookID     int       `json:"book_id"`
	Name       string    `json:"name"`
	Size       int       `json:"size"`
	Points     int       `json:"points"`
	UploadedAt time.Time `json:"uploaded_at"`
}
