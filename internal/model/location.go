package model

import "time"

// GPSLocation is a named GPS fix recorded by a user.
//
// RecordedAt is when the fix was taken on the device, which can differ from
// CreatedAt (when it reached the server) — mobile clients batch-upload.
type GPSLocation struct {
	ID         string    `json:"id"         db:"id"`
	UserID     string    `json:"userId"     db:"user_id"`
	Name       string    `json:"name"       db:"name"`
	Latitude   float64   `json:"latitude"   db:"latitude"`
	Longitude  float64   `json:"longitude"  db:"longitude"`
	Altitude   float64   `json:"altitude"   db:"altitude"`
	RecordedAt time.Time `json:"recordedAt" db:"recorded_at"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt"  db:"updated_at"`
}
