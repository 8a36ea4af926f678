// Package model defines the data structures used throughout the application.
package model

import "encoding/json"

// User is one entry of the evaluation API's user directory.
//
// The API returns the directory as a JSON object keyed by user ID:
//
//	{"users": {"1": "Alice", "2": "Bob"}}
//
// so a User is never decoded directly; the client turns each key/value
// pair into one.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Post is kept opaque. Only the number of posts per user matters, so we
// never look inside one.
type Post = json.RawMessage

// RankedUser is a user together with the number of posts they had when the
// ranking was computed. This is also the shape cached under the "topUsers"
// key, so the json tags are part of the stored format.
type RankedUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PostCount int    `json:"postCount"`
}
