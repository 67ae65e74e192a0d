package models

import "time"

type User struct {
	ID          int       `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	Password    string    `json:"password,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u User) String() string {
	return u.Username
}

// Name is what templates show for an author.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

type Follow struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	AuthorID  int       `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

type FollowStats struct {
	FollowersCount int `json:"followers_count"`
	FollowingCount int `json:"following_count"`
}

type DeviceToken struct {
	UserID int    `json:"user_id"`
	Token  string `json:"token"`
}
