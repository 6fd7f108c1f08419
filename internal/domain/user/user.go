package user

import "time"

type User struct {
	ID           string        `json:"id" bson:"_id,omitempty"`
	Username     string        `json:"username" bson:"username"`
	Email        string        `json:"email" bson:"email"`
	CreatedAt    time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" bson:"updated_at"`
	AvatarURL    string        `json:"avatar_url,omitempty" bson:"avatar_url,omitempty"`
	Statistic    UserStatistic `json:"statistic" bson:"statistic"`
	PasswordHash string        `json:"-" bson:"password_hash"`
	PasswordSalt string        `json:"-" bson:"password_salt"`
}

type UserStatistic struct {
	Wins   int `json:"wins" bson:"wins"`
	Losses int `json:"losses" bson:"losses"`
	Draws  int `json:"draws" bson:"draws"`
}

// Rating is one per-user per-bucket skill record. Buckets separate
// human-vs-human outcomes from games against the scripted opponent.
type Rating struct {
	UserID string  `json:"user_id" bson:"user_id"`
	Bucket string  `json:"bucket" bson:"bucket"`
	Rating float64 `json:"rating" bson:"rating"`
	Games  int     `json:"games" bson:"games"`
	Wins   int     `json:"wins" bson:"wins"`
	Losses int     `json:"losses" bson:"losses"`
	Draws  int     `json:"draws" bson:"draws"`
}
