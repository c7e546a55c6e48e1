package models

// Submission is one contact-form entry. It is written once and never updated or deleted.
//
// Timestamp is kept as the ISO-8601 string assigned at creation so every backend returns it
// byte-for-byte as stored.
type Submission struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	FirstName string `json:"firstName" gorm:"not null"`
	LastName  string `json:"lastName" gorm:"not null"`
	Email     string `json:"email" gorm:"not null;index"`
	Message   string `json:"message" gorm:"type:text;not null"`
	Timestamp string `json:"timestamp" gorm:"not null;index;size:32"`
}

func (Submission) TableName() string {
	return "submissions"
}
