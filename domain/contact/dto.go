package contact

import "github.com/concordtech/contact-api/internal/models"

// SubmitContactRequest is the contact form payload. Values are stored exactly as received.
type SubmitContactRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,contactemail"`
	Message   string `json:"message" validate:"required"`
}

type SubmitContactResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ListResponse struct {
	Submissions []models.Submission `json:"submissions"`
}

type SubmissionsResponse struct {
	Submissions []models.Submission `json:"submissions"`
	Count       int                 `json:"count"`
}

func ToSubmissionModel(req *SubmitContactRequest, id, timestamp string) *models.Submission {
	return &models.Submission{
		ID:        id,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Message:   req.Message,
		Timestamp: timestamp,
	}
}
