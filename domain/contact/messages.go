package contact

// Client-facing messages. These strings are part of the public API.
const (
	MsgAllFieldsRequired = "All fields are required"
	MsgInvalidEmail      = "Please enter a valid email address"
	MsgThankYou          = "Thank you for your message. We will get back to you soon!"
	MsgStoreFailed       = "Failed to store submission. Please try again later."
	MsgFetchFailed       = "Failed to fetch submissions"
	MsgInvalidBody       = "Invalid request body"
)
