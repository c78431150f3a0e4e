package schemas

// -- Agent invocation envelopes --

// DiscoveryRequest starts or resumes a tee-time discovery run. Either CourseID or
// TargetURL identifies the booking site.
type DiscoveryRequest struct {
	SessionID       string           `json:"sessionId"`
	CourseID        string           `json:"courseId,omitempty"`
	CourseName      string           `json:"courseName,omitempty"`
	TargetURL       string           `json:"targetUrl,omitempty"`
	Date            string           `json:"date"`
	NumPlayers      int              `json:"numPlayers"`
	UserMessage     string           `json:"userMessage,omitempty"`
	LastObservation *PageObservation `json:"lastObservation,omitempty"`
}

// DiscoveryResponse is the discovery invocation result.
type DiscoveryResponse struct {
	SessionID   string           `json:"sessionId"`
	TeeTimes    []TeeTimeRecord  `json:"teeTimes"`
	Observation *PageObservation `json:"observation,omitempty"`
	Status      string           `json:"status"`
	Thought     string           `json:"thought"`
	Message     string           `json:"message"`
	RedirectURL string           `json:"redirectUrl,omitempty"`
}

// UserDetails is the contact information entered into booking forms.
type UserDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// BookingRequest starts or resumes a booking run for a chosen tee time.
type BookingRequest struct {
	SessionID       string           `json:"sessionId"`
	CourseID        string           `json:"courseId,omitempty"`
	TeeTime         TeeTimeRecord    `json:"teeTime"`
	NumPlayers      int              `json:"numPlayers,omitempty"`
	Date            string           `json:"date,omitempty"`
	User            UserDetails      `json:"userDetails"`
	LastObservation *PageObservation `json:"lastObservation,omitempty"`
}

// BookingResponse is the booking invocation result.
type BookingResponse struct {
	SessionID       string           `json:"sessionId"`
	Success         bool             `json:"success"`
	ConfirmationURL string           `json:"confirmationUrl,omitempty"`
	Message         string           `json:"message"`
	Observation     *PageObservation `json:"observation,omitempty"`
	Thought         string           `json:"thought"`
}
