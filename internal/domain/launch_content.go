package domain

import "time"

// GeneratedBy records how a LaunchContent was produced.
type GeneratedBy string

const (
	GeneratedManual GeneratedBy = "manual"
	GeneratedAI     GeneratedBy = "ai"
)

// LaunchContent ("Product") is the marketing persona that drives tone and
// targeting for generated newsletters. It is owned exclusively by UserID.
type LaunchContent struct {
	ID               string        `json:"id" db:"id" dynamodbav:"id"`
	UserID           string        `json:"userId" db:"user_id" dynamodbav:"userId"`
	Name             string        `json:"name" db:"name" dynamodbav:"name"`
	Description      string        `json:"description" db:"description" dynamodbav:"description"`
	TargetAudience   string        `json:"targetAudience" db:"target_audience" dynamodbav:"targetAudience"`
	ValueProposition string        `json:"valueProposition" db:"value_proposition" dynamodbav:"valueProposition"`
	Tone             string        `json:"tone" db:"tone" dynamodbav:"tone"`
	CoreMessage      string        `json:"coreMessage" db:"core_message" dynamodbav:"coreMessage"`
	Launch           LaunchDetails `json:"launchContent" db:"launch_content" dynamodbav:"launchContent"`
	CreatedAt        time.Time     `json:"createdAt" db:"created_at" dynamodbav:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt" db:"updated_at" dynamodbav:"updatedAt"`
}

// LaunchDetails is the nested launch record of a LaunchContent.
type LaunchDetails struct {
	Concept      string      `json:"concept" dynamodbav:"concept"`
	TargetPain   string      `json:"targetPain" dynamodbav:"targetPain"`
	CurrentState string      `json:"currentState" dynamodbav:"currentState"`
	IdealFuture  string      `json:"idealFuture" dynamodbav:"idealFuture"`
	URL          string      `json:"url,omitempty" dynamodbav:"url,omitempty"`
	Price        string      `json:"price,omitempty" dynamodbav:"price,omitempty"`
	LaunchDate   string      `json:"launchDate,omitempty" dynamodbav:"launchDate,omitempty"`
	GeneratedBy  GeneratedBy `json:"generatedBy" dynamodbav:"generatedBy"`
}

// Validate checks the fields every LaunchContent must carry.
func (lc *LaunchContent) Validate() error {
	v := &ValidationError{}
	if lc.Name == "" {
		v.Add("name", "is required")
	}
	switch lc.Launch.GeneratedBy {
	case "", GeneratedManual, GeneratedAI:
	default:
		v.Add("launchContent.generatedBy", "must be manual or ai")
	}
	return v.OrNil()
}
