package models

// User is the profile of the requesting user, resolved by the upstream
// gateway. Only the fields feeding the profile summary live here.
type User struct {
	ID              int64            `json:"id"`
	Email           string           `json:"email"`
	Skills          []Skill          `json:"skills"`
	WorkExperiences []WorkExperience `json:"workExperiences"`
	Projects        []Project        `json:"projects"`
}

type Skill struct {
	Name     string `json:"name"`
	Category string `json:"category"` // "technical" or "soft"
}

type WorkExperience struct {
	Role    string `json:"role"`
	Company string `json:"company"`
}

type Project struct {
	Name string `json:"name"`
}
