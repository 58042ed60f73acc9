package domain

// ServiceDescriptor is an entry in the builtin service table.
type ServiceDescriptor struct {
	Name       string `json:"name"`
	IsBuiltIn  bool   `json:"isBuiltIn"`
	APIURL     string `json:"apiUrl"`
	KeyPattern string `json:"keyPattern"`
}

// UnknownService labels keys that match no builtin pattern.
const UnknownService = "Unknown"
